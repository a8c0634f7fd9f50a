package benchmark

import (
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/index/tokenizer"
)

var sampleTexts = map[string]string{
	"short": "Java is a high-level, class-based, object-oriented programming language.",
	"medium": `Java is a high-level, general-purpose, memory-safe, object-oriented
        programming language. It is intended to let programmers write once, run
        anywhere, meaning that compiled Java code can run on all platforms that
        support Java without the need to recompile.`,
	"long": strings.Repeat(`A programming language is a system of notation for writing
        computer programs. Programming languages are described in terms of their
        syntax and semantics, usually defined by a formal language. Languages
        usually provide features such as a type system, variables, and mechanisms
        for error handling. `, 20),
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = tokenizer.Tokenize(text)
			}
		})
	}
}

func BenchmarkTermFrequencies(b *testing.B) {
	text := sampleTexts["long"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		_ = tokenizer.TermFrequencies(text)
	}
}
