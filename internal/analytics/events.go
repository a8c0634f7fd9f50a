// Package analytics ships query events to Kafka off the request path.
package analytics

import "time"

// QueryEvent describes one executed query.
type QueryEvent struct {
	QueryID   string    `json:"query_id"`
	Op        string    `json:"op"`
	Terms     []string  `json:"terms"`
	Results   int       `json:"results"`
	LatencyMs int64     `json:"latency_ms"`
	Failed    bool      `json:"failed"`
	Timestamp time.Time `json:"timestamp"`
}

// Tracker accepts query events. Implementations must not block.
type Tracker interface {
	Track(event QueryEvent)
}

// Discard is a Tracker that drops every event.
var Discard Tracker = discard{}

type discard struct{}

func (discard) Track(QueryEvent) {}
