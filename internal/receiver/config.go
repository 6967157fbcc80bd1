package receiver

import "time"

// Config governs how OTLP ingestion turns attribute observations into
// include/exclude rows. AttributeKey names the single attribute PatternForge
// mines patterns over; StatusAttribute/BadValues are the fallback
// classifier for signals (metrics) that carry no native success/failure
// status.
type Config struct {
	AttributeKey     string
	StatusAttribute  string
	BadValues        []string
	BufferSize       int
	FlushIntervalSec int
}

// DefaultConfig mirrors the teacher's BatchBuffer defaults (1000 rows /
// 5s) for the accumulation side, with a status convention ("outcome":
// "error") plausible for typical resource/span attribute naming.
func DefaultConfig() Config {
	return Config{
		AttributeKey:     "http.route",
		StatusAttribute:  "outcome",
		BadValues:        []string{"error", "failure", "fail"},
		BufferSize:       1000,
		FlushIntervalSec: 5,
	}
}

func (c Config) flushInterval() time.Duration {
	if c.FlushIntervalSec <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.FlushIntervalSec) * time.Second
}
