package receiver

import (
	"strings"

	logspb "go.opentelemetry.io/proto/otlp/logs/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"
)

// Classifier decides whether a merged resource+record attribute set
// belongs to the "bad" series (feeds the include set a solve mines over)
// or the "good" series (feeds the exclude set). Nothing in this package
// takes a Classifier; ingestion classifies through spanIsBad, logIsBad and
// attributeIsBad below.
type Classifier func(attrs map[string]string) bool

// attributeIsBad classifies by a configured status attribute (e.g.
// "outcome" or "http.status_class") matching one of a configured set of
// bad values, case-insensitively. This is the fallback used for metrics,
// which carry no built-in success/failure signal the way spans and logs
// do.
func attributeIsBad(attrs map[string]string, statusAttr string, badValues []string) bool {
	v, ok := attrs[statusAttr]
	if !ok {
		return false
	}
	v = strings.ToLower(v)
	for _, bad := range badValues {
		if v == strings.ToLower(bad) {
			return true
		}
	}
	return false
}

// spanIsBad classifies a span by its OTLP status code, falling back to
// the attribute classifier when the status is unset (many instrumentation
// libraries never set Status on successful spans).
func spanIsBad(status *tracepb.Status, attrs map[string]string, statusAttr string, badValues []string) bool {
	if status != nil && status.Code == tracepb.Status_STATUS_CODE_ERROR {
		return true
	}
	return attributeIsBad(attrs, statusAttr, badValues)
}

// logIsBad classifies a log record by severity, falling back to the
// attribute classifier for records with no severity set.
func logIsBad(severityNumber logspb.SeverityNumber, severityText string, attrs map[string]string, statusAttr string, badValues []string) bool {
	if severityNumber >= logspb.SeverityNumber_SEVERITY_NUMBER_ERROR {
		return true
	}
	switch strings.ToUpper(severityText) {
	case "ERROR", "FATAL", "CRITICAL":
		return true
	}
	return attributeIsBad(attrs, statusAttr, badValues)
}
