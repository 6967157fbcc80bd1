package receiver

import (
	"testing"

	logspb "go.opentelemetry.io/proto/otlp/logs/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"
)

func TestAttributeIsBad(t *testing.T) {
	cases := []struct {
		name  string
		attrs map[string]string
		want  bool
	}{
		{"matches bad value", map[string]string{"outcome": "Error"}, true},
		{"matches another bad value", map[string]string{"outcome": "fail"}, true},
		{"good value", map[string]string{"outcome": "success"}, false},
		{"missing attribute", map[string]string{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := attributeIsBad(tc.attrs, "outcome", []string{"error", "failure", "fail"})
			if got != tc.want {
				t.Errorf("attributeIsBad(%v) = %v, want %v", tc.attrs, got, tc.want)
			}
		})
	}
}

func TestSpanIsBad(t *testing.T) {
	errStatus := &tracepb.Status{Code: tracepb.Status_STATUS_CODE_ERROR}
	okStatus := &tracepb.Status{Code: tracepb.Status_STATUS_CODE_OK}

	if !spanIsBad(errStatus, nil, "outcome", nil) {
		t.Error("expected ERROR status span to be bad")
	}
	if spanIsBad(okStatus, nil, "outcome", nil) {
		t.Error("expected OK status span to be good")
	}
	if !spanIsBad(nil, map[string]string{"outcome": "error"}, "outcome", []string{"error"}) {
		t.Error("expected nil status to fall back to attribute classifier")
	}
}

func TestLogIsBad(t *testing.T) {
	if !logIsBad(logspb.SeverityNumber_SEVERITY_NUMBER_ERROR, "ERROR", nil, "outcome", nil) {
		t.Error("expected ERROR severity number to be bad")
	}
	if !logIsBad(logspb.SeverityNumber_SEVERITY_NUMBER_UNSPECIFIED, "FATAL", nil, "outcome", nil) {
		t.Error("expected FATAL severity text to be bad")
	}
	if logIsBad(logspb.SeverityNumber_SEVERITY_NUMBER_INFO, "INFO", nil, "outcome", nil) {
		t.Error("expected INFO severity to be good")
	}
}
