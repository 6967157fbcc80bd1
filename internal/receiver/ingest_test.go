package receiver

import (
	"context"
	"testing"

	"github.com/patternforge/patternforge/internal/store/memory"
	"github.com/patternforge/patternforge/pkg/forge/solve"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"
)

func strAttr(key, value string) *commonpb.KeyValue {
	return &commonpb.KeyValue{Key: key, Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: value}}}
}

func TestIngestTracesClassifiesByStatus(t *testing.T) {
	buf := NewAttributeBuffer(memory.New(), solve.DefaultConfig(), Config{BufferSize: 1000, FlushIntervalSec: 3600}, nil)
	defer buf.Close(context.Background())

	c := newCore(Config{AttributeKey: "http.route", StatusAttribute: "outcome"}, buf)

	req := &coltracepb.ExportTraceServiceRequest{
		ResourceSpans: []*tracepb.ResourceSpans{
			{
				Resource: &resourcepb.Resource{Attributes: []*commonpb.KeyValue{strAttr("service.name", "checkout")}},
				ScopeSpans: []*tracepb.ScopeSpans{
					{
						Spans: []*tracepb.Span{
							{
								Name:       "POST /checkout",
								Attributes: []*commonpb.KeyValue{strAttr("http.route", "/checkout")},
								Status:     &tracepb.Status{Code: tracepb.Status_STATUS_CODE_ERROR},
							},
							{
								Name:       "GET /billing",
								Attributes: []*commonpb.KeyValue{strAttr("http.route", "/billing")},
								Status:     &tracepb.Status{Code: tracepb.Status_STATUS_CODE_OK},
							},
						},
					},
				},
			},
		},
	}

	n := c.ingestTraces(req)
	if n != 2 {
		t.Fatalf("ingested %d spans, want 2", n)
	}

	buf.mu.Lock()
	r := buf.rows["http.route"]
	buf.mu.Unlock()
	if r == nil {
		t.Fatal("expected accumulated rows for http.route")
	}
	if len(r.include) != 1 || r.include[0] != "/checkout" {
		t.Errorf("include = %v, want [/checkout]", r.include)
	}
	if len(r.exclude) != 1 || r.exclude[0] != "/billing" {
		t.Errorf("exclude = %v, want [/billing]", r.exclude)
	}
}

func TestIngestLogsClassifiesBySeverity(t *testing.T) {
	buf := NewAttributeBuffer(memory.New(), solve.DefaultConfig(), Config{BufferSize: 1000, FlushIntervalSec: 3600}, nil)
	defer buf.Close(context.Background())

	c := newCore(Config{AttributeKey: "logger", StatusAttribute: "outcome"}, buf)

	req := &collogspb.ExportLogsServiceRequest{
		ResourceLogs: []*logspb.ResourceLogs{
			{
				Resource: &resourcepb.Resource{},
				ScopeLogs: []*logspb.ScopeLogs{
					{
						LogRecords: []*logspb.LogRecord{
							{
								SeverityText:   "ERROR",
								SeverityNumber: logspb.SeverityNumber_SEVERITY_NUMBER_ERROR,
								Attributes:     []*commonpb.KeyValue{strAttr("logger", "checkout.worker")},
							},
							{
								SeverityText:   "INFO",
								SeverityNumber: logspb.SeverityNumber_SEVERITY_NUMBER_INFO,
								Attributes:     []*commonpb.KeyValue{strAttr("logger", "billing.worker")},
							},
						},
					},
				},
			},
		},
	}

	n := c.ingestLogs(req)
	if n != 2 {
		t.Fatalf("ingested %d log records, want 2", n)
	}

	buf.mu.Lock()
	r := buf.rows["logger"]
	buf.mu.Unlock()
	if r == nil || len(r.include) != 1 || len(r.exclude) != 1 {
		t.Fatalf("rows = %+v, want 1 include and 1 exclude", r)
	}
}
