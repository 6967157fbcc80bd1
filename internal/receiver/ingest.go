package receiver

import (
	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	colmetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	metricspb "go.opentelemetry.io/proto/otlp/metrics/v1"
)

// core holds the ingestion state shared by the HTTP and gRPC transports:
// which attribute to mine, how to classify a record, and where the
// resulting include/exclude rows accumulate. Mirrors how the teacher's
// HTTPReceiver/GRPCReceiver each held their own analyzer instances, except
// here the analysis is the same regardless of transport so it lives once.
type core struct {
	attributeKey    string
	statusAttribute string
	badValues       []string
	buffer          *AttributeBuffer
}

func newCore(cfg Config, buffer *AttributeBuffer) *core {
	return &core{
		attributeKey:    cfg.AttributeKey,
		statusAttribute: cfg.StatusAttribute,
		badValues:       cfg.BadValues,
		buffer:          buffer,
	}
}

// ingestTraces walks every span, classifies it by status, and observes the
// configured attribute's value from the merged resource+span attribute set.
func (c *core) ingestTraces(req *coltracepb.ExportTraceServiceRequest) int {
	n := 0
	for _, rs := range req.ResourceSpans {
		resourceAttrs := attrsToMap(rs.Resource.GetAttributes())
		for _, ss := range rs.ScopeSpans {
			for _, span := range ss.Spans {
				attrs := mergeAttrs(resourceAttrs, attrsToMap(span.Attributes))
				value, ok := attrs[c.attributeKey]
				if !ok {
					continue
				}
				bad := spanIsBad(span.Status, attrs, c.statusAttribute, c.badValues)
				c.buffer.Observe(c.attributeKey, value, bad)
				n++
			}
		}
	}
	return n
}

// ingestLogs walks every log record the same way, classifying by severity.
func (c *core) ingestLogs(req *collogspb.ExportLogsServiceRequest) int {
	n := 0
	for _, rl := range req.ResourceLogs {
		resourceAttrs := attrsToMap(rl.Resource.GetAttributes())
		for _, sl := range rl.ScopeLogs {
			for _, rec := range sl.LogRecords {
				attrs := mergeAttrs(resourceAttrs, attrsToMap(rec.Attributes))
				value, ok := attrs[c.attributeKey]
				if !ok {
					continue
				}
				bad := logIsBad(rec.SeverityNumber, rec.SeverityText, attrs, c.statusAttribute, c.badValues)
				c.buffer.Observe(c.attributeKey, value, bad)
				n++
			}
		}
	}
	return n
}

// ingestMetrics walks every numeric/histogram/summary data point across
// the gauge/sum/histogram/exponential-histogram/summary metric shapes,
// classifying purely by attribute since OTLP metrics carry no native
// status field.
func (c *core) ingestMetrics(req *colmetricspb.ExportMetricsServiceRequest) int {
	n := 0
	for _, rm := range req.ResourceMetrics {
		resourceAttrs := attrsToMap(rm.Resource.GetAttributes())
		for _, sm := range rm.ScopeMetrics {
			for _, metric := range sm.Metrics {
				n += c.ingestDataPoints(metric, resourceAttrs)
			}
		}
	}
	return n
}

func (c *core) ingestDataPoints(metric *metricspb.Metric, resourceAttrs map[string]string) int {
	n := 0
	observe := func(dpAttrs []*commonpb.KeyValue) {
		attrs := mergeAttrs(resourceAttrs, attrsToMap(dpAttrs))
		value, ok := attrs[c.attributeKey]
		if !ok {
			return
		}
		bad := attributeIsBad(attrs, c.statusAttribute, c.badValues)
		c.buffer.Observe(c.attributeKey, value, bad)
		n++
	}

	switch data := metric.Data.(type) {
	case *metricspb.Metric_Gauge:
		for _, dp := range data.Gauge.DataPoints {
			observe(dp.Attributes)
		}
	case *metricspb.Metric_Sum:
		for _, dp := range data.Sum.DataPoints {
			observe(dp.Attributes)
		}
	case *metricspb.Metric_Histogram:
		for _, dp := range data.Histogram.DataPoints {
			observe(dp.Attributes)
		}
	case *metricspb.Metric_ExponentialHistogram:
		for _, dp := range data.ExponentialHistogram.DataPoints {
			observe(dp.Attributes)
		}
	case *metricspb.Metric_Summary:
		for _, dp := range data.Summary.DataPoints {
			observe(dp.Attributes)
		}
	}
	return n
}
