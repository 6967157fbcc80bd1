package receiver

import (
	"fmt"

	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
)

// attrsToMap converts OTLP KeyValue attributes to a flat map, the same
// conversion internal/analyzer's extractAttributes performed before this
// package took over attribute handling.
func attrsToMap(attrs []*commonpb.KeyValue) map[string]string {
	result := make(map[string]string, len(attrs))
	for _, attr := range attrs {
		result[attr.Key] = attrValueToString(attr.Value)
	}
	return result
}

func attrValueToString(value *commonpb.AnyValue) string {
	if value == nil {
		return ""
	}
	switch v := value.Value.(type) {
	case *commonpb.AnyValue_StringValue:
		return v.StringValue
	case *commonpb.AnyValue_IntValue:
		return fmt.Sprintf("%d", v.IntValue)
	case *commonpb.AnyValue_DoubleValue:
		return fmt.Sprintf("%f", v.DoubleValue)
	case *commonpb.AnyValue_BoolValue:
		return fmt.Sprintf("%t", v.BoolValue)
	default:
		return fmt.Sprintf("%v", value)
	}
}

// mergeAttrs layers record-level attributes over resource-level ones, so a
// span/log/data-point attribute of the same key shadows its resource's.
func mergeAttrs(resource, local map[string]string) map[string]string {
	out := make(map[string]string, len(resource)+len(local))
	for k, v := range resource {
		out[k] = v
	}
	for k, v := range local {
		out[k] = v
	}
	return out
}
