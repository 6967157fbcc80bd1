// Package receiver implements OTLP HTTP and gRPC ingestion endpoints that
// turn resource/attribute streams into the include/exclude rows PatternForge
// mines patterns over.
package receiver

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	colmetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

var verboseLogging = strings.ToLower(os.Getenv("VERBOSE_LOGGING")) == "true"

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func decompressGzip(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

// HTTPReceiver handles OTLP HTTP requests.
type HTTPReceiver struct {
	core   *core
	server *http.Server
}

// NewHTTPReceiver creates an HTTP receiver that feeds buffer with
// attribute observations per cfg.
func NewHTTPReceiver(addr string, buffer *AttributeBuffer, cfg Config) *HTTPReceiver {
	r := &HTTPReceiver{core: newCore(cfg, buffer)}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/metrics", r.handleMetrics)
	mux.HandleFunc("/v1/traces", r.handleTraces)
	mux.HandleFunc("/v1/logs", r.handleLogs)
	mux.HandleFunc("/health", r.handleHealth)

	r.server = &http.Server{Addr: addr, Handler: mux}
	return r
}

func (r *HTTPReceiver) Start() error {
	return r.server.ListenAndServe()
}

func (r *HTTPReceiver) Shutdown(ctx context.Context) error {
	return r.server.Shutdown(ctx)
}

func (r *HTTPReceiver) readBody(w http.ResponseWriter, req *http.Request) ([]byte, bool) {
	if req.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}

	reader := req.Body
	if req.Header.Get("Content-Encoding") == "gzip" {
		var err error
		reader, err = decompressGzip(req.Body)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to decompress: %v", err), http.StatusBadRequest)
			return nil, false
		}
		defer reader.Close()
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to read body: %v", err), http.StatusBadRequest)
		return nil, false
	}
	defer req.Body.Close()
	return body, true
}

func (r *HTTPReceiver) handleMetrics(w http.ResponseWriter, req *http.Request) {
	body, ok := r.readBody(w, req)
	if !ok {
		return
	}

	var exportReq colmetricspb.ExportMetricsServiceRequest
	if err := proto.Unmarshal(body, &exportReq); err != nil {
		unmarshaler := protojson.UnmarshalOptions{DiscardUnknown: true}
		if jsonErr := unmarshaler.Unmarshal(body, &exportReq); jsonErr != nil {
			log.Printf("Failed to parse metrics request: protobuf error: %v, json error: %v", err, jsonErr)
			if verboseLogging {
				fmt.Printf("Body preview: %s\n", string(body[:min(len(body), 100)]))
			}
			http.Error(w, fmt.Sprintf("Failed to parse request: protobuf error: %v, json error: %v", err, jsonErr), http.StatusBadRequest)
			return
		}
	}

	n := r.core.ingestMetrics(&exportReq)
	if verboseLogging {
		fmt.Printf("Observed %d metric data points for attribute %q\n", n, r.core.attributeKey)
	}

	resp := &colmetricspb.ExportMetricsServiceResponse{}
	r.writeResponse(w, resp)
}

func (r *HTTPReceiver) handleTraces(w http.ResponseWriter, req *http.Request) {
	body, ok := r.readBody(w, req)
	if !ok {
		return
	}

	var exportReq coltracepb.ExportTraceServiceRequest
	if err := proto.Unmarshal(body, &exportReq); err != nil {
		unmarshaler := protojson.UnmarshalOptions{DiscardUnknown: true}
		if jsonErr := unmarshaler.Unmarshal(body, &exportReq); jsonErr != nil {
			log.Printf("Failed to parse traces request: protobuf error: %v, json error: %v", err, jsonErr)
			http.Error(w, fmt.Sprintf("Failed to parse request: protobuf error: %v, json error: %v", err, jsonErr), http.StatusBadRequest)
			return
		}
	}

	n := r.core.ingestTraces(&exportReq)
	if verboseLogging {
		fmt.Printf("Observed %d spans for attribute %q\n", n, r.core.attributeKey)
	}

	resp := &coltracepb.ExportTraceServiceResponse{}
	r.writeResponse(w, resp)
}

func (r *HTTPReceiver) handleLogs(w http.ResponseWriter, req *http.Request) {
	body, ok := r.readBody(w, req)
	if !ok {
		return
	}

	var exportReq collogspb.ExportLogsServiceRequest
	if err := proto.Unmarshal(body, &exportReq); err != nil {
		unmarshaler := protojson.UnmarshalOptions{DiscardUnknown: true}
		if jsonErr := unmarshaler.Unmarshal(body, &exportReq); jsonErr != nil {
			log.Printf("Failed to parse logs request: protobuf error: %v, json error: %v", err, jsonErr)
			http.Error(w, fmt.Sprintf("Failed to parse request: protobuf error: %v, json error: %v", err, jsonErr), http.StatusBadRequest)
			return
		}
	}

	n := r.core.ingestLogs(&exportReq)
	if verboseLogging {
		fmt.Printf("Observed %d log records for attribute %q\n", n, r.core.attributeKey)
	}

	resp := &collogspb.ExportLogsServiceResponse{}
	r.writeResponse(w, resp)
}

func (r *HTTPReceiver) handleHealth(w http.ResponseWriter, req *http.Request) {
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// writeResponse writes a protobuf response; OTLP always uses protobuf for
// responses regardless of how the request was encoded.
func (r *HTTPReceiver) writeResponse(w http.ResponseWriter, resp proto.Message) {
	respBytes, err := proto.Marshal(resp)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to marshal response: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/x-protobuf")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, bytes.NewReader(respBytes))
}
