package receiver

import (
	"context"
	"fmt"
	"log"
	"net"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	colmetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

// GRPCReceiver handles OTLP gRPC requests.
type GRPCReceiver struct {
	colmetricspb.UnimplementedMetricsServiceServer
	core     *core
	server   *grpc.Server
	listener net.Listener
	addr     string
}

// NewGRPCReceiver creates a gRPC receiver that feeds buffer per cfg.
func NewGRPCReceiver(addr string, buffer *AttributeBuffer, cfg Config) *GRPCReceiver {
	return &GRPCReceiver{
		core: newCore(cfg, buffer),
		addr: addr,
	}
}

// Start starts the gRPC server.
func (r *GRPCReceiver) Start() error {
	lis, err := net.Listen("tcp", r.addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	r.listener = lis

	r.server = grpc.NewServer()

	colmetricspb.RegisterMetricsServiceServer(r.server, r)
	coltracepb.RegisterTraceServiceServer(r.server, &traceService{
		UnimplementedTraceServiceServer: coltracepb.UnimplementedTraceServiceServer{},
		GRPCReceiver:                    r,
	})
	collogspb.RegisterLogsServiceServer(r.server, &logsService{
		UnimplementedLogsServiceServer: collogspb.UnimplementedLogsServiceServer{},
		GRPCReceiver:                   r,
	})

	reflection.Register(r.server)

	log.Printf("gRPC server listening on %s", r.addr)
	return r.server.Serve(lis)
}

// Shutdown gracefully shuts down the gRPC server.
func (r *GRPCReceiver) Shutdown(ctx context.Context) error {
	if r.server != nil {
		r.server.GracefulStop()
	}
	return nil
}

// Export implements the MetricsService Export RPC.
func (r *GRPCReceiver) Export(ctx context.Context, req *colmetricspb.ExportMetricsServiceRequest) (*colmetricspb.ExportMetricsServiceResponse, error) {
	r.core.ingestMetrics(req)
	return &colmetricspb.ExportMetricsServiceResponse{
		PartialSuccess: &colmetricspb.ExportMetricsPartialSuccess{RejectedDataPoints: 0},
	}, nil
}

// traceService implements TraceService via a separate type, avoiding a
// method-name collision with MetricsService's Export on GRPCReceiver.
type traceService struct {
	coltracepb.UnimplementedTraceServiceServer
	*GRPCReceiver
}

func (s *traceService) Export(ctx context.Context, req *coltracepb.ExportTraceServiceRequest) (*coltracepb.ExportTraceServiceResponse, error) {
	s.core.ingestTraces(req)
	return &coltracepb.ExportTraceServiceResponse{
		PartialSuccess: &coltracepb.ExportTracePartialSuccess{RejectedSpans: 0},
	}, nil
}

// logsService implements LogsService via a separate type, for the same
// reason as traceService.
type logsService struct {
	collogspb.UnimplementedLogsServiceServer
	*GRPCReceiver
}

func (s *logsService) Export(ctx context.Context, req *collogspb.ExportLogsServiceRequest) (*collogspb.ExportLogsServiceResponse, error) {
	s.core.ingestLogs(req)
	return &collogspb.ExportLogsServiceResponse{
		PartialSuccess: &collogspb.ExportLogsPartialSuccess{RejectedLogRecords: 0},
	}, nil
}
