// Package transport exposes a deltapool.Engine over gRPC: one
// server-streaming RPC per connected client, fed by the engine's rate and
// extract seam every tick, plus a unary RPC for acknowledgements.
//
// The wire types (ClientHello, FrameEnvelope, DeltaRecord, ...) are
// generated from deltapool.proto by `go generate` (see gen.go) rather
// than hand-written, so this file imports the generated deltapoolpb
// package rather than redefining its messages.
package transport

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/doomsday-net/deltapool/internal/deltapool"
	pb "github.com/doomsday-net/deltapool/internal/transport/deltapoolpb"
)

// Codec encodes one delta's kind-specific payload into the opaque wire
// blob DeltaRecord carries. The transport layer has no opinion on bit
// packing; that is entirely the caller's domain codec.
type Codec interface {
	Encode(d *deltapool.Delta) ([]byte, error)
}

// TickSource yields the current simulation tic and the live object list
// a frame should be diffed against.
type TickSource interface {
	CurrentTic() int32
	LiveObjects() []deltapool.LiveObject
}

// Server implements the DeltaPool gRPC service defined in
// deltapool.proto, backed by a single deltapool.Engine shared across every
// connected client.
type Server struct {
	pb.UnimplementedDeltaPoolServer

	engine *deltapool.Engine
	codec  Codec
	ticks  TickSource
	log    *slog.Logger

	// OnTransmit, if set, is called once per delta immediately after it
	// is extracted and marked for transmission, before it is encoded and
	// sent. A caller wires a telemetry.Sink in here to record live
	// traffic; left nil, transmission goes unrecorded.
	OnTransmit func(idx deltapool.ClientIndex, d *deltapool.Delta)
}

// NewServer constructs a Server. logger may be nil, in which case
// slog.Default() is used.
func NewServer(engine *deltapool.Engine, codec Codec, ticks TickSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{engine: engine, codec: codec, ticks: ticks, log: logger}
}

// DeltaStream streams one FrameEnvelope per tick to the client identified
// by req.ClientIndex, for as long as the stream's context stays open.
func (s *Server) DeltaStream(req *pb.ClientHello, stream pb.DeltaPool_DeltaStreamServer) error {
	idx := deltapool.ClientIndex(req.GetClientIndex())
	if s.engine.GetPool(idx) == nil {
		s.engine.InitPoolForClient(idx)
	}

	// sessionID is purely a diagnostic correlation handle for this stream's
	// log lines; the engine itself never sees it, only the plain client
	// index it already addresses pools by.
	sessionID := uuid.New()

	ctx := stream.Context()
	s.log.Info("client stream started", "client_index", idx, "session_id", sessionID)
	defer s.log.Info("client stream ended", "client_index", idx, "session_id", sessionID)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		env := &pb.FrameEnvelope{Tic: s.ticks.CurrentTic()}
		for {
			d, ok := s.engine.ExtractNext(idx, false)
			if !ok {
				break
			}
			if s.OnTransmit != nil {
				s.OnTransmit(idx, d)
			}
			payload, err := s.codec.Encode(d)
			if err != nil {
				s.log.Warn("dropping delta: encode failed", "client_index", idx, "kind", d.Kind, "err", err)
				continue
			}
			env.Deltas = append(env.Deltas, &pb.DeltaRecord{
				Kind:   int32(d.Kind),
				Id:     d.ID,
				Flags:  uint32(d.Flags),
				TxSet:  d.Set,
				Resend: d.Resend,
				Payload: payload,
			})
		}

		if len(env.Deltas) > 0 {
			if err := stream.Send(env); err != nil {
				return err
			}
		}
	}
}

// AcknowledgeSet retires every UNACKED delta in the named transmission set
// from the requesting client's pool.
func (s *Server) AcknowledgeSet(ctx context.Context, req *pb.AckRequest) (*pb.AckResponse, error) {
	idx := deltapool.ClientIndex(req.GetClientIndex())
	if s.engine.GetPool(idx) == nil {
		return nil, status.Errorf(codes.NotFound, "no pool for client %d", idx)
	}
	if req.GetResend() != 0 {
		if err := s.engine.AcknowledgeResend(idx, req.GetResend()); err != nil {
			return nil, status.Errorf(codes.Internal, "%v", err)
		}
		return &pb.AckResponse{}, nil
	}
	if err := s.engine.AcknowledgeSet(idx, req.GetTxSet()); err != nil {
		return nil, status.Errorf(codes.Internal, "%v", err)
	}
	return &pb.AckResponse{}, nil
}
