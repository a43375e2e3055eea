package simbridge

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/coder/websocket"

	"github.com/banshee-data/highway.planner/internal/monitoring"
	"github.com/banshee-data/highway.planner/internal/planner"
)

const readLimit = 1 << 20

// PlannerFactory builds a fresh planner for each simulator connection.
type PlannerFactory func() (*planner.Planner, error)

// Server accepts simulator connections. Each connection owns one planner and
// handles frames strictly in order.
type Server struct {
	newPlanner PlannerFactory
	active     atomic.Int64
	cycles     atomic.Int64
}

// NewServer returns a Server creating planners with f.
func NewServer(f PlannerFactory) *Server {
	return &Server{newPlanner: f}
}

// ActiveConnections returns the number of open simulator sessions.
func (s *Server) ActiveConnections() int64 { return s.active.Load() }

// Cycles returns the number of planning cycles run across all sessions.
func (s *Server) Cycles() int64 { return s.cycles.Load() }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		monitoring.Logf("simbridge: accept: %v", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(readLimit)

	p, err := s.newPlanner()
	if err != nil {
		monitoring.Logf("simbridge: new planner: %v", err)
		conn.Close(websocket.StatusInternalError, "planner unavailable")
		return
	}

	s.active.Add(1)
	defer s.active.Add(-1)
	monitoring.Logf("simbridge: simulator connected from %s", r.RemoteAddr)

	err = s.serve(r.Context(), conn, p)
	switch {
	case err == nil, websocket.CloseStatus(err) == websocket.StatusNormalClosure,
		websocket.CloseStatus(err) == websocket.StatusGoingAway, errors.Is(err, context.Canceled):
		monitoring.Logf("simbridge: simulator disconnected after %d cycles", p.Cycles())
		conn.Close(websocket.StatusNormalClosure, "")
	default:
		monitoring.Logf("simbridge: session ended after %d cycles: %v", p.Cycles(), err)
		conn.Close(websocket.StatusInternalError, "planner error")
	}
}

func (s *Server) serve(ctx context.Context, conn *websocket.Conn, p *planner.Planner) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		reply, err := s.handle(ctx, p, data)
		if err != nil {
			return err
		}
		if reply == nil {
			continue
		}
		if err := conn.Write(ctx, websocket.MessageText, reply); err != nil {
			return err
		}
	}
}

// handle returns the reply for one frame, or nil for frames that need none.
func (s *Server) handle(ctx context.Context, p *planner.Planner, data []byte) ([]byte, error) {
	t, err := ParseMessage(data)
	switch {
	case errors.Is(err, ErrNotEvent):
		if string(data) == "2" {
			return []byte("3"), nil // engine.io ping
		}
		return nil, nil
	case errors.Is(err, ErrNotTelemetry):
		return ManualMessage, nil
	case err != nil:
		monitoring.Logf("simbridge: dropping frame: %v", err)
		return nil, nil
	}

	in, err := t.Input()
	if err != nil {
		monitoring.Logf("simbridge: dropping frame: %v", err)
		return nil, nil
	}
	out, err := p.Step(ctx, in)
	if err != nil {
		return nil, err
	}
	s.cycles.Add(1)
	return EncodeControl(out.Path)
}
