// Package intake accepts test events from an in-process framework adapter
// over a WebSocket and feeds them to a dispatcher.
//
// The adapter opens /ws and sends one JSON message per event:
//
//	{"type": "run_start"}
//	{"type": "test_end", "result": {"title": "...", "status": "passed"}}
//	{"type": "run_end"}
//
// Every message is answered with {"type": "ack"} or
// {"type": "error", "error": "..."} before the next one is read.
package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/AndreyAkinshin/testops/internal/dispatcher"
	"github.com/AndreyAkinshin/testops/internal/model"
)

// Event types sent by adapters.
const (
	EventRunStart = "run_start"
	EventTestEnd  = "test_end"
	EventRunEnd   = "run_end"
)

// Reply types.
const (
	ReplyAck   = "ack"
	ReplyError = "error"
)

// Paths served by Handler.
const (
	EventsPath = "/ws"
	HealthPath = "/healthz"
)

// maxMessageSize bounds one event; results may carry inline attachments.
const maxMessageSize = 64 << 20

// Dispatcher is the part of *dispatcher.Dispatcher the intake drives.
type Dispatcher interface {
	StartTestRun(ctx context.Context) error
	AddResult(ctx context.Context, result model.TestResult)
	Publish(ctx context.Context) dispatcher.Outcomes
}

// Logger receives connection-level diagnostics. *output.Writer satisfies it.
type Logger interface {
	Info(format string, args ...interface{})
	Debug(format string, args ...interface{})
	Warning(format string, args ...interface{})
}

// Message is one adapter event.
type Message struct {
	Type   string            `json:"type"`
	Result *model.TestResult `json:"result,omitempty"`
}

// Reply acknowledges or rejects one Message.
type Reply struct {
	Type     string          `json:"type"`
	Event    string          `json:"event,omitempty"`
	Error    string          `json:"error,omitempty"`
	Projects []ProjectReport `json:"projects,omitempty"`
}

// ProjectReport is the per-project part of the run_end reply.
type ProjectReport struct {
	Code  string `json:"code"`
	RunID int64  `json:"run_id,omitempty"`
	Sent  int    `json:"sent"`
	Error string `json:"error,omitempty"`
}

// Server turns WebSocket events into dispatcher calls.
type Server struct {
	d        Dispatcher
	log      Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	outcomes dispatcher.Outcomes
	done     chan struct{}

	// endMu serializes run_end so only the first one publishes.
	endMu sync.Mutex
}

// NewServer creates a server feeding d.
func NewServer(d Dispatcher, log Logger) *Server {
	return &Server{
		d:    d,
		log:  log,
		done: make(chan struct{}),
	}
}

// Handler serves the event socket and a health probe.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(EventsPath, s.events)
	mux.HandleFunc(HealthPath, s.health)
	return mux
}

// Done is closed once a run_end event has been processed.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Outcomes returns the per-project outcomes of the run_end event, or nil
// before it.
func (s *Server) Outcomes() dispatcher.Outcomes {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcomes
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	select {
	case <-s.done:
		_, _ = w.Write([]byte("done\n"))
	default:
		_, _ = w.Write([]byte("ok\n"))
	}
}

func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warning("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)
	s.log.Debug("adapter connected from %s", r.RemoteAddr)

	// Uploads started by an event must finish even if the adapter hangs up.
	ctx := context.WithoutCancel(r.Context())
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warning("adapter connection lost: %v", err)
			}
			return
		}

		var msg Message
		var reply Reply
		if err := json.Unmarshal(data, &msg); err != nil {
			reply = Reply{Type: ReplyError, Error: fmt.Sprintf("invalid message: %v", err)}
		} else {
			reply = s.handle(ctx, msg)
		}

		if err := conn.WriteJSON(reply); err != nil {
			s.log.Warning("write reply: %v", err)
			return
		}
	}
}

func (s *Server) handle(ctx context.Context, msg Message) Reply {
	reply := Reply{Type: ReplyAck, Event: msg.Type}
	switch msg.Type {
	case EventRunStart:
		if err := s.d.StartTestRun(ctx); err != nil {
			return Reply{Type: ReplyError, Event: msg.Type, Error: err.Error()}
		}
	case EventTestEnd:
		if msg.Result == nil {
			return Reply{Type: ReplyError, Event: msg.Type, Error: `missing "result"`}
		}
		s.d.AddResult(ctx, *msg.Result)
	case EventRunEnd:
		outcomes, ok := s.endRun(ctx)
		if !ok {
			return Reply{Type: ReplyError, Event: msg.Type, Error: dispatcher.ErrCompleted.Error()}
		}
		for _, oc := range outcomes {
			pr := ProjectReport{Code: oc.Code, RunID: oc.RunID, Sent: oc.Sent}
			if oc.Err != nil {
				pr.Error = oc.Err.Error()
			}
			reply.Projects = append(reply.Projects, pr)
		}
		if err := outcomes.Err(); err != nil {
			reply.Type = ReplyError
			reply.Error = err.Error()
		}
		s.log.Info("run ended, %d project(s) reported", len(outcomes))
	default:
		return Reply{Type: ReplyError, Event: msg.Type, Error: fmt.Sprintf("unknown event type %q", msg.Type)}
	}
	return reply
}

// endRun publishes the run once. It reports false when an earlier run_end
// already did.
func (s *Server) endRun(ctx context.Context) (dispatcher.Outcomes, bool) {
	s.endMu.Lock()
	defer s.endMu.Unlock()

	select {
	case <-s.done:
		return nil, false
	default:
	}
	outcomes := s.d.Publish(ctx)
	s.mu.Lock()
	s.outcomes = outcomes
	s.mu.Unlock()
	close(s.done)
	return outcomes, true
}
