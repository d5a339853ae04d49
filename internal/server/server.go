// Package server bridges the dashboard to an external chart widget over a
// WebSocket: it pushes the current series and selection, and forwards the
// widget's click and hover events.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/lotas/matdash/internal/applog"
	"github.com/lotas/matdash/internal/chart"
	"github.com/lotas/matdash/internal/types"
	"nhooyr.io/websocket"
)

// DefaultPort is the chart bridge port when none is configured.
const DefaultPort = 19292

// Incoming message types.
const (
	TypeSeriesClick = "series.click"
	TypeSeriesHover = "series.hover"
	TypeReady       = "ready"
)

// IncomingMsg is a message from the chart widget to the TUI.
type IncomingMsg struct {
	Type string         `json:"type"`
	Key  types.GroupKey `json:"key"`
}

// RenderMsg is the chart state pushed to the widget. A null selection means
// every series is shown.
type RenderMsg struct {
	Action    string                    `json:"action"`
	Series    []chart.Series            `json:"series"`
	Selection []types.GroupKey          `json:"selection"`
	Hover     types.GroupKey            `json:"hover,omitempty"`
	Labels    map[types.GroupKey]string `json:"labels,omitempty"`
}

// NewRender builds a render message. series is never sent as null.
func NewRender(series []chart.Series, selection []types.GroupKey, hover types.GroupKey, labels map[types.GroupKey]string) RenderMsg {
	if series == nil {
		series = []chart.Series{}
	}
	return RenderMsg{
		Action:    "render",
		Series:    series,
		Selection: selection,
		Hover:     hover,
		Labels:    labels,
	}
}

// Server manages the WebSocket connection to the chart widget.
type Server struct {
	port    int
	msgs    chan IncomingMsg
	mu      sync.Mutex
	conn    *websocket.Conn
	connCtx context.Context
	last    []byte // most recent render, replayed to new connections
}

// New creates a new Server. Port 0 means the caller manages the listener.
func New(port int) *Server {
	return &Server{
		port: port,
		msgs: make(chan IncomingMsg, 64),
	}
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// Messages returns the channel of incoming messages from the widget.
func (s *Server) Messages() <-chan IncomingMsg {
	return s.msgs
}

// Connected reports whether a widget is connected.
func (s *Server) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Send pushes chart state to the connected widget. The message is kept and
// replayed when a widget connects later.
func (s *Server) Send(msg RenderMsg) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal render: %w", err)
	}

	s.mu.Lock()
	s.last = data
	conn := s.conn
	ctx := s.connCtx
	s.mu.Unlock()

	if conn == nil {
		return nil
	}

	applog.Debug("ws.send", "action", msg.Action, "series", len(msg.Series), "selection", len(msg.Selection))
	return conn.Write(ctx, websocket.MessageText, data)
}

// Handler returns an http.Handler that accepts WebSocket upgrades.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			log.Printf("websocket accept: %v", err)
			applog.Error("ws.accept", err)
			return
		}

		conn.SetReadLimit(1 << 20)

		ctx := r.Context()
		s.mu.Lock()
		if s.conn != nil {
			applog.Info("ws.replaced")
			s.conn.CloseNow()
		}
		s.conn = conn
		s.connCtx = ctx
		last := s.last
		s.mu.Unlock()

		applog.Info("ws.connected", "remote", r.RemoteAddr)

		defer func() {
			s.mu.Lock()
			if s.conn == conn {
				s.conn = nil
				s.connCtx = nil
			}
			s.mu.Unlock()
			conn.CloseNow()
			applog.Info("ws.disconnected")
		}()

		if last != nil {
			if err := conn.Write(ctx, websocket.MessageText, last); err != nil {
				applog.Error("ws.replay", err)
				return
			}
		}

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			msg, err := ParseIncoming(data)
			if err != nil {
				applog.Error("ws.parse", err)
				continue
			}
			applog.Debug("ws.recv", "type", msg.Type, "key", string(msg.Key))
			select {
			case s.msgs <- msg:
			default:
			}
		}
	})
}

// ListenAndServe starts the WebSocket server on the configured port.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/", s.Handler())

	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	applog.Info("server.start", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	return srv.ListenAndServe()
}
