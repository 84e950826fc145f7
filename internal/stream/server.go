package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/normanking/facemetrics/internal/au"
	"github.com/normanking/facemetrics/internal/bus"
	"github.com/normanking/facemetrics/internal/engine"
	"github.com/normanking/facemetrics/internal/session"
)

// Config configures the stream server.
type Config struct {
	Host           string
	Port           int
	ReadLimitBytes int64
}

// Server accepts browser connections and runs one analysis pipeline per
// connection. The connection's read loop is the single frame pump, so each
// engine keeps its single-owner, synchronous processing model.
type Server struct {
	cfg       Config
	engineCfg engine.Config
	eventBus  *bus.EventBus
	logger    zerolog.Logger
	upgrader  websocket.Upgrader

	mu         sync.Mutex
	httpServer *http.Server
}

// NewServer creates a stream server.
func NewServer(cfg Config, engineCfg engine.Config, eventBus *bus.EventBus, logger zerolog.Logger) *Server {
	if cfg.ReadLimitBytes <= 0 {
		cfg.ReadLimitBytes = 1 << 20
	}
	return &Server{
		cfg:       cfg,
		engineCfg: engineCfg,
		eventBus:  eventBus,
		logger:    logger.With().Str("component", "stream").Logger(),
		upgrader: websocket.Upgrader{
			// The host page is served by the dashboard layer, not by us.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// SetEngineConfig swaps the pipeline config used for connections accepted
// from now on. Live connections keep the config they were created with.
func (s *Server) SetEngineConfig(cfg engine.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engineCfg = cfg
}

func (s *Server) currentEngineConfig() engine.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engineCfg
}

// Start begins listening. It returns immediately; the listener is shut
// down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.wsHandler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	server := &http.Server{Addr: addr, Handler: mux}

	s.mu.Lock()
	s.httpServer = server
	s.mu.Unlock()

	go func() {
		s.logger.Info().Str("addr", addr).Msg("Stream server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Stream server error")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	return nil
}

func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn.SetReadLimit(s.cfg.ReadLimitBytes)

	remote := r.RemoteAddr
	s.logger.Info().Str("remote", remote).Msg("Client connected")
	s.eventBus.Publish(bus.Event{
		Type: bus.EventTypeClientConnected,
		Data: map[string]any{"remote": remote},
	})

	c := newConnection(conn, s.currentEngineConfig(), s.eventBus, s.logger)
	c.run()

	conn.Close()
	s.logger.Info().Str("remote", remote).Msg("Client disconnected")
	s.eventBus.Publish(bus.Event{
		Type: bus.EventTypeClientDisconnected,
		Data: map[string]any{"remote": remote},
	})
}

// connection owns one engine/recorder pair for the life of a WebSocket
// connection. All reads, processing and writes happen on the read loop
// goroutine.
type connection struct {
	conn     *websocket.Conn
	eng      *engine.Engine
	rec      *session.Recorder
	eventBus *bus.EventBus
	logger   zerolog.Logger
}

func newConnection(conn *websocket.Conn, engineCfg engine.Config, eventBus *bus.EventBus, logger zerolog.Logger) *connection {
	c := &connection{
		conn:     conn,
		eventBus: eventBus,
		logger:   logger,
	}
	c.eng = engine.New(engineCfg, logger)
	c.rec = session.NewRecorder(engineCfg.Thresholds, logger)

	c.eng.OnFrame(func(frame au.Frame) {
		c.rec.AppendFrame(frame)
		c.send(FrameMessage{Type: MsgAUFrame, Frame: frame})
		if c.eng.IsCalibrating() {
			c.send(BaselineProgressMessage{Type: MsgBaselineProgress, Progress: c.eng.BaselineProgress()})
		}
	})
	c.eng.OnEvent(func(event au.Event) {
		c.rec.AppendEvent(event)
		c.send(EventMessage{Type: MsgAUEvent, Event: event})
		c.eventBus.Publish(bus.Event{
			Type: busEventType(event.Type),
			Data: map[string]any{"au": event.AU.String(), "message": event.Message},
		})
	})
	c.eng.OnBaseline(func(values au.Values) {
		c.rec.SetBaseline(values)
		c.send(BaselineSetMessage{Type: MsgBaselineSet, Baseline: values})
		c.eventBus.Publish(bus.Event{
			Type: bus.EventTypeBaselineSet,
			Data: map[string]any{"baseline": values.ToMap()},
		})
	})

	return c
}

func (c *connection) run() {
	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn().Err(err).Msg("Read failed")
			}
			return
		}

		if !c.handle(msg) {
			return
		}
	}
}

// handle processes one message; returns false to drop the connection.
func (c *connection) handle(msg ClientMessage) bool {
	switch msg.Type {
	case MsgFrame:
		ts := time.Now()
		if msg.Timestamp > 0 {
			ts = time.UnixMilli(msg.Timestamp)
		}
		if _, err := c.eng.ProcessFrame(msg.Points, ts); err != nil {
			// Schema mismatch is fatal for the connection: reported once,
			// not once per frame.
			c.send(ErrorMessage{Type: MsgError, Message: err.Error()})
			c.eventBus.Publish(bus.Event{
				Type: bus.EventTypeStreamError,
				Data: map[string]any{"error": err.Error()},
			})
			return !errors.Is(err, au.ErrLandmarkCount)
		}

	case MsgStartSession:
		c.eng.Reset()
		id := c.rec.Start(time.Now())
		if b := c.eng.Baseline(); b != nil {
			c.rec.SetBaseline(*b)
		}
		c.send(SessionStartedMessage{Type: MsgSessionStarted, SessionID: id})
		c.eventBus.Publish(bus.Event{
			Type: bus.EventTypeSessionStarted,
			Data: map[string]any{"session_id": id},
		})

	case MsgStopSession:
		summary, err := c.rec.Stop(time.Now())
		if err != nil {
			c.send(ErrorMessage{Type: MsgError, Message: err.Error()})
			return true
		}
		data := c.rec.Data()
		c.send(SummaryMessage{Type: MsgSessionSummary, SessionID: data.SessionID, Summary: *summary})
		c.eventBus.Publish(bus.Event{
			Type: bus.EventTypeSessionStopped,
			Data: map[string]any{"session_id": data.SessionID, "frames": summary.TotalFrames},
		})

	case MsgClearSession:
		c.rec.Clear()
		c.send(AckMessage{Type: MsgAck, Of: MsgClearSession})
		c.eventBus.Publish(bus.Event{Type: bus.EventTypeSessionCleared})

	case MsgExportSession:
		doc, err := c.rec.Export()
		if err != nil {
			c.send(ErrorMessage{Type: MsgError, Message: err.Error()})
			return true
		}
		c.send(ExportMessage{Type: MsgSessionExport, Document: doc})
		c.eventBus.Publish(bus.Event{
			Type: bus.EventTypeSessionExport,
			Data: map[string]any{"bytes": len(doc)},
		})

	case MsgStartBaseline:
		c.eng.StartBaselineRecording()
		c.send(AckMessage{Type: MsgAck, Of: MsgStartBaseline})
		c.eventBus.Publish(bus.Event{Type: bus.EventTypeBaselineStarted})

	case MsgResetBaseline:
		c.eng.ResetBaseline()
		c.rec.ClearBaseline()
		c.send(AckMessage{Type: MsgAck, Of: MsgResetBaseline})
		c.eventBus.Publish(bus.Event{Type: bus.EventTypeBaselineReset})

	default:
		c.send(ErrorMessage{Type: MsgError, Message: fmt.Sprintf("unknown message type %q", msg.Type)})
	}

	return true
}

func (c *connection) send(v any) {
	if err := c.conn.WriteJSON(v); err != nil {
		c.logger.Debug().Err(err).Msg("Write failed")
	}
}

func busEventType(t au.EventType) bus.EventType {
	switch t {
	case au.EventOnset:
		return bus.EventTypeAUOnset
	case au.EventOffset:
		return bus.EventTypeAUOffset
	case au.EventRapid:
		return bus.EventTypeRapidChange
	default:
		return bus.EventTypeDeviation
	}
}
