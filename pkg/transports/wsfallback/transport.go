// Package wsfallback implements the duplex-socket fallback transport. It is
// used when the primary data channel is unavailable, and also hosts the
// health and metrics endpoints.
package wsfallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MananS02/Interview/pkg/errorsx"
	"github.com/MananS02/Interview/pkg/frames"
	"github.com/MananS02/Interview/pkg/protocol"
	"github.com/MananS02/Interview/pkg/transports"
)

type Config struct {
	ServerAddr     string   `mapstructure:"server_addr"`
	WebsocketPath  string   `mapstructure:"ws_path"`
	SampleRate     int      `mapstructure:"sample_rate"`
	AllowAnyOrigin bool     `mapstructure:"allow_any_origin"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (c Config) withDefaults() Config {
	if c.ServerAddr == "" {
		c.ServerAddr = ":8080"
	}
	if c.WebsocketPath == "" {
		c.WebsocketPath = "/ws/interview"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 16000
	}
	if !c.AllowAnyOrigin && len(c.AllowedOrigins) == 0 {
		c.AllowAnyOrigin = true
	}
	return c
}

type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) writeJSON(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

func (c *conn) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.Close()
}

type Transport struct {
	cfg      Config
	server   *http.Server
	upgrader websocket.Upgrader
	recvCh   chan transports.Packet
	pts      *frames.PTSGen

	mu       sync.Mutex
	conns    map[string]*conn
	traceIDs map[string]string
	seen     map[string]bool

	draining atomic.Bool
}

func New(cfg Config) *Transport {
	cfg = cfg.withDefaults()
	t := &Transport{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		recvCh:   make(chan transports.Packet, 512),
		pts:      frames.NewPTSGen(),
		conns:    make(map[string]*conn),
		traceIDs: make(map[string]string),
		seen:     make(map[string]bool),
	}
	t.upgrader.CheckOrigin = t.checkOrigin
	return t
}

func (t *Transport) Name() string { return "wsfallback" }

func (t *Transport) Recv() <-chan transports.Packet { return t.recvCh }

func (t *Transport) ReadyFields() map[string]any {
	return map[string]any{
		"server_addr": t.cfg.ServerAddr,
		"ws_path":     t.cfg.WebsocketPath,
	}
}

func (t *Transport) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mux := http.NewServeMux()
	mux.Handle(t.cfg.WebsocketPath, t)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	t.server = &http.Server{
		Addr:              t.cfg.ServerAddr,
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           mux,
	}
	go func() {
		<-ctx.Done()
		_ = t.server.Close()
	}()
	go func() {
		if err := t.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("wsfallback_server_error", "error", err.Error())
		}
	}()
	return nil
}

func (t *Transport) Stop() error {
	t.draining.Store(true)
	if t.server != nil {
		_ = t.server.Close()
	}
	t.mu.Lock()
	for _, c := range t.conns {
		_ = c.close()
	}
	t.conns = make(map[string]*conn)
	t.mu.Unlock()
	return nil
}

func (t *Transport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if t.draining.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "session_id required", http.StatusBadRequest)
		return
	}
	ws, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	traceID, reconnect := t.attach(sessionID, ws)
	kind := transports.PacketConnected
	if reconnect {
		kind = transports.PacketReconnected
	}
	t.deliver(transports.Packet{SessionID: sessionID, TraceID: traceID, Kind: kind})

	slog.Info("wsfallback_attached",
		slog.String("session_id", sessionID),
		slog.Bool("reconnect", reconnect))

	for {
		msgType, raw, err := ws.ReadMessage()
		if err != nil {
			break
		}
		switch msgType {
		case websocket.BinaryMessage:
			// Raw PCM16LE microphone audio for the recognition stream.
			af := frames.NewAudioFrameFromPool(sessionID, t.pts.Next(sessionID), raw, t.cfg.SampleRate, 1, map[string]string{
				frames.MetaTraceID: traceID,
				frames.MetaSource:  "transport",
			})
			t.deliver(transports.Packet{SessionID: sessionID, TraceID: traceID, Kind: transports.PacketAudio, Audio: af})
		case websocket.TextMessage:
			msg, err := protocol.Decode(raw)
			if err != nil {
				slog.Warn("wsfallback_decode_error",
					slog.String("session_id", sessionID),
					slog.String("error", err.Error()))
				continue
			}
			t.deliver(transports.Packet{SessionID: sessionID, TraceID: traceID, Kind: transports.PacketMessage, Msg: msg})
		}
	}

	t.detach(sessionID, ws)
	if !t.draining.Load() {
		t.deliver(transports.Packet{SessionID: sessionID, TraceID: traceID, Kind: transports.PacketDisconnected})
	}
	slog.Info("wsfallback_detached", slog.String("session_id", sessionID))
}

func (t *Transport) Send(sessionID string, msg protocol.Outbound) error {
	t.mu.Lock()
	c := t.conns[sessionID]
	t.mu.Unlock()
	if c == nil {
		return errorsx.New(fmt.Sprintf("no connection for session %s", sessionID), errorsx.ReasonTransportSend)
	}
	payload, err := protocol.Encode(msg)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonTransportSend)
	}
	if err := c.writeJSON(payload); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonTransportSend)
	}
	return nil
}

func (t *Transport) attach(sessionID string, ws *websocket.Conn) (traceID string, reconnect bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if old := t.conns[sessionID]; old != nil {
		_ = old.close()
	}
	reconnect = t.seen[sessionID]
	t.seen[sessionID] = true
	traceID = t.traceIDs[sessionID]
	if traceID == "" {
		traceID = uuid.NewString()
		t.traceIDs[sessionID] = traceID
	}
	t.conns[sessionID] = &conn{ws: ws}
	return traceID, reconnect
}

func (t *Transport) detach(sessionID string, ws *websocket.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur := t.conns[sessionID]; cur != nil && cur.ws == ws {
		delete(t.conns, sessionID)
	}
}

func (t *Transport) deliver(p transports.Packet) {
	if t.draining.Load() {
		return
	}
	select {
	case t.recvCh <- p:
	default:
		slog.Warn("wsfallback_recv_channel_full", slog.String("session_id", p.SessionID))
	}
}

func (t *Transport) checkOrigin(r *http.Request) bool {
	if t.cfg.AllowAnyOrigin {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range t.cfg.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

var _ transports.Transport = (*Transport)(nil)
