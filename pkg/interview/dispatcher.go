package interview

import (
	"context"
	"log/slog"

	"github.com/MananS02/Interview/pkg/errorsx"
	"github.com/MananS02/Interview/pkg/frames"
	"github.com/MananS02/Interview/pkg/protocol"
	"github.com/MananS02/Interview/pkg/transports"
)

// sender fans outbound messages to the primary data channel with the
// duplex socket as fallback: a message is only considered undeliverable
// when both paths fail.
type failoverSender struct {
	primary  transports.Transport
	fallback transports.Transport
}

func (s failoverSender) Send(sessionID string, msg protocol.Outbound) error {
	if s.primary != nil {
		if err := s.primary.Send(sessionID, msg); err == nil {
			return nil
		}
	}
	if s.fallback != nil {
		if err := s.fallback.Send(sessionID, msg); err != nil {
			return errorsx.Wrap(err, errorsx.ReasonTransportSend)
		}
		return nil
	}
	return errorsx.New("no transport available", errorsx.ReasonTransportSend)
}

func (e *Engine) sender() failoverSender {
	return failoverSender{primary: e.primary, fallback: e.fallback}
}

// dispatch routes one transport's inbound packets to their session
// controllers. Packets for an unknown session create it; everything else
// is delivered in arrival order to the session's event queue.
func (e *Engine) dispatch(ctx context.Context, t transports.Transport) {
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-t.Recv():
			if !ok {
				return
			}
			if p.SessionID == "" {
				continue
			}
			e.route(ctx, t, p)
		}
	}
}

func (e *Engine) route(ctx context.Context, t transports.Transport, p transports.Packet) {
	switch p.Kind {
	case transports.PacketConnected:
		if e.registry.Draining() {
			slog.Warn("session_rejected_draining", "session_id", p.SessionID)
			return
		}
		h, created, err := e.registry.GetOrCreate(p.SessionID, p.TraceID)
		if err != nil {
			slog.Error("session_create_failed",
				"session_id", p.SessionID, "error", err.Error())
			return
		}
		if created {
			slog.Info("session_attached",
				"session_id", p.SessionID,
				"transport", t.Name())
			if rp, ok := e.primary.(transports.RoomProvisioner); ok {
				go e.provisionRoom(ctx, rp, p.SessionID)
			}
			return
		}
		// An attach for a session that already exists is a reconnect:
		// resume it in case a disconnect suspended its timers.
		if h != nil {
			h.Controller.HandleReconnect()
		}

	case transports.PacketMessage:
		h, _, err := e.registry.GetOrCreate(p.SessionID, p.TraceID)
		if err != nil || h == nil {
			return
		}
		h.Controller.HandleMessage(p.Msg)

	case transports.PacketAudio:
		recognizer := e.recognizer(p.SessionID)
		if recognizer == nil {
			return
		}
		// SendAudio copies or encodes the payload before returning, so the
		// pooled buffer can be recycled here.
		err := recognizer.SendAudio(p.Audio)
		frames.ReleaseAudioFrame(p.Audio)
		if err != nil {
			slog.Warn("recognizer_send_failed",
				"session_id", p.SessionID,
				"reason", string(errorsx.ReasonRecognitionSend),
				"error", err.Error())
		}

	case transports.PacketDisconnected:
		if h, ok := e.registry.Get(p.SessionID); ok {
			h.Controller.HandleDisconnect()
		}

	case transports.PacketReconnected:
		if h, ok := e.registry.Get(p.SessionID); ok {
			h.Controller.HandleReconnect()
		}
	}
}

func (e *Engine) provisionRoom(ctx context.Context, rp transports.RoomProvisioner, sessionID string) {
	token, err := rp.ProvisionRoom(ctx, sessionID)
	if err != nil {
		slog.Error("room_provision_failed",
			"session_id", sessionID, "error", err.Error())
		return
	}
	// The join token reaches the candidate through the session-creation
	// surface, which lives outside this service.
	slog.Info("room_provisioned",
		"session_id", sessionID,
		"token_length", len(token))
}
