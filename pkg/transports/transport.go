package transports

import (
	"context"

	"github.com/MananS02/Interview/pkg/frames"
	"github.com/MananS02/Interview/pkg/protocol"
)

// PacketKind tags what a transport delivered for a session.
type PacketKind int

const (
	// PacketMessage carries a decoded protocol message.
	PacketMessage PacketKind = iota
	// PacketAudio carries a chunk of candidate microphone audio.
	PacketAudio
	// PacketConnected signals that a candidate attached to the session.
	PacketConnected
	// PacketDisconnected signals that the channel dropped; the session is
	// suspended, not terminated.
	PacketDisconnected
	// PacketReconnected signals that a candidate re-attached after a drop.
	PacketReconnected
)

func (k PacketKind) String() string {
	switch k {
	case PacketMessage:
		return "message"
	case PacketAudio:
		return "audio"
	case PacketConnected:
		return "connected"
	case PacketDisconnected:
		return "disconnected"
	case PacketReconnected:
		return "reconnected"
	default:
		return "unknown"
	}
}

// Packet is one inbound delivery from a transport.
type Packet struct {
	SessionID string
	TraceID   string
	Kind      PacketKind
	Msg       protocol.Inbound
	Audio     frames.AudioFrame
}

// Transport abstracts the bidirectional candidate channel. One transport
// instance serves many sessions; implementations are responsible for their
// own network lifecycle.
type Transport interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Recv() <-chan Packet
	Send(sessionID string, msg protocol.Outbound) error
}

// RoomProvisioner is implemented by transports that manage per-session
// media rooms (create on session start, tear down on delete).
type RoomProvisioner interface {
	ProvisionRoom(ctx context.Context, sessionID string) (joinToken string, err error)
	TeardownRoom(ctx context.Context, sessionID string) error
}

// ReadyReporter allows transports to expose readiness metadata.
// Implementations are optional and used for informational logging only.
type ReadyReporter interface {
	ReadyFields() map[string]any
}
