// Package mock provides an in-memory transport for local testing and
// integration. It implements the transports.Transport interface without
// any network dependency.
package mock

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/MananS02/Interview/pkg/protocol"
	"github.com/MananS02/Interview/pkg/transports"
)

type Sent struct {
	SessionID string
	Msg       protocol.Outbound
}

type Transport struct {
	recvCh chan transports.Packet
	sentCh chan Sent
	closed atomic.Bool
	mu     sync.Mutex
}

func New() *Transport {
	return &Transport{
		recvCh: make(chan transports.Packet, 256),
		sentCh: make(chan Sent, 256),
	}
}

func (t *Transport) Name() string { return "mock" }

func (t *Transport) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		<-ctx.Done()
		_ = t.Stop()
	}()
	return nil
}

func (t *Transport) Stop() error {
	if t.closed.CompareAndSwap(false, true) {
		t.mu.Lock()
		close(t.recvCh)
		close(t.sentCh)
		t.mu.Unlock()
	}
	return nil
}

func (t *Transport) Recv() <-chan transports.Packet { return t.recvCh }

func (t *Transport) Send(sessionID string, msg protocol.Outbound) error {
	if t.closed.Load() {
		return nil
	}
	select {
	case t.sentCh <- Sent{SessionID: sessionID, Msg: msg}:
	default:
	}
	return nil
}

// Push injects an inbound packet into the transport.
func (t *Transport) Push(p transports.Packet) {
	if t.closed.Load() {
		return
	}
	select {
	case t.recvCh <- p:
	default:
	}
}

// PushMsg injects an inbound protocol message for a session.
func (t *Transport) PushMsg(sessionID string, msg protocol.Inbound) {
	t.Push(transports.Packet{SessionID: sessionID, Kind: transports.PacketMessage, Msg: msg})
}

// Sent exposes outbound messages for inspection.
func (t *Transport) Sent() <-chan Sent { return t.sentCh }

var _ transports.Transport = (*Transport)(nil)
