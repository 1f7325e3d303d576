// Package livekit implements the primary low-latency transport: one media
// room per session, with protocol messages exchanged as reliable data
// packets between the interviewer participant and the candidate.
package livekit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/livekit/protocol/auth"
	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"

	"github.com/MananS02/Interview/pkg/errorsx"
	"github.com/MananS02/Interview/pkg/protocol"
	"github.com/MananS02/Interview/pkg/transports"
)

type Config struct {
	URL             string `mapstructure:"url"`
	APIKey          string `mapstructure:"api_key"`
	APISecret       string `mapstructure:"api_secret"`
	Identity        string `mapstructure:"identity"`
	EmptyTimeoutS   uint32 `mapstructure:"empty_timeout_s"`
	MaxParticipants uint32 `mapstructure:"max_participants"`
	TokenTTL        time.Duration
}

func (c Config) withDefaults() Config {
	if c.Identity == "" {
		c.Identity = "interviewer"
	}
	if c.EmptyTimeoutS == 0 {
		c.EmptyTimeoutS = 300
	}
	if c.MaxParticipants == 0 {
		c.MaxParticipants = 2
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = time.Hour
	}
	return c
}

type Transport struct {
	cfg        Config
	roomClient *lksdk.RoomServiceClient
	recvCh     chan transports.Packet

	mu    sync.Mutex
	rooms map[string]*lksdk.Room

	ctx      context.Context
	cancel   context.CancelFunc
	draining atomic.Bool
}

func New(cfg Config) *Transport {
	cfg = cfg.withDefaults()
	return &Transport{
		cfg:    cfg,
		recvCh: make(chan transports.Packet, 512),
		rooms:  make(map[string]*lksdk.Room),
	}
}

func (t *Transport) Name() string { return "livekit" }

func (t *Transport) Recv() <-chan transports.Packet { return t.recvCh }

func (t *Transport) ReadyFields() map[string]any {
	return map[string]any{"url": t.cfg.URL}
}

func (t *Transport) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	t.ctx, t.cancel = context.WithCancel(ctx)
	t.roomClient = lksdk.NewRoomServiceClient(apiEndpoint(t.cfg.URL), t.cfg.APIKey, t.cfg.APISecret)
	return nil
}

func (t *Transport) Stop() error {
	t.draining.Store(true)
	if t.cancel != nil {
		t.cancel()
	}
	t.mu.Lock()
	for _, room := range t.rooms {
		room.Disconnect()
	}
	t.rooms = make(map[string]*lksdk.Room)
	t.mu.Unlock()
	return nil
}

// ProvisionRoom creates the session's room, joins it as the interviewer
// participant, and returns a join token for the candidate.
func (t *Transport) ProvisionRoom(ctx context.Context, sessionID string) (string, error) {
	_, err := t.roomClient.CreateRoom(ctx, &livekit.CreateRoomRequest{
		Name:            sessionID,
		EmptyTimeout:    t.cfg.EmptyTimeoutS,
		MaxParticipants: t.cfg.MaxParticipants,
	})
	if err != nil {
		return "", fmt.Errorf("create room: %w", err)
	}

	room, err := t.join(sessionID)
	if err != nil {
		_, _ = t.roomClient.DeleteRoom(ctx, &livekit.DeleteRoomRequest{Room: sessionID})
		return "", err
	}
	t.mu.Lock()
	t.rooms[sessionID] = room
	t.mu.Unlock()

	token, err := t.candidateToken(sessionID)
	if err != nil {
		return "", err
	}
	slog.Info("livekit_room_provisioned", slog.String("session_id", sessionID))
	return token, nil
}

func (t *Transport) TeardownRoom(ctx context.Context, sessionID string) error {
	t.mu.Lock()
	room := t.rooms[sessionID]
	delete(t.rooms, sessionID)
	t.mu.Unlock()
	if room != nil {
		room.Disconnect()
	}
	_, err := t.roomClient.DeleteRoom(ctx, &livekit.DeleteRoomRequest{Room: sessionID})
	return err
}

func (t *Transport) join(sessionID string) (*lksdk.Room, error) {
	cb := &lksdk.RoomCallback{
		ParticipantCallback: lksdk.ParticipantCallback{
			OnDataPacket: func(data lksdk.DataPacket, params lksdk.DataReceiveParams) {
				user, ok := data.(*lksdk.UserDataPacket)
				if !ok {
					return
				}
				msg, err := protocol.Decode(user.Payload)
				if err != nil {
					slog.Warn("livekit_decode_error",
						slog.String("session_id", sessionID),
						slog.String("error", err.Error()))
					return
				}
				t.deliver(transports.Packet{SessionID: sessionID, Kind: transports.PacketMessage, Msg: msg})
			},
		},
		OnParticipantConnected: func(p *lksdk.RemoteParticipant) {
			t.deliver(transports.Packet{SessionID: sessionID, Kind: transports.PacketConnected})
		},
		OnParticipantDisconnected: func(p *lksdk.RemoteParticipant) {
			if !t.draining.Load() {
				t.deliver(transports.Packet{SessionID: sessionID, Kind: transports.PacketDisconnected})
			}
		},
	}
	room, err := lksdk.ConnectToRoom(t.cfg.URL, lksdk.ConnectInfo{
		APIKey:              t.cfg.APIKey,
		APISecret:           t.cfg.APISecret,
		RoomName:            sessionID,
		ParticipantIdentity: t.cfg.Identity,
	}, cb)
	if err != nil {
		return nil, fmt.Errorf("join room: %w", err)
	}
	return room, nil
}

func (t *Transport) Send(sessionID string, msg protocol.Outbound) error {
	t.mu.Lock()
	room := t.rooms[sessionID]
	t.mu.Unlock()
	if room == nil {
		return errorsx.New(fmt.Sprintf("no room for session %s", sessionID), errorsx.ReasonTransportSend)
	}
	payload, err := protocol.Encode(msg)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonTransportSend)
	}
	if err := room.LocalParticipant.PublishDataPacket(lksdk.UserData(payload), lksdk.WithDataPublishReliable(true)); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonTransportSend)
	}
	return nil
}

func (t *Transport) candidateToken(sessionID string) (string, error) {
	canPublish := true
	grant := &auth.VideoGrant{
		RoomJoin:       true,
		Room:           sessionID,
		CanPublish:     &canPublish,
		CanSubscribe:   &canPublish,
		CanPublishData: &canPublish,
	}
	at := auth.NewAccessToken(t.cfg.APIKey, t.cfg.APISecret).
		SetVideoGrant(grant).
		SetIdentity("candidate-" + sessionID).
		SetValidFor(t.cfg.TokenTTL)
	return at.ToJWT()
}

func (t *Transport) deliver(p transports.Packet) {
	if t.draining.Load() {
		return
	}
	select {
	case t.recvCh <- p:
	default:
		slog.Warn("livekit_recv_channel_full", slog.String("session_id", p.SessionID))
	}
}

// apiEndpoint converts a websocket room URL into the HTTP API endpoint.
func apiEndpoint(url string) string {
	url = strings.Replace(url, "wss://", "https://", 1)
	return strings.Replace(url, "ws://", "http://", 1)
}

var _ transports.Transport = (*Transport)(nil)
var _ transports.RoomProvisioner = (*Transport)(nil)
