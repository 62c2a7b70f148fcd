package adapterudp

import (
	"context"
	"encoding/json"
	"net"
	"testing"

	"arena/adapter/codec"
	"arena/application"
	"arena/domain"
	"arena/gamemap"
	"arena/geometry"
)

type nopTransport struct{}

func (nopTransport) Read(ctx context.Context) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (nopTransport) Write(context.Context, []byte) error { return nil }
func (nopTransport) Close(int32, string) error           { return nil }

func newTestServer(t *testing.T) (*Server, *application.RoomPool) {
	t.Helper()
	level, err := gamemap.Build(gamemap.DefaultArena())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	cfg := application.DefaultConfig()
	cfg.RoomCount = 1
	pool := application.NewRoomPool(cfg, level)

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Skipf("cannot open udp socket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewServer(conn, pool, codec.JSON{}), pool
}

func join(t *testing.T, pool *application.RoomPool, name string) (*application.Room, *application.Player) {
	t.Helper()
	room, err := pool.Get(1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	conn := domain.NewConnection(domain.NewSession(), nopTransport{})
	p, _, err := room.ConnectPlayer(context.Background(), name, conn)
	if err != nil {
		t.Fatalf("ConnectPlayer: %v", err)
	}
	return room, p
}

func marshalCommand(t *testing.T, cmd domain.Command) []byte {
	t.Helper()
	data, err := json.Marshal(cmd)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestServer_FirstDatagramBindsPeer(t *testing.T) {
	s, pool := newTestServer(t)
	room, alice := join(t, pool, "alice")
	_, bob := join(t, pool, "bob")

	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40001}
	target := geometry.Vector{X: alice.Position().X, Y: alice.Position().Y}
	data := marshalCommand(t, domain.Command{
		Type:      domain.CommandMove,
		SessionID: alice.SessionID(),
		Move:      &domain.MoveCommand{Position: target, Direction: geometry.Vector{X: 1, Y: 0}},
	})
	s.handleDatagram(context.Background(), addr, data)

	if alice.Datagram() == nil {
		t.Fatal("first datagram must attach the return link")
	}
	room.FlushMoves(context.Background())
	ev, ok := bob.Outbox().Poll(0)
	if !ok || ev.Type != domain.EventMove {
		t.Fatalf("bob events = (%+v, %v), want the relayed move", ev, ok)
	}
}

func TestServer_UnknownSessionIgnored(t *testing.T) {
	s, pool := newTestServer(t)
	_, bob := join(t, pool, "bob")

	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40002}
	data := marshalCommand(t, domain.Command{
		Type:      domain.CommandMove,
		SessionID: "no-such-session",
		Move:      &domain.MoveCommand{},
	})
	s.handleDatagram(context.Background(), addr, data)

	s.mu.Lock()
	bound := len(s.peers)
	s.mu.Unlock()
	if bound != 0 {
		t.Fatalf("peers = %d, unknown session must not bind", bound)
	}
	room, _ := pool.Get(1)
	room.FlushMoves(context.Background())
	if ev, ok := bob.Outbox().Poll(0); ok {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestServer_SpoofedIdentityOverridden(t *testing.T) {
	s, pool := newTestServer(t)
	_, alice := join(t, pool, "alice")
	_, bob := join(t, pool, "bob")

	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40003}
	data := marshalCommand(t, domain.Command{
		Type:      domain.CommandChat,
		Sequence:  1,
		SessionID: alice.SessionID(),
		// ワイヤ上でbobを騙っても、紐付けの身元で上書きされる
		PlayerID: bob.ID,
		Chat:     &domain.ChatCommand{Text: "hello"},
	})
	s.handleDatagram(context.Background(), addr, data)

	var chat *domain.ChatEvent
	for {
		ev, ok := bob.Outbox().Poll(0)
		if !ok {
			break
		}
		if ev.Type == domain.EventChat {
			chat = ev.Chat
		}
	}
	if chat == nil || chat.PlayerID != alice.ID {
		t.Fatalf("chat = %+v, want sender alice %d", chat, alice.ID)
	}

	// ackは元コマンドと同じ経路（データグラム）で返送される
	var ack *domain.Event
	for {
		ev, ok := alice.Outbox().Poll(0)
		if !ok {
			break
		}
		if ev.Type == domain.EventAck {
			ack = &ev
		}
	}
	if ack == nil || !ack.ViaDatagram {
		t.Fatalf("ack = %+v, want datagram-routed ack", ack)
	}
}
