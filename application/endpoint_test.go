package application

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"arena/adapter/codec"
	"arena/domain"
	"arena/domain/mocks"
)

// newScriptedTransport は最初のReadで与えたペイロードを1つずつ返し、
// 以後はキャンセルまでブロックするモックを組み立てます。
// 書き込まれたデータはwritesへ流れます。
func newScriptedTransport(t *testing.T, ctrl *gomock.Controller, payloads [][]byte, writes chan []byte) *mocks.MockTransport {
	t.Helper()
	mt := mocks.NewMockTransport(ctrl)
	next := 0
	mt.EXPECT().Read(gomock.Any()).DoAndReturn(func(ctx context.Context) ([]byte, error) {
		if next < len(payloads) {
			data := payloads[next]
			next++
			return data, nil
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}).AnyTimes()
	mt.EXPECT().Write(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, data []byte) error {
		select {
		case writes <- data:
		default:
			t.Error("write channel full")
		}
		return nil
	}).AnyTimes()
	mt.EXPECT().Close(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	return mt
}

func awaitEvent(t *testing.T, writes chan []byte, want domain.EventType) domain.Event {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case data := <-writes:
			var ev domain.Event
			if err := json.Unmarshal(data, &ev); err != nil {
				t.Fatalf("unmarshal written event: %v", err)
			}
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %v on the wire", want)
		}
	}
}

func TestEndpoint_ReadDecodeAndDispatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	room, _ := newTestRoom(t, 4)

	bob, _ := mustJoin(t, room, "bob")

	session := domain.NewSession()
	chat, err := json.Marshal(domain.Command{
		Type:      domain.CommandChat,
		Sequence:  5,
		SessionID: session.ID(),
		// ワイヤ上の身元は偽装されている。接続の身元で上書きされること
		PlayerID: 999,
		Chat:     &domain.ChatCommand{Text: "hello"},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	writes := make(chan []byte, 64)
	mt := newScriptedTransport(t, ctrl, [][]byte{chat}, writes)
	conn := domain.NewConnection(session, mt)
	alice, _, err := room.ConnectPlayer(context.Background(), "alice", conn)
	if err != nil {
		t.Fatalf("ConnectPlayer: %v", err)
	}
	drainOutbox(bob)

	ep := NewEndpoint(room, alice, codec.JSON{}, time.Minute)
	done := make(chan error, 1)
	go func() { done <- ep.Run(context.Background()) }()

	// 送信者へのackがワイヤへ書き出される
	ack := awaitEvent(t, writes, domain.EventAck)
	if ack.Ack.Sequence != 5 {
		t.Fatalf("ack sequence = %d, want 5", ack.Ack.Sequence)
	}

	// 他プレイヤーへは接続の身元でチャットが届く
	deadline := time.Now().Add(3 * time.Second)
	for {
		ev, ok := bob.Outbox().Poll(50 * time.Millisecond)
		if ok && ev.Type == domain.EventChat {
			if ev.Chat.PlayerID != alice.ID {
				t.Fatalf("chat from %d, want connection identity %d", ev.Chat.PlayerID, alice.ID)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("bob never received the chat")
		}
	}

	ep.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("endpoint did not stop")
	}
	if got := room.PlayerCount(); got != 1 {
		t.Fatalf("PlayerCount = %d, want 1 after endpoint shutdown", got)
	}
}

func TestEndpoint_MoveEventsPreferDatagramLink(t *testing.T) {
	ctrl := gomock.NewController(t)
	room, _ := newTestRoom(t, 4)

	streamWrites := make(chan []byte, 64)
	streamT := newScriptedTransport(t, ctrl, nil, streamWrites)
	session := domain.NewSession()
	conn := domain.NewConnection(session, streamT)
	alice, _, err := room.ConnectPlayer(context.Background(), "alice", conn)
	if err != nil {
		t.Fatalf("ConnectPlayer: %v", err)
	}

	dgWrites := make(chan []byte, 64)
	dgT := newScriptedTransport(t, ctrl, nil, dgWrites)
	alice.AttachDatagram(domain.NewConnection(session, dgT))

	ep := NewEndpoint(room, alice, codec.JSON{}, time.Minute)
	go func() { _ = ep.Run(context.Background()) }()
	defer ep.Close()

	move := domain.Event{
		Type:      domain.EventMove,
		EventID:   1,
		SessionID: session.ID(),
		Move:      &domain.MoveEvent{PlayerID: alice.ID},
	}
	if err := alice.Outbox().Offer(move); err != nil {
		t.Fatalf("Offer: %v", err)
	}

	got := awaitEvent(t, dgWrites, domain.EventMove)
	if got.Move.PlayerID != alice.ID {
		t.Fatalf("datagram move for %d, want %d", got.Move.PlayerID, alice.ID)
	}
	select {
	case data := <-streamWrites:
		t.Fatalf("move leaked to the stream transport: %s", data)
	default:
	}
}

func TestEndpoint_IdleConnectionRemoved(t *testing.T) {
	ctrl := gomock.NewController(t)
	room, _ := newTestRoom(t, 4)

	writes := make(chan []byte, 64)
	mt := newScriptedTransport(t, ctrl, nil, writes)
	conn := domain.NewConnection(domain.NewSession(), mt)
	alice, _, err := room.ConnectPlayer(context.Background(), "alice", conn)
	if err != nil {
		t.Fatalf("ConnectPlayer: %v", err)
	}

	ep := NewEndpoint(room, alice, codec.JSON{}, 1*time.Nanosecond)
	done := make(chan error, 1)
	go func() { done <- ep.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("idle endpoint did not stop")
	}
	if got := room.PlayerCount(); got != 0 {
		t.Fatalf("PlayerCount = %d, want 0 after idle removal", got)
	}
}
