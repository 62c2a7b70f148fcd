package reliable

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

// testEvent はテスト用の最小イベント型。
type testEvent struct {
	kind      string
	sequence  uint32
	sessionID string
}

// testValidator は"move"以外をack対象とするバリデータ。
type testValidator struct{}

func (testValidator) IsAckRequired(ev testEvent) bool {
	return ev.kind != "move"
}

func (testValidator) ValidateAckEvent(ev testEvent) error {
	if ev.sequence == 0 {
		return errors.New("missing sequence")
	}
	if ev.sessionID == "" {
		return errors.New("missing session id")
	}
	return nil
}

func eventKey(ev testEvent) string {
	return fmt.Sprintf("%s-%d", ev.sessionID, ev.sequence)
}

func newTestProcessed() *ProcessedEvents[testEvent] {
	return NewProcessedEvents[testEvent](testValidator{}, eventKey)
}

func TestProcessedEvents_MarkThenCheck(t *testing.T) {
	store := newTestProcessed()
	ev := testEvent{kind: "attack", sequence: 1, sessionID: "s1"}

	if store.AlreadyProcessed(ev) {
		t.Fatalf("fresh event reported as processed")
	}
	store.MarkProcessed(ev)
	if !store.AlreadyProcessed(ev) {
		t.Fatalf("marked event not reported as processed")
	}
}

func TestProcessedEvents_MoveEventsExcluded(t *testing.T) {
	store := newTestProcessed()
	ev := testEvent{kind: "move", sequence: 5, sessionID: "s1"}

	store.MarkProcessed(ev)
	if store.AlreadyProcessed(ev) {
		t.Fatalf("move event must never be reported as processed")
	}
	if store.Size() != 0 {
		t.Fatalf("move event must not be stored, size = %d", store.Size())
	}
}

func TestProcessedEvents_TTLExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	store := newTestProcessed().WithClock(func() time.Time { return now })
	ev := testEvent{kind: "chat", sequence: 2, sessionID: "s1"}

	store.MarkProcessed(ev)
	now = now.Add(DefaultTTL - time.Second)
	if !store.AlreadyProcessed(ev) {
		t.Fatalf("event expired before TTL")
	}

	now = now.Add(2 * time.Second)
	if store.AlreadyProcessed(ev) {
		t.Fatalf("event still reported as processed after TTL")
	}
}

func TestProcessedEvents_SweepRemovesExpired(t *testing.T) {
	now := time.Unix(1000, 0)
	store := newTestProcessed().WithClock(func() time.Time { return now })

	store.MarkProcessed(testEvent{kind: "chat", sequence: 1, sessionID: "s1"})
	store.MarkProcessed(testEvent{kind: "chat", sequence: 2, sessionID: "s1"})
	now = now.Add(DefaultTTL + time.Second)
	store.MarkProcessed(testEvent{kind: "chat", sequence: 3, sessionID: "s1"})

	if removed := store.Sweep(); removed != 2 {
		t.Fatalf("sweep removed %d, want 2", removed)
	}
	if store.Size() != 1 {
		t.Fatalf("size after sweep = %d, want 1", store.Size())
	}
}

func TestPendingAcks_RegisterAndAck(t *testing.T) {
	pending := NewPendingAcks[testEvent](testValidator{}, ServerOutboundCapacity)
	ev := testEvent{kind: "spawn", sequence: 7, sessionID: "s1"}

	if err := pending.RequireAck(7, ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pending.Len() != 1 {
		t.Fatalf("len = %d, want 1", pending.Len())
	}

	got, ok := pending.AckReceived(7)
	if !ok || got != ev {
		t.Fatalf("AckReceived = %+v (ok=%v), want original event", got, ok)
	}
	if pending.Len() != 0 {
		t.Fatalf("entry not removed after ack")
	}
}

func TestPendingAcks_MoveEventsNotRegistered(t *testing.T) {
	pending := NewPendingAcks[testEvent](testValidator{}, ServerOutboundCapacity)

	if err := pending.RequireAck(1, testEvent{kind: "move", sequence: 1, sessionID: "s1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pending.Len() != 0 {
		t.Fatalf("move event must not be registered")
	}
}

func TestPendingAcks_RejectsInvalidEvent(t *testing.T) {
	pending := NewPendingAcks[testEvent](testValidator{}, ServerOutboundCapacity)

	if err := pending.RequireAck(0, testEvent{kind: "chat", sessionID: "s1"}); err == nil {
		t.Fatalf("expected error for missing sequence")
	}
	if err := pending.RequireAck(1, testEvent{kind: "chat", sequence: 1}); err == nil {
		t.Fatalf("expected error for missing session id")
	}
}

func TestPendingAcks_CapacityBound(t *testing.T) {
	pending := NewPendingAcks[testEvent](testValidator{}, 2)

	for seq := uint32(1); seq <= 2; seq++ {
		ev := testEvent{kind: "chat", sequence: seq, sessionID: "s1"}
		if err := pending.RequireAck(seq, ev); err != nil {
			t.Fatalf("unexpected error at seq %d: %v", seq, err)
		}
	}

	err := pending.RequireAck(3, testEvent{kind: "chat", sequence: 3, sessionID: "s1"})
	if !errors.Is(err, ErrTooManyPending) {
		t.Fatalf("expected ErrTooManyPending, got %v", err)
	}

	// 既存シーケンスの再登録（再送）は容量に影響しない
	if err := pending.RequireAck(2, testEvent{kind: "chat", sequence: 2, sessionID: "s1"}); err != nil {
		t.Fatalf("re-registering existing sequence failed: %v", err)
	}
}

func TestPendingAcks_BulkCancel(t *testing.T) {
	pending := NewPendingAcks[testEvent](testValidator{}, ServerOutboundCapacity)
	for seq := uint32(1); seq <= 4; seq++ {
		session := "room-1"
		if seq%2 == 0 {
			session = "room-2"
		}
		ev := testEvent{kind: "chat", sequence: seq, sessionID: session}
		if err := pending.RequireAck(seq, ev); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	removed := pending.AckNotRequiredIf(func(ev testEvent) bool {
		return ev.sessionID == "room-1"
	})
	if removed != 2 {
		t.Fatalf("bulk cancel removed %d, want 2", removed)
	}
	if pending.Len() != 2 {
		t.Fatalf("len after bulk cancel = %d, want 2", pending.Len())
	}
}

func TestPendingAcks_EachVisitsAllEntries(t *testing.T) {
	pending := NewPendingAcks[testEvent](testValidator{}, ClientOutboundCapacity)
	for seq := uint32(1); seq <= 3; seq++ {
		ev := testEvent{kind: "chat", sequence: seq, sessionID: "s1"}
		if err := pending.RequireAck(seq, ev); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	pending.AckReceived(2)

	visited := make(map[uint32]string)
	pending.Each(func(seq uint32, ev testEvent) {
		visited[seq] = ev.kind
	})
	if len(visited) != 2 {
		t.Fatalf("visited %d entries, want 2", len(visited))
	}
	for _, seq := range []uint32{1, 3} {
		if visited[seq] != "chat" {
			t.Fatalf("sequence %d not visited", seq)
		}
	}
}

func TestProcessor_DuplicateAppliedOnceAckedTwice(t *testing.T) {
	processed := newTestProcessed()
	processor := NewProcessor[testEvent](testValidator{}, processed)
	ev := testEvent{kind: "attack", sequence: 9, sessionID: "s1"}

	applies, acks := 0, 0
	apply := func(testEvent) error { applies++; return nil }
	onAck := func(testEvent) { acks++ }

	if err := processor.ProcessInput(ev, apply, onAck); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if err := processor.ProcessInput(ev, apply, onAck); err != nil {
		t.Fatalf("duplicate delivery failed: %v", err)
	}

	if applies != 1 {
		t.Errorf("apply invoked %d times, want 1", applies)
	}
	if acks != 2 {
		t.Errorf("onAck invoked %d times, want 2", acks)
	}
}

func TestProcessor_NonAckEventNeverAcked(t *testing.T) {
	processor := NewProcessor[testEvent](testValidator{}, newTestProcessed())
	ev := testEvent{kind: "move", sequence: 1, sessionID: "s1"}

	applies, acks := 0, 0
	err := processor.ProcessInput(ev,
		func(testEvent) error { applies++; return nil },
		func(testEvent) { acks++ })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applies != 1 {
		t.Errorf("apply invoked %d times, want 1", applies)
	}
	if acks != 0 {
		t.Errorf("onAck invoked %d times, want 0", acks)
	}
}

func TestProcessor_AckFiresEvenWhenApplyFails(t *testing.T) {
	processed := newTestProcessed()
	processor := NewProcessor[testEvent](testValidator{}, processed)
	ev := testEvent{kind: "attack", sequence: 3, sessionID: "s1"}

	acks := 0
	applyErr := errors.New("apply failed")
	err := processor.ProcessInput(ev,
		func(testEvent) error { return applyErr },
		func(testEvent) { acks++ })
	if !errors.Is(err, applyErr) {
		t.Fatalf("expected apply error, got %v", err)
	}
	if acks != 1 {
		t.Errorf("onAck invoked %d times, want 1", acks)
	}
	// 適用に失敗したイベントは処理済みにならず、再送で再適用できる
	if processed.AlreadyProcessed(ev) {
		t.Errorf("failed event must not be marked processed")
	}
}
