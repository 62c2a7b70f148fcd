package codec

import (
	"testing"

	"arena/domain"
	"arena/geometry"
)

func TestJSON_CommandRoundTrip(t *testing.T) {
	c := JSON{}
	cmd := domain.Command{
		Type:      domain.CommandAttack,
		Sequence:  12,
		SessionID: "session-1",
		PlayerID:  3,
		Attack:    &domain.AttackCommand{VictimID: 7, Weapon: 1},
	}
	ev := domain.Event{
		Type:      domain.EventChat,
		EventID:   44,
		SessionID: "session-1",
		Chat:      &domain.ChatEvent{PlayerID: 3, Name: "alice", Text: "hi"},
	}

	data, err := c.Encode(ev)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Encode returned empty payload")
	}

	// コマンドはクライアントが同じ形式で送る
	raw := []byte(`{"Type":3,"Sequence":12,"SessionID":"session-1","PlayerID":3,"Attack":{"VictimID":7,"Weapon":1}}`)
	got, err := c.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Type != cmd.Type || got.Sequence != cmd.Sequence || got.SessionID != cmd.SessionID {
		t.Fatalf("decoded = %+v, want %+v", got, cmd)
	}
	if got.Attack == nil || got.Attack.VictimID != 7 {
		t.Fatalf("decoded attack = %+v", got.Attack)
	}
}

func TestJSON_DecodeMalformed(t *testing.T) {
	c := JSON{}
	if _, err := c.Decode([]byte(`{not json`)); err == nil {
		t.Fatal("expected an error for malformed input")
	}
}

func TestJSON_DecodeMoveCoordinates(t *testing.T) {
	c := JSON{}
	raw := []byte(`{"Type":2,"SessionID":"s","Move":{"Position":{"X":1.5,"Y":-2.5},"Direction":{"X":1,"Y":0}}}`)
	cmd, err := c.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := geometry.Vector{X: 1.5, Y: -2.5}
	if cmd.Move == nil || cmd.Move.Position != want {
		t.Fatalf("move = %+v, want position %+v", cmd.Move, want)
	}
}
