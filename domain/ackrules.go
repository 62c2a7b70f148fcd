package domain

import "errors"

var (
	ErrMissingSequence = errors.New("domain: ack-required event has no sequence")
	ErrMissingSession  = errors.New("domain: ack-required event has no session id")
)

// CommandAckRules は client→server 方向のack要否戦略です。
// move更新は再送も欠落も無害なためdedup/ackの対象外、
// ackとping自体も確認応答を積み上げないため対象外です。
type CommandAckRules struct{}

func (CommandAckRules) IsAckRequired(c Command) bool {
	switch c.Type {
	case CommandMove, CommandAck, CommandPing:
		return false
	default:
		return true
	}
}

func (CommandAckRules) ValidateAckEvent(c Command) error {
	if c.Sequence == 0 {
		return ErrMissingSequence
	}
	// joinはハンドシェイク前のためセッションIDを持たない
	if c.SessionID == "" && c.Type != CommandJoin {
		return ErrMissingSession
	}
	return nil
}

// EventAckRules は server→client 方向のack要否戦略です。
type EventAckRules struct{}

func (EventAckRules) IsAckRequired(e Event) bool {
	// ackイベント自身へackを要求すると確認応答が無限に連鎖する
	return e.Type != EventMove && e.Type != EventAck
}

func (EventAckRules) ValidateAckEvent(e Event) error {
	if e.EventID == 0 {
		return ErrMissingSequence
	}
	if e.SessionID == "" {
		return ErrMissingSession
	}
	return nil
}
