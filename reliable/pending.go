package reliable

import (
	"errors"
	"fmt"
	"sync"
)

const (
	// ServerOutboundCapacity はサーバー発イベントの未ack上限です。
	ServerOutboundCapacity = 128
	// ClientOutboundCapacity はクライアント発イベントの未ack上限です。
	ClientOutboundCapacity = 512
)

// ErrTooManyPending は未ackイベントが上限に達したことを表します。
// ピアの応答停止・過負荷のシグナルであり、送信は失敗させます。
var ErrTooManyPending = errors.New("reliable: too many pending ack events")

// PendingAcks はackを待つ送信済みイベントの有界ストレージです。
// 同じシーケンス番号を持つエントリは同時に2つ存在しません。
type PendingAcks[T any] struct {
	validator AckValidator[T]
	capacity  int

	mu      sync.Mutex
	entries map[uint32]T
}

// NewPendingAcks は容量制限付きのPendingAcksを生成します。
func NewPendingAcks[T any](validator AckValidator[T], capacity int) *PendingAcks[T] {
	return &PendingAcks[T]{
		validator: validator,
		capacity:  capacity,
		entries:   make(map[uint32]T),
	}
}

// RequireAck はack対象の送信イベントを登録します。
// ack不要なイベントは何もしません。容量超過時は登録せず
// ErrTooManyPending を返します（黙って捨てるとピアの停止を
// 覆い隠すため、送信自体を失敗させる）。
func (p *PendingAcks[T]) RequireAck(sequence uint32, ev T) error {
	if !p.validator.IsAckRequired(ev) {
		return nil
	}
	if err := p.validator.ValidateAckEvent(ev); err != nil {
		return fmt.Errorf("reliable: reject ack registration: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.entries[sequence]; !exists && len(p.entries) >= p.capacity {
		return fmt.Errorf("%w: capacity %d", ErrTooManyPending, p.capacity)
	}
	p.entries[sequence] = ev
	return nil
}

// AckReceived はackを受信したエントリを取り除きます。
func (p *PendingAcks[T]) AckReceived(sequence uint32) (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ev, ok := p.entries[sequence]
	if ok {
		delete(p.entries, sequence)
	}
	return ev, ok
}

// AckNotRequired は指定シーケンスのエントリを取り下げます。
func (p *PendingAcks[T]) AckNotRequired(sequence uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, sequence)
}

// AckNotRequiredIf は条件に一致するエントリを一括で取り下げ、
// 削除件数を返します（ルームクローズ時などに使用）。
func (p *PendingAcks[T]) AckNotRequiredIf(pred func(T) bool) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	removed := 0
	for seq, ev := range p.entries {
		if pred(ev) {
			delete(p.entries, seq)
			removed++
		}
	}
	return removed
}

// Each は未ackエントリをスナップショットして走査します。
// クライアント側の再送処理で使用します。fnはロック外で呼ばれます。
func (p *PendingAcks[T]) Each(fn func(sequence uint32, ev T)) {
	p.mu.Lock()
	snapshot := make(map[uint32]T, len(p.entries))
	for seq, ev := range p.entries {
		snapshot[seq] = ev
	}
	p.mu.Unlock()

	for seq, ev := range snapshot {
		fn(seq, ev)
	}
}

// Len は未ackエントリの数を返します。
func (p *PendingAcks[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
