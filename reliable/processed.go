package reliable

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultTTL は処理済みイベントIDの保持期間です。
	DefaultTTL = 120 * time.Second
	// DefaultSweepInterval は期限切れIDの定期掃除の間隔です。
	DefaultSweepInterval = 30 * time.Second
)

// ProcessedEvents は処理済みイベントIDのTTL付きストレージです。
// 重複配送されたack対象イベントの再適用を防ぎます。
// ack不要なイベントはdedupの対象外で、記録もされません。
type ProcessedEvents[T any] struct {
	validator AckValidator[T]
	keyFn     func(T) string
	ttl       time.Duration
	clk       func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time // id → 失効時刻
}

// NewProcessedEvents は新しいProcessedEventsを生成します。
// keyFn はイベントから重複判定用のID（例: "gameID-playerID-seq"）を導出します。
func NewProcessedEvents[T any](validator AckValidator[T], keyFn func(T) string) *ProcessedEvents[T] {
	return &ProcessedEvents[T]{
		validator: validator,
		keyFn:     keyFn,
		ttl:       DefaultTTL,
		clk:       time.Now,
		seen:      make(map[string]time.Time),
	}
}

// WithClock はテスト用に時間ソースを差し替えます。
func (p *ProcessedEvents[T]) WithClock(clock func() time.Time) *ProcessedEvents[T] {
	if clock != nil {
		p.clk = clock
	}
	return p
}

// AlreadyProcessed はイベントが処理済みかを返します。
// ack不要なイベントは常にfalseです。
func (p *ProcessedEvents[T]) AlreadyProcessed(ev T) bool {
	if !p.validator.IsAckRequired(ev) {
		return false
	}
	key := p.keyFn(ev)

	p.mu.Lock()
	defer p.mu.Unlock()
	expiresAt, ok := p.seen[key]
	if !ok {
		return false
	}
	if p.clk().After(expiresAt) {
		delete(p.seen, key)
		return false
	}
	return true
}

// MarkProcessed はイベントを処理済みとして記録します。
// ack不要なイベントは記録しません。
func (p *ProcessedEvents[T]) MarkProcessed(ev T) {
	if !p.validator.IsAckRequired(ev) {
		return
	}
	key := p.keyFn(ev)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen[key] = p.clk().Add(p.ttl)
}

// Sweep は失効したIDを削除し、削除件数を返します。
func (p *ProcessedEvents[T]) Sweep() int {
	now := p.clk()

	p.mu.Lock()
	defer p.mu.Unlock()
	removed := 0
	for key, expiresAt := range p.seen {
		if now.After(expiresAt) {
			delete(p.seen, key)
			removed++
		}
	}
	return removed
}

// Run は低頻度タイマーでSweepを繰り返します。ctxのキャンセルで終了します。
// リクエスト処理のホットパスには載せないこと。
func (p *ProcessedEvents[T]) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Sweep()
		}
	}
}

// Size は現在保持しているIDの数を返します。
func (p *ProcessedEvents[T]) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seen)
}
