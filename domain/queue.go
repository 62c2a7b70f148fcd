package domain

import (
	"errors"
	"time"
)

// ErrQueueFull はキューが満杯でOfferが受理されなかったことを表します。
var ErrQueueFull = errors.New("domain: queue is full")

// Queue は単一生産者・単一消費者の有界キューです。
// 生産者側（サーバーのホットパス）は決してブロックせず、
// 消費者側のみがタイムアウト付きで待機できます。
// 同一インスタンスへ複数の生産者から書き込んではいけません。
type Queue[T any] struct {
	ch chan T
}

// NewQueue は容量制限付きのキューを生成します。
func NewQueue[T any](capacity int) *Queue[T] {
	return &Queue[T]{ch: make(chan T, capacity)}
}

// Offer は要素を追加します。満杯ならErrQueueFullを返し、ブロックしません。
func (q *Queue[T]) Offer(v T) error {
	select {
	case q.ch <- v:
		return nil
	default:
		return ErrQueueFull
	}
}

// Poll は要素を取り出します。空の場合はtimeoutまで待機し、
// 取り出せなければ false を返します。
func (q *Queue[T]) Poll(timeout time.Duration) (T, bool) {
	var zero T
	if timeout <= 0 {
		select {
		case v := <-q.ch:
			return v, true
		default:
			return zero, false
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case v := <-q.ch:
		return v, true
	case <-timer.C:
		return zero, false
	}
}

// Len は現在の要素数を返します。
func (q *Queue[T]) Len() int {
	return len(q.ch)
}
