package domain

import "sync/atomic"

// Sequence はCASリトライループで単調増加するID採番器です。
// イベントID・プレイヤーIDの採番に使用します。最初の値は1です。
type Sequence struct {
	v atomic.Uint32
}

// Next は次の値を返します。ロックは取らず、競合時はリトライします。
func (s *Sequence) Next() uint32 {
	for {
		cur := s.v.Load()
		next := cur + 1
		if s.v.CompareAndSwap(cur, next) {
			return next
		}
	}
}

// Current は最後に採番した値を返します。
func (s *Sequence) Current() uint32 {
	return s.v.Load()
}
