package domain

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Session は1接続の論理状態を表します。
// IDはハンドシェイクでクライアントへ通知され、以後すべての
// イベントのセッションタグとして照合されます。
type Session struct {
	id string

	// activity
	lastRead  atomic.Int64
	lastWrite atomic.Int64

	// lifecycle
	closed atomic.Bool
}

// NewSession は新しいセッションを生成します。
func NewSession() *Session {
	s := &Session{id: uuid.NewString()}
	now := time.Now().UnixNano()
	s.lastRead.Store(now)
	s.lastWrite.Store(now)
	return s
}

// ID はセッションIDを返します。
func (s *Session) ID() string {
	return s.id
}

func (s *Session) TouchRead() {
	s.lastRead.Store(time.Now().UnixNano())
}

func (s *Session) TouchWrite() {
	s.lastWrite.Store(time.Now().UnixNano())
}

// IsIdle は最後の受信からtimeoutを超えて経過したかを返します。
func (s *Session) IsIdle(timeout time.Duration) bool {
	if timeout <= 0 {
		return false
	}
	last := time.Unix(0, s.lastRead.Load())
	return time.Since(last) > timeout
}

// Close はセッションを終了状態にします。初回の呼び出しのみtrueを返します。
func (s *Session) Close() bool {
	return s.closed.CompareAndSwap(false, true)
}

// IsClosed はセッションが終了済みかを返します。
func (s *Session) IsClosed() bool {
	return s.closed.Load()
}
