package application

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"arena/domain"
)

// outboxPollInterval は送信キューが空のときの待機上限です。
// 短めに保つことで、キャンセルとアイドル検知への反応を維持します。
const outboxPollInterval = 100 * time.Millisecond

// Endpoint は参加済みプレイヤー1人分のI/Oループです。
// ストリーム接続からコマンドを読み取ってルームへ渡し、
// プレイヤーの送信キューを排出してワイヤへ書き出します。
// 移動イベントはデータグラム接続が紐づいていればそちらへ流れます。
type Endpoint struct {
	ctx    context.Context
	cancel context.CancelFunc

	room   *Room
	player *Player
	codec  domain.Codec

	idleTimeout time.Duration

	// lifecycle
	closed atomic.Bool
}

// NewEndpoint は参加済みプレイヤーのエンドポイントを生成します。
func NewEndpoint(room *Room, player *Player, codec domain.Codec, idleTimeout time.Duration) *Endpoint {
	ctx, cancel := context.WithCancel(context.Background())
	return &Endpoint{
		ctx:         ctx,
		cancel:      cancel,
		room:        room,
		player:      player,
		codec:       codec,
		idleTimeout: idleTimeout,
	}
}

// Run はI/Oループを起動し、接続の終了までブロックします。
// どのループが終了してもプレイヤーはルームから除去されます。
func (e *Endpoint) Run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	go func() {
		select {
		case <-e.ctx.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		e.readLoop(ctx)
		return errLoopDone
	})
	eg.Go(func() error {
		e.writeLoop(ctx)
		return errLoopDone
	})
	eg.Go(func() error {
		e.ownerLoop(ctx)
		return errLoopDone
	})
	err := eg.Wait()

	e.room.RemovePlayer(parent, e.player.ID)
	if errors.Is(err, errLoopDone) {
		return nil
	}
	return err
}

// errLoopDone はループの正常終了を表す内部値で、errgroupの
// 残りのループを巻き添えで終了させるために使います。
var errLoopDone = errors.New("endpoint loop finished")

// Close はエンドポイントを停止します。2回目以降の呼び出しは無視されます。
func (e *Endpoint) Close() {
	if !e.closed.CompareAndSwap(false, true) {
		return
	}
	e.cancel()
}

func (e *Endpoint) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			data, err := e.player.conn.Read(ctx)
			if err != nil {
				if ctx.Err() == nil {
					slog.DebugContext(ctx, "read loop finished", "player", e.player.ID, "err", err)
				}
				return
			}
			cmd, err := e.codec.Decode(data)
			if err != nil {
				slog.WarnContext(ctx, "failed to decode command", "player", e.player.ID, "err", err)
				continue
			}
			// 送信者の身元は接続から確定する。ワイヤ上の値は信用しない
			cmd.PlayerID = e.player.ID
			if err := e.room.HandleCommand(ctx, cmd); err != nil {
				if errors.Is(err, domain.ErrRoomClosed) {
					return
				}
				slog.ErrorContext(ctx, "failed to handle command",
					"player", e.player.ID, "type", cmd.Type.String(), "err", err)
			}
		}
	}
}

func (e *Endpoint) writeLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		ev, ok := e.player.outbox.Poll(outboxPollInterval)
		if !ok {
			continue
		}
		data, err := e.codec.Encode(ev)
		if err != nil {
			slog.ErrorContext(ctx, "failed to encode event",
				"player", e.player.ID, "type", ev.Type.String(), "err", err)
			continue
		}
		conn := e.player.conn
		// 位置更新とデータグラム指定のackは低遅延経路があればそちらを使う
		if ev.Type == domain.EventMove || ev.ViaDatagram {
			if dg := e.player.Datagram(); dg != nil {
				conn = dg
			}
		}
		if err := conn.Write(ctx, data); err != nil {
			if ctx.Err() == nil {
				slog.DebugContext(ctx, "write loop finished", "player", e.player.ID, "err", err)
			}
			return
		}
	}
}

// ownerLoop は論理セッションの状態を監視し、無通信の接続を終了させます。
func (e *Endpoint) ownerLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if e.player.session.IsIdle(e.idleTimeout) {
				slog.InfoContext(ctx, "closing idle connection", "player", e.player.ID)
				return
			}
			if e.player.session.IsClosed() {
				return
			}
		}
	}
}
