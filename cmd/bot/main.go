// 負荷試験用のボットクライアント。websocketで参加し、床の上を徘徊しながら
// ack対象イベントへ配達確認を返し続けます。
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/coder/websocket"

	"arena/domain"
	"arena/geometry"
	"arena/reliable"
	"arena/utils"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := utils.GetEnvDefault("ADDR", "localhost")
	port := utils.GetEnvDefault("PORT", "9090")
	botCount := utils.GetEnvIntDefault("BOT_COUNT", 3)
	roomID := utils.GetEnvIntDefault("ROOM_ID", 0)

	serverURL := fmt.Sprintf("ws://%s:%s/ws", addr, port)
	slog.Info("starting bots", "count", botCount, "server", serverURL)

	var wg sync.WaitGroup
	for i := range botCount {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runBot(ctx, serverURL, roomID, id)
		}(i)
	}

	wg.Wait()
	slog.Info("all bots stopped")
}

func runBot(ctx context.Context, serverURL string, roomID, id int) {
	logger := slog.With("botID", id)

	for {
		if ctx.Err() != nil {
			return
		}
		err := botSession(ctx, serverURL, roomID, id, logger)
		if err != nil && ctx.Err() == nil {
			logger.Warn("bot session ended, reconnecting", "err", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func botSession(ctx context.Context, serverURL string, roomID, id int, logger *slog.Logger) error {
	conn, _, err := websocket.Dial(ctx, serverURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.CloseNow()

	var seq uint32
	nextSeq := func() uint32 {
		seq++
		return seq
	}

	// ack対象コマンドは未ackのまま保持し、ackが来るまで再送対象とする
	pending := reliable.NewPendingAcks[domain.Command](domain.CommandAckRules{}, reliable.ClientOutboundCapacity)

	// ハンドシェイク
	join := domain.Command{
		Type:     domain.CommandJoin,
		Sequence: nextSeq(),
		Join: &domain.JoinCommand{
			Name:   fmt.Sprintf("bot-%d-%d", id, rand.Intn(10000)),
			RoomID: roomID,
		},
	}
	if err := pending.RequireAck(join.Sequence, join); err != nil {
		return fmt.Errorf("track join: %w", err)
	}
	if err := writeCommand(ctx, conn, join); err != nil {
		return fmt.Errorf("join: %w", err)
	}
	_, data, err := conn.Read(ctx)
	if err != nil {
		return fmt.Errorf("handshake read: %w", err)
	}
	var joined domain.Event
	if err := json.Unmarshal(data, &joined); err != nil {
		return fmt.Errorf("handshake decode: %w", err)
	}
	if joined.Type == domain.EventError {
		return fmt.Errorf("join rejected: %s", joined.Error.Code)
	}
	if joined.Type != domain.EventJoined {
		return fmt.Errorf("unexpected handshake response: %s", joined.Type)
	}
	// ハンドシェイク応答がjoinの到達確認を兼ねる
	pending.AckReceived(join.Sequence)
	sessionID := joined.Joined.SessionID
	position := joined.Joined.Spawn.Position
	logger.Info("joined", "playerID", joined.Joined.PlayerID, "roster", len(joined.Joined.Roster))

	if err := writeCommand(ctx, conn, domain.Command{
		Type:      domain.CommandAck,
		SessionID: sessionID,
		Ack:       &domain.AckCommand{Sequence: joined.EventID},
	}); err != nil {
		return fmt.Errorf("handshake ack: %w", err)
	}

	var mu sync.Mutex
	writeLocked := func(cmd domain.Command) error {
		mu.Lock()
		defer mu.Unlock()
		return writeCommand(ctx, conn, cmd)
	}
	writeReliable := func(cmd domain.Command) error {
		if err := pending.RequireAck(cmd.Sequence, cmd); err != nil {
			return fmt.Errorf("track: %w", err)
		}
		return writeLocked(cmd)
	}

	// 受信ループ: ack対象イベントへ配達確認を返す
	go func() {
		rules := domain.EventAckRules{}
		for {
			if ctx.Err() != nil {
				return
			}
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var ev domain.Event
			if err := json.Unmarshal(data, &ev); err != nil {
				logger.Warn("bad event", "err", err)
				continue
			}
			if ev.SessionID != sessionID {
				continue
			}
			if ev.Type == domain.EventAck {
				pending.AckReceived(ev.Ack.Sequence)
				continue
			}
			if !rules.IsAckRequired(ev) {
				continue
			}
			if err := writeLocked(domain.Command{
				Type:      domain.CommandAck,
				SessionID: sessionID,
				Ack:       &domain.AckCommand{Sequence: ev.EventID},
			}); err != nil {
				return
			}
		}
	}()

	// 徘徊ループ (60FPS相当)
	const speed = 5.0
	heading := rand.Float64() * 2 * math.Pi
	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()
	resend := time.NewTicker(3 * time.Second)
	defer resend.Stop()
	lastTurn := time.Now()
	lastChat := time.Now()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "shutdown")
			return nil
		case <-resend.C:
			if n := pending.Len(); n > 0 {
				logger.Info("resending unacked commands", "count", n)
				pending.Each(func(_ uint32, cmd domain.Command) {
					if err := writeLocked(cmd); err != nil {
						logger.Warn("resend failed", "seq", cmd.Sequence, "err", err)
					}
				})
			}
		case <-ticker.C:
			if time.Since(lastTurn) > 2*time.Second {
				heading = rand.Float64() * 2 * math.Pi
				lastTurn = time.Now()
			}
			dir := geometry.Vector{
				X: float32(math.Cos(heading)),
				Y: float32(math.Sin(heading)),
			}
			position.X += dir.X * float32(speed/60)
			position.Y += dir.Y * float32(speed/60)

			if err := writeLocked(domain.Command{
				Type:      domain.CommandMove,
				SessionID: sessionID,
				Move:      &domain.MoveCommand{Position: position, Direction: dir},
			}); err != nil {
				return fmt.Errorf("move: %w", err)
			}

			if time.Since(lastChat) > 15*time.Second {
				lastChat = time.Now()
				if err := writeReliable(domain.Command{
					Type:      domain.CommandChat,
					Sequence:  nextSeq(),
					SessionID: sessionID,
					Chat:      &domain.ChatCommand{Text: "beep"},
				}); err != nil {
					return fmt.Errorf("chat: %w", err)
				}
			}
		}
	}
}

func writeCommand(ctx context.Context, conn *websocket.Conn, cmd domain.Command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
