package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	adapterwebsocket "arena/adapter/websocket"
	"arena/application"
	"arena/domain"
)

// handshakeTimeout は接続確立から参加コマンド受信までの猶予です。
const handshakeTimeout = 10 * time.Second

// AcceptHandler はwebsocket接続を受け付け、参加ハンドシェイクを行い、
// エンドポイントのI/Oループへ引き渡します。
type AcceptHandler struct {
	pool        *application.RoomPool
	codec       domain.Codec
	idleTimeout time.Duration
}

// NewAcceptHandler は新しいAcceptHandlerを生成します。
func NewAcceptHandler(pool *application.RoomPool, codec domain.Codec, idleTimeout time.Duration) *AcceptHandler {
	return &AcceptHandler{pool: pool, codec: codec, idleTimeout: idleTimeout}
}

func (h *AcceptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // 開発用: Origin チェックをスキップ
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to accept", "err", err)
		return
	}

	session := domain.NewSession()
	transport := adapterwebsocket.NewTransportFrom(wsConn)
	connection := domain.NewConnection(session, transport)

	room, player, joined, err := h.handshake(ctx, connection)
	if err != nil {
		var gameErr *domain.GameError
		if errors.As(err, &gameErr) {
			h.writeError(ctx, connection, gameErr.Code)
		}
		slog.WarnContext(ctx, "handshake failed", "session_id", session.ID(), "err", err)
		connection.Close()
		return
	}

	data, err := h.codec.Encode(joined)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode handshake response", "err", err)
		room.RemovePlayer(ctx, player.ID)
		return
	}
	if err := connection.Write(ctx, data); err != nil {
		slog.WarnContext(ctx, "failed to write handshake response", "err", err)
		room.RemovePlayer(ctx, player.ID)
		return
	}

	slog.DebugContext(ctx, "accepted new connection",
		"session_id", session.ID(), "room", room.ID, "player", player.ID)
	endpoint := application.NewEndpoint(room, player, h.codec, h.idleTimeout)
	if err := endpoint.Run(ctx); err != nil {
		slog.ErrorContext(ctx, "endpoint finished with error", "err", err)
	}
}

// handshake は最初のメッセージを参加コマンドとして処理します。
func (h *AcceptHandler) handshake(ctx context.Context, conn *domain.Connection) (*application.Room, *application.Player, domain.Event, error) {
	readCtx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	data, err := conn.Read(readCtx)
	if err != nil {
		return nil, nil, domain.Event{}, err
	}
	cmd, err := h.codec.Decode(data)
	if err != nil {
		return nil, nil, domain.Event{}, err
	}
	if cmd.Type != domain.CommandJoin || cmd.Join == nil {
		return nil, nil, domain.Event{}, domain.ErrCommandNotRecognized
	}
	if cmd.Join.Name == "" {
		return nil, nil, domain.Event{}, domain.NewGameError(domain.CodeAuthFailure, "player name is required")
	}

	room, err := h.pool.Get(cmd.Join.RoomID)
	if err != nil {
		return nil, nil, domain.Event{}, err
	}
	player, joined, err := room.ConnectPlayer(ctx, cmd.Join.Name, conn)
	if err != nil {
		return nil, nil, domain.Event{}, err
	}
	return room, player, joined, nil
}

func (h *AcceptHandler) writeError(ctx context.Context, conn *domain.Connection, code domain.ErrorCode) {
	ev := domain.Event{
		Type:  domain.EventError,
		Error: &domain.ErrorEvent{Code: code},
	}
	data, err := h.codec.Encode(ev)
	if err != nil {
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := conn.Write(writeCtx, data); err != nil {
		slog.DebugContext(ctx, "failed to write error event", "err", err)
	}
}
