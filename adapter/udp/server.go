// Package adapterudp はデータグラム経路のサーバーです。
// 位置更新のような高頻度・損失許容のトラフィックをストリーム経路から
// 逃がすための低遅延リンクを提供します。
package adapterudp

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"

	"arena/application"
	"arena/domain"
)

// maxDatagramSize は受信バッファの上限です。1コマンドはこれに収まること。
const maxDatagramSize = 2048

// peerBinding は送信元アドレスとプレイヤーの対応です。
// 最初のデータグラムのセッションタグで確立され、以後のパケットは
// 照合のみで処理されます。
type peerBinding struct {
	room   *application.Room
	player *application.Player
}

// Server は単一のUDPソケットを全プレイヤーで多重化します。
type Server struct {
	conn  *net.UDPConn
	pool  *application.RoomPool
	codec domain.Codec

	mu    sync.Mutex
	peers map[string]peerBinding
}

// NewServer は新しいデータグラムサーバーを生成します。
func NewServer(conn *net.UDPConn, pool *application.RoomPool, codec domain.Codec) *Server {
	return &Server{
		conn:  conn,
		pool:  pool,
		codec: codec,
		peers: make(map[string]peerBinding),
	}
}

// Serve は受信ループを実行します。ctxのキャンセルでソケットを閉じて
// 終了します。
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.conn.Close()
	}()

	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		s.handleDatagram(ctx, addr, data)
	}
}

func (s *Server) handleDatagram(ctx context.Context, addr *net.UDPAddr, data []byte) {
	cmd, err := s.codec.Decode(data)
	if err != nil {
		slog.WarnContext(ctx, "failed to decode datagram", "addr", addr.String(), "err", err)
		return
	}
	cmd.Origin = domain.OriginDatagram

	key := addr.String()
	s.mu.Lock()
	binding, bound := s.peers[key]
	s.mu.Unlock()

	if bound && binding.player.Session().IsClosed() {
		s.mu.Lock()
		delete(s.peers, key)
		s.mu.Unlock()
		bound = false
	}
	if !bound {
		binding = s.bindPeer(ctx, addr, cmd.SessionID)
		if binding.player == nil {
			return
		}
	}

	// 送信者の身元は紐付けから確定する。ワイヤ上の値は信用しない
	cmd.PlayerID = binding.player.ID
	if err := binding.room.HandleCommand(ctx, cmd); err != nil {
		if errors.Is(err, domain.ErrRoomClosed) {
			s.mu.Lock()
			delete(s.peers, key)
			s.mu.Unlock()
			return
		}
		slog.ErrorContext(ctx, "failed to handle datagram command",
			"addr", addr.String(), "type", cmd.Type.String(), "err", err)
	}
}

// bindPeer は最初のデータグラムのセッションタグで送信元アドレスを
// プレイヤーへ紐付け、以後の位置更新の戻り経路を確立します。
func (s *Server) bindPeer(ctx context.Context, addr *net.UDPAddr, sessionID string) peerBinding {
	if sessionID == "" {
		slog.WarnContext(ctx, "datagram without session tag", "addr", addr.String())
		return peerBinding{}
	}
	room, player := s.pool.FindBySession(sessionID)
	if player == nil {
		slog.WarnContext(ctx, "datagram for unknown session", "addr", addr.String())
		return peerBinding{}
	}

	transport := &udpTransport{conn: s.conn, addr: addr}
	player.AttachDatagram(domain.NewConnection(player.Session(), transport))

	binding := peerBinding{room: room, player: player}
	s.mu.Lock()
	s.peers[addr.String()] = binding
	s.mu.Unlock()

	slog.InfoContext(ctx, "datagram link established",
		"addr", addr.String(), "room", room.ID, "player", player.ID)
	return binding
}

// udpTransport は1送信元アドレス分の送信専用トランスポートです。
// 受信は多重化されたServerが行うため、Readは使用されません。
type udpTransport struct {
	conn *net.UDPConn
	addr *net.UDPAddr

	mu     sync.Mutex
	closed bool
}

var _ domain.Transport = (*udpTransport)(nil)

func (t *udpTransport) Read(ctx context.Context) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (t *udpTransport) Write(_ context.Context, data []byte) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return net.ErrClosed
	}
	t.mu.Unlock()
	_, err := t.conn.WriteToUDP(data, t.addr)
	return err
}

func (t *udpTransport) Close(int32, string) error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	// 共有ソケットはServerが所有するため、ここでは閉じない
	return nil
}
