package application

import (
	"context"

	"golang.org/x/sync/errgroup"

	"arena/domain"
	"arena/gamemap"
	"arena/weapon"
)

// defaultRoomID はRoomID 0の参加要求が割り当てられるルームです。
const defaultRoomID = 1

// RoomPool は起動時に生成される固定数のルームの集合です。
// ルームは1..RoomCountのIDを持ち、動的な生成・削除は行いません。
type RoomPool struct {
	rooms map[int]*Room
}

// NewRoomPool はルームプールを生成します。全ルームが同じマップと
// 武器プロファイルキャッシュを共有します。
func NewRoomPool(cfg Config, level *gamemap.Level) *RoomPool {
	arena := weapon.NewArena(func(int) weapon.Config { return cfg.Weapon })
	rooms := make(map[int]*Room, cfg.RoomCount)
	for id := 1; id <= cfg.RoomCount; id++ {
		rooms[id] = NewRoom(id, cfg, level, arena)
	}
	return &RoomPool{rooms: rooms}
}

// Get はIDに対応するルームを返します。ID 0はデフォルトルームに
// 解決されます。存在しないIDはErrRoomNotFoundです。
func (p *RoomPool) Get(id int) (*Room, error) {
	if id == 0 {
		id = defaultRoomID
	}
	room, ok := p.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

// FindBySession は全ルームからセッションIDに一致するプレイヤーを探します。
// データグラム経路の最初のパケットをプレイヤーへ紐づける際に使用します。
func (p *RoomPool) FindBySession(sessionID string) (*Room, *Player) {
	for _, room := range p.rooms {
		if player := room.PlayerBySession(sessionID); player != nil {
			return room, player
		}
	}
	return nil, nil
}

// Run は全ルームのバックグラウンドループを起動し、ctxの
// キャンセルまでブロックします。
func (p *RoomPool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, room := range p.rooms {
		g.Go(func() error {
			return room.Run(ctx)
		})
	}
	return g.Wait()
}

// Close は全ルームを閉鎖します。
func (p *RoomPool) Close(ctx context.Context) {
	for _, room := range p.rooms {
		room.Close(ctx)
	}
}

// Size はルーム数を返します。
func (p *RoomPool) Size() int {
	return len(p.rooms)
}

// PlayersOnline は全ルームの在室プレイヤー数の合計を返します。
func (p *RoomPool) PlayersOnline() int {
	total := 0
	for _, room := range p.rooms {
		total += room.PlayerCount()
	}
	return total
}
