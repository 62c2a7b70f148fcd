package domain

import (
	"fmt"

	"arena/geometry"
	"arena/weapon"
)

// CommandType は受信コマンドの種別です。
type CommandType uint8

const (
	CommandJoin CommandType = iota + 1
	CommandMove
	CommandAttack
	CommandChat
	CommandAck
	CommandPing
	CommandTeleport
	CommandPowerUp
)

func (t CommandType) String() string {
	switch t {
	case CommandJoin:
		return "join"
	case CommandMove:
		return "move"
	case CommandAttack:
		return "attack"
	case CommandChat:
		return "chat"
	case CommandAck:
		return "ack"
	case CommandPing:
		return "ping"
	case CommandTeleport:
		return "teleport"
	case CommandPowerUp:
		return "power_up"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// CommandOrigin はコマンドが流入した経路です。
// ワイヤ上には載らず、受信アダプタが設定します。
type CommandOrigin uint8

const (
	OriginStream CommandOrigin = iota
	OriginDatagram
)

// Command はプレイヤーから届く構造化アクションです。
// ストリーム側（join/chat）とデータグラム側（move/attack/ack）の
// どちらの経路からも同じ形で流入します。
type Command struct {
	Type CommandType
	// Origin は受信経路。ackは元コマンドと同じ経路で返送されます。
	Origin CommandOrigin `json:"-"`
	// Sequence は採番済みコマンドのシーケンス番号。0は未採番で、
	// ack不要なコマンド（move等）では省略されます。
	Sequence uint32
	// SessionID はハンドシェイク後に必須となるセッションタグ。
	SessionID string
	PlayerID  uint32

	Join     *JoinCommand
	Move     *MoveCommand
	Attack   *AttackCommand
	Chat     *ChatCommand
	Ack      *AckCommand
	Teleport *TeleportCommand
	PowerUp  *PowerUpCommand
}

// JoinCommand はルーム参加要求です。RoomID 0はデフォルトルームを指します。
type JoinCommand struct {
	Name   string
	RoomID int
}

// MoveCommand は位置更新です。高頻度のためackを要求しません。
type MoveCommand struct {
	Position  geometry.Vector
	Direction geometry.Vector
}

// AttackCommand は攻撃要求です。
type AttackCommand struct {
	VictimID uint32
	Weapon   weapon.Type
}

// ChatCommand はチャット発言です。
type ChatCommand struct {
	Text string
}

// AckCommand はサーバー発イベントへの配達確認です。
type AckCommand struct {
	Sequence uint32
}

// TeleportCommand はテレポート使用要求です。
type TeleportCommand struct {
	TeleportID int
}

// PowerUpCommand はパワーアップ取得要求です。
// Index はマップのパワーアップレジストリ上の位置です。
type PowerUpCommand struct {
	Index int
}

// DedupKey は重複判定用のIDを導出します。
// 形式は "roomID-playerID-sequence"。
func (c Command) DedupKey(roomID int) string {
	return fmt.Sprintf("%d-%d-%d", roomID, c.PlayerID, c.Sequence)
}
