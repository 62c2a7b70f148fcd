package domain

import (
	"fmt"

	"arena/geometry"
	"arena/weapon"
)

// EventType は送信イベントの種別です。
type EventType uint8

const (
	EventJoined EventType = iota + 1
	EventSpawn
	EventMove
	EventAttackResult
	EventChat
	EventError
	EventLeave
	EventAck
	EventPowerUp
)

func (t EventType) String() string {
	switch t {
	case EventJoined:
		return "joined"
	case EventSpawn:
		return "spawn"
	case EventMove:
		return "move"
	case EventAttackResult:
		return "attack_result"
	case EventChat:
		return "chat"
	case EventError:
		return "error"
	case EventLeave:
		return "leave"
	case EventAck:
		return "ack"
	case EventPowerUp:
		return "power_up"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Event はサーバーからクライアントへ配送する状態変化です。
// EventID は単調増加し、受信側は SessionID タグの不一致で
// 古いセッションのイベントを破棄します。
type Event struct {
	Type          EventType
	EventID       uint32
	SessionID     string
	PlayersOnline int
	// ViaDatagram はデータグラム経路での配送を指示します。
	// ワイヤ上には載らず、送信側エンドポイントだけが参照します。
	ViaDatagram bool `json:"-"`

	Joined  *JoinedEvent
	Spawn   *SpawnEvent
	Move    *MoveEvent
	Attack  *AttackResultEvent
	Chat    *ChatEvent
	Error   *ErrorEvent
	Leave   *LeaveEvent
	Ack     *AckEvent
	PowerUp *PowerUpEvent
}

// JoinedEvent はハンドシェイク応答です。割り当てられたセッションIDと
// 自身のスポーン、既存プレイヤーのロースター全量を運びます。
type JoinedEvent struct {
	PlayerID  uint32
	SessionID string
	Spawn     SpawnEvent
	Roster    []SpawnEvent
}

// SpawnEvent はプレイヤーの出現通知です。
type SpawnEvent struct {
	PlayerID  uint32
	Name      string
	Position  geometry.Vector
	Direction geometry.Vector
	Health    int
}

// MoveEvent は位置更新の通知です。ackを要求しません。
type MoveEvent struct {
	PlayerID  uint32
	Position  geometry.Vector
	Direction geometry.Vector
}

// AttackResultEvent は攻撃の適用結果です。
type AttackResultEvent struct {
	AttackerID   uint32
	VictimID     uint32
	Weapon       weapon.Type
	Damage       int
	VictimHealth int
	Killed       bool
	// Respawn はKilled時の再出現位置です。
	Respawn *SpawnEvent
}

// ChatEvent はチャット配送です。
type ChatEvent struct {
	PlayerID uint32
	Name     string
	Text     string
}

// ErrorEvent はエラーコードの通知です。
type ErrorEvent struct {
	Code ErrorCode
}

// LeaveEvent はプレイヤーの退出通知です。
type LeaveEvent struct {
	PlayerID uint32
}

// AckEvent は受信コマンドへの配達確認です。
// 元のイベントと同じトランスポートで返送されます。
type AckEvent struct {
	Sequence uint32
}

// PowerUpEvent はパワーアップ取得の通知です。
type PowerUpEvent struct {
	PlayerID uint32
	Index    int
	Health   int
}
