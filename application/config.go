package application

import (
	"time"

	"arena/weapon"
)

// Config はサーバー全体の動作設定です。
type Config struct {
	// RoomCount は起動時に生成する固定ルーム数です。
	RoomCount int
	// MaxPlayersPerRoom は1ルームの収容上限です。
	MaxPlayersPerRoom int
	// MovementSpeed は公称移動速度（ユニット/秒）です。
	MovementSpeed float64
	// TickInterval は保留中の移動イベントをまとめて配送する周期です。
	TickInterval time.Duration
	// OutboxCapacity はプレイヤーごとの送信キュー容量です。
	OutboxCapacity int
	// IdleTimeout は無通信接続を切断するまでの時間です。
	IdleTimeout time.Duration
	// Weapon はグローバルな武器設定の上書きです。
	Weapon weapon.Config
}

// DefaultConfig はデフォルト設定を返します。
func DefaultConfig() Config {
	return Config{
		RoomCount:         10,
		MaxPlayersPerRoom: 8,
		MovementSpeed:     7,
		TickInterval:      time.Second / 60,
		OutboxCapacity:    256,
		IdleTimeout:       30 * time.Second,
	}
}
