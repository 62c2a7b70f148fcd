// Package reliable は信頼性のないデータグラム上でのイベント配送に
// at-most-once セマンティクスを与えるための台帳群です。
// ゲームのセマンティクスからは独立しており、イベント型Tと
// 方向別（client→server / server→client）のバリデータ戦略で
// パラメータ化されます。
package reliable

// AckValidator は方向ごとのack要否判定と、ack対象イベントの
// 形式検証を提供する戦略です。
type AckValidator[T any] interface {
	// IsAckRequired はイベントが配達確認を要するかを返します。
	// 高頻度のmove更新のような、再送も欠落も無害なイベントはfalse。
	IsAckRequired(ev T) bool
	// ValidateAckEvent はack対象イベントがシーケンス番号と
	// セッションIDを備えているかを検証します。
	ValidateAckEvent(ev T) error
}
