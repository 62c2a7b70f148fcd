// Package anticheat は受信アクションの幾何検証を行う純粋な判定関数群です。
// どの判定もadvisoryであり、棄却するかどうか・どのエラーコードを返すかは
// 呼び出し側（ルーム）が決定します。
package anticheat

import (
	"arena/geometry"
	"arena/weapon"
)

const (
	// InteractionRadius はパワーアップ・テレポートへの到達可能距離です。
	InteractionRadius = 1.5
	// speedTolerance は公称移動速度に対する許容倍率です。
	// ネットワーク揺らぎによる誤検知を避けるため20%の余裕を持たせています。
	speedTolerance = 1.2
)

// IsAttackingTooFar は攻撃対象が武器の有効射程外にいるかを返します。
func IsAttackingTooFar(attacker, victim geometry.Vector, profile *weapon.DamageProfile) bool {
	return geometry.Distance(attacker, victim) > profile.MaxEffectiveDistance
}

// IsCrossingWalls は攻撃者と対象を結ぶ線分がいずれかの壁を横切るかを返します。
// 壁越しの攻撃（視線の通らない攻撃）の棄却に使用します。
func IsCrossingWalls(shooter, victim geometry.Vector, walls []geometry.Box) bool {
	for _, wall := range walls {
		if wall.IntersectsSegment(shooter, victim) {
			return true
		}
	}
	return false
}

// IsPowerUpTooFar はパワーアップが到達可能距離外にあるかを返します。
func IsPowerUpTooFar(player, powerUp geometry.Vector) bool {
	return geometry.Distance(player, powerUp) > InteractionRadius
}

// IsTeleportTooFar はテレポートが到達可能距離外にあるかを返します。
func IsTeleportTooFar(player, teleport geometry.Vector) bool {
	return geometry.Distance(player, teleport) > InteractionRadius
}

// IsTooMuchDistanceTravelled は移動距離が公称速度から許容される上限を
// 超えているか（スピードハックの疑い）を返します。
func IsTooMuchDistanceTravelled(distanceTravelled, periodSeconds, maxSpeed float64) bool {
	return distanceTravelled > maxSpeed*speedTolerance*periodSeconds
}
