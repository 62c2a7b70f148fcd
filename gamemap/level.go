package gamemap

import (
	"math"

	"arena/geometry"
)

// Level はBuildが生成する不変のマップレジストリ群です。
// ルーム/マップロード時に一度だけ構築され、以後変更されません。
type Level struct {
	Walls       []geometry.Box
	Floor       *FloorSet
	Spawns      []Spawn
	Teleports   *TeleportRegistry
	PowerUps    []PowerUp
	Decorations []Decoration
}

// Spawn は正規化済みのスポーン地点です。
type Spawn struct {
	Position  geometry.Vector
	Direction geometry.Vector
}

// Teleport は正規化済みのテレポートです。
// TeleportToID は必ず登録済みの別テレポートを指します。
type Teleport struct {
	ID           int
	Location     geometry.Vector
	Direction    geometry.Vector
	SpawnTo      geometry.Vector
	TeleportToID int
}

// PowerUp は正規化済みのパワーアップ配置です。
type PowerUp struct {
	Position geometry.Vector
	Kind     PowerUpKind
}

// Decoration は正規化済みの装飾オブジェクトです。
type Decoration struct {
	Name     string
	Position geometry.Vector
}

// FloorSet は歩行可能な床タイルの集合です。
type FloorSet struct {
	width, height int
	tiles         map[[2]int]struct{}
}

// Contains はタイル座標が床かどうかを返します。
func (f *FloorSet) Contains(tx, ty int) bool {
	_, ok := f.tiles[[2]int{tx, ty}]
	return ok
}

// ContainsWorld はワールド座標の点が床タイル上にあるかを返します。
// 正規化の逆変換でタイル座標へ戻して判定します。
func (f *FloorSet) ContainsWorld(p geometry.Vector) bool {
	tx := int(math.Floor(float64(p.X) + float64(f.width)/2))
	ty := int(math.Floor(float64(p.Y) + float64(f.height)/2))
	if tx < 0 || tx >= f.width || ty < 0 || ty >= f.height {
		return false
	}
	return f.Contains(tx, ty)
}

// Size は床タイルの数を返します。
func (f *FloorSet) Size() int {
	return len(f.tiles)
}

// TeleportRegistry はIDをキーとするテレポートの不変レジストリです。
type TeleportRegistry struct {
	byID map[int]Teleport
}

// Get はIDに対応するテレポートを返します。
func (r *TeleportRegistry) Get(id int) (Teleport, bool) {
	t, ok := r.byID[id]
	return t, ok
}

// Destination はテレポートの行き先テレポートを返します。
func (r *TeleportRegistry) Destination(id int) (Teleport, bool) {
	t, ok := r.byID[id]
	if !ok {
		return Teleport{}, false
	}
	return r.Get(t.TeleportToID)
}

// Size は登録済みテレポートの数を返します。
func (r *TeleportRegistry) Size() int {
	return len(r.byID)
}
