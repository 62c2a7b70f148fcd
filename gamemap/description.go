// Package gamemap はタイルマップ記述を検証し、ルームが使用する
// 不変のレジストリ群（壁・床・スポーン・テレポート・パワーアップ）へ
// 変換するパイプラインです。
package gamemap

// Description はパース済みのタイルマップ記述です。
// 座標はすべてマップ生データの単位（ピクセル）で、Buildが
// ワールド座標（タイル単位・原点中心）へ正規化します。
type Description struct {
	Width    int // タイル数
	Height   int // タイル数
	TileSize float32

	// FloorTileIDs は歩行可能な床とみなすタイルIDの集合。
	// マップフォーマット依存の定数のため設定可能にしている。
	FloorTileIDs []int

	// BaseLayer は行優先のタイルIDレイヤー。長さは Width*Height。
	BaseLayer []int

	Rects       []RectObject
	Decorations []DecorationObject
	Spawns      []SpawnObject
	Teleports   []TeleportObject
	PowerUps    []PowerUpObject
}

// RectObject は壁を表すオブジェクトです。
type RectObject struct {
	X, Y          float32
	Width, Height float32
}

// DecorationObject は装飾オブジェクトです。名前は必須。
type DecorationObject struct {
	Name string
	X, Y float32
}

// SpawnObject はプレイヤーのスポーン地点です。
type SpawnObject struct {
	X, Y       float32
	DirX, DirY float32
}

// TeleportObject はテレポートの入口と行き先です。
type TeleportObject struct {
	ID                 int
	X, Y               float32
	DirX, DirY         float32
	SpawnToX, SpawnToY float32
	TeleportToID       int
}

// PowerUpKind はパワーアップの種別です。
type PowerUpKind uint8

const (
	PowerUpQuadDamage PowerUpKind = iota
	PowerUpHealth
	PowerUpDefence
)

func (k PowerUpKind) String() string {
	switch k {
	case PowerUpQuadDamage:
		return "quad_damage"
	case PowerUpHealth:
		return "health"
	case PowerUpDefence:
		return "defence"
	default:
		return "unknown"
	}
}

// PowerUpObject はパワーアップ配置です。
type PowerUpObject struct {
	X, Y float32
	Kind PowerUpKind
}
