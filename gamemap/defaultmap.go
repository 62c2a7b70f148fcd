package gamemap

// DefaultArena は組み込みのリファレンスマップ記述を返します。
// 24x16タイル・タイルサイズ16。全タイル床、壁4枚、スポーン4箇所、
// 相互参照するテレポート2基、パワーアップ3個。
func DefaultArena() Description {
	const (
		width  = 24
		height = 16
	)
	base := make([]int, width*height)
	for i := range base {
		base[i] = 1
	}
	return Description{
		Width:        width,
		Height:       height,
		TileSize:     16,
		FloorTileIDs: []int{1},
		BaseLayer:    base,
		Rects: []RectObject{
			{X: 64, Y: 32, Width: 16, Height: 64},
			{X: 256, Y: 32, Width: 16, Height: 64},
			{X: 64, Y: 160, Width: 128, Height: 16},
			{X: 256, Y: 160, Width: 16, Height: 48},
		},
		Decorations: []DecorationObject{
			{Name: "barrel", X: 120, Y: 48},
			{Name: "crate", X: 232, Y: 200},
		},
		Spawns: []SpawnObject{
			{X: 24, Y: 24, DirX: 1, DirY: 0},
			{X: 360, Y: 24, DirX: -1, DirY: 0},
			{X: 24, Y: 216, DirX: 1, DirY: 0},
			{X: 360, Y: 216, DirX: -1, DirY: 0},
		},
		Teleports: []TeleportObject{
			{ID: 1, X: 40, Y: 120, DirX: 1, DirY: 0, SpawnToX: 344, SpawnToY: 120, TeleportToID: 2},
			{ID: 2, X: 344, Y: 120, DirX: -1, DirY: 0, SpawnToX: 40, SpawnToY: 120, TeleportToID: 1},
		},
		PowerUps: []PowerUpObject{
			{X: 200, Y: 40, Kind: PowerUpQuadDamage},
			{X: 200, Y: 120, Kind: PowerUpHealth},
			{X: 120, Y: 220, Kind: PowerUpDefence},
		},
	}
}
