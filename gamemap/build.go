package gamemap

import (
	"errors"
	"fmt"
	"strings"

	"arena/geometry"
)

const (
	// MaxMapTiles はマップの縦横それぞれの最大タイル数です。
	MaxMapTiles = 128
	// WallUnit は壁の幅・高さが従うべき生データ単位です。
	WallUnit = 16
)

var (
	ErrMapTooLarge           = errors.New("gamemap: map exceeds maximum dimensions")
	ErrBaseLayerSize         = errors.New("gamemap: base layer size does not match map dimensions")
	ErrWallNotAligned        = errors.New("gamemap: wall size is not a multiple of 16")
	ErrBlankDecoration       = errors.New("gamemap: decoration has blank name")
	ErrTeleportSelfReference = errors.New("gamemap: teleport references itself")
	ErrTeleportTargetMissing = errors.New("gamemap: teleport target does not exist")
	ErrSpawnNotOnFloor       = errors.New("gamemap: spawn point is not on a floor tile")
	ErrSpawnInsideWall       = errors.New("gamemap: spawn point overlaps a wall")
	ErrNoFloorTiles          = errors.New("gamemap: map has no floor tiles")
	ErrNoSpawnPoints         = errors.New("gamemap: map has no player spawn points")
)

// Build はマップ記述を検証し、不変のLevelへ変換します。
// 検証に失敗したマップでルームを起動してはならないため、
// エラーはすべて致命的（ロード中断）です。
func Build(desc Description) (*Level, error) {
	if desc.Width > MaxMapTiles || desc.Height > MaxMapTiles {
		return nil, fmt.Errorf("%w: %dx%d (max %d)", ErrMapTooLarge, desc.Width, desc.Height, MaxMapTiles)
	}
	if len(desc.BaseLayer) != desc.Width*desc.Height {
		return nil, fmt.Errorf("%w: got %d tiles for %dx%d", ErrBaseLayerSize, len(desc.BaseLayer), desc.Width, desc.Height)
	}

	for _, rect := range desc.Rects {
		if !isMultipleOfWallUnit(rect.Width) || !isMultipleOfWallUnit(rect.Height) {
			return nil, fmt.Errorf("%w: %vx%v at (%v, %v)", ErrWallNotAligned, rect.Width, rect.Height, rect.X, rect.Y)
		}
	}

	for i, deco := range desc.Decorations {
		if strings.TrimSpace(deco.Name) == "" {
			return nil, fmt.Errorf("%w: index %d at (%v, %v)", ErrBlankDecoration, i, deco.X, deco.Y)
		}
	}

	floor := deriveFloor(desc)
	if floor.Size() == 0 {
		return nil, ErrNoFloorTiles
	}

	tr := coordTransform{desc: desc}

	walls := make([]geometry.Box, 0, len(desc.Rects))
	for _, rect := range desc.Rects {
		walls = append(walls, tr.box(rect))
	}

	spawns := make([]Spawn, 0, len(desc.Spawns))
	for _, s := range desc.Spawns {
		spawns = append(spawns, Spawn{
			Position:  tr.point(s.X, s.Y),
			Direction: geometry.Vector{X: s.DirX, Y: s.DirY}.Normalize(),
		})
	}
	if len(spawns) == 0 {
		return nil, ErrNoSpawnPoints
	}

	teleports, err := buildTeleports(desc.Teleports, tr)
	if err != nil {
		return nil, err
	}

	powerUps := make([]PowerUp, 0, len(desc.PowerUps))
	for _, p := range desc.PowerUps {
		powerUps = append(powerUps, PowerUp{Position: tr.point(p.X, p.Y), Kind: p.Kind})
	}

	decorations := make([]Decoration, 0, len(desc.Decorations))
	for _, d := range desc.Decorations {
		decorations = append(decorations, Decoration{Name: d.Name, Position: tr.point(d.X, d.Y)})
	}

	for i, s := range spawns {
		if err := validatePlacement(s.Position, floor, walls); err != nil {
			return nil, fmt.Errorf("%w (spawn index %d)", err, i)
		}
	}
	for id := range teleports.byID {
		t := teleports.byID[id]
		if err := validatePlacement(t.SpawnTo, floor, walls); err != nil {
			return nil, fmt.Errorf("%w (teleport id %d destination)", err, id)
		}
	}

	return &Level{
		Walls:       walls,
		Floor:       floor,
		Spawns:      spawns,
		Teleports:   teleports,
		PowerUps:    powerUps,
		Decorations: decorations,
	}, nil
}

// isMultipleOfWallUnit は値が数学的な整数かつ16の倍数かを判定します。
func isMultipleOfWallUnit(v float32) bool {
	i := int(v)
	if float32(i) != v {
		return false
	}
	return i%WallUnit == 0
}

func deriveFloor(desc Description) *FloorSet {
	floorIDs := make(map[int]struct{}, len(desc.FloorTileIDs))
	for _, id := range desc.FloorTileIDs {
		floorIDs[id] = struct{}{}
	}
	tiles := make(map[[2]int]struct{})
	for ty := 0; ty < desc.Height; ty++ {
		for tx := 0; tx < desc.Width; tx++ {
			id := desc.BaseLayer[ty*desc.Width+tx]
			if _, ok := floorIDs[id]; ok {
				tiles[[2]int{tx, ty}] = struct{}{}
			}
		}
	}
	return &FloorSet{width: desc.Width, height: desc.Height, tiles: tiles}
}

func buildTeleports(objects []TeleportObject, tr coordTransform) (*TeleportRegistry, error) {
	byID := make(map[int]Teleport, len(objects))
	for _, t := range objects {
		if t.ID == t.TeleportToID {
			return nil, fmt.Errorf("%w: id %d", ErrTeleportSelfReference, t.ID)
		}
		byID[t.ID] = Teleport{
			ID:           t.ID,
			Location:     tr.point(t.X, t.Y),
			Direction:    geometry.Vector{X: t.DirX, Y: t.DirY}.Normalize(),
			SpawnTo:      tr.point(t.SpawnToX, t.SpawnToY),
			TeleportToID: t.TeleportToID,
		}
	}
	for _, t := range byID {
		if _, ok := byID[t.TeleportToID]; !ok {
			return nil, fmt.Errorf("%w: id %d points to %d", ErrTeleportTargetMissing, t.ID, t.TeleportToID)
		}
	}
	return &TeleportRegistry{byID: byID}, nil
}

func validatePlacement(p geometry.Vector, floor *FloorSet, walls []geometry.Box) error {
	if !floor.ContainsWorld(p) {
		return fmt.Errorf("%w: (%v, %v)", ErrSpawnNotOnFloor, p.X, p.Y)
	}
	for _, wall := range walls {
		if wall.Contains(p) {
			return fmt.Errorf("%w: (%v, %v)", ErrSpawnInsideWall, p.X, p.Y)
		}
	}
	return nil
}

// coordTransform は生データ座標から原点中心のワールド座標への変換です。
// normalized = raw/tileSize - mapSize/2
type coordTransform struct {
	desc Description
}

func (t coordTransform) point(x, y float32) geometry.Vector {
	return geometry.Vector{
		X: x/t.desc.TileSize - float32(t.desc.Width)/2,
		Y: y/t.desc.TileSize - float32(t.desc.Height)/2,
	}
}

func (t coordTransform) box(r RectObject) geometry.Box {
	min := t.point(r.X, r.Y)
	max := t.point(r.X+r.Width, r.Y+r.Height)
	return geometry.Box{MinX: min.X, MinY: min.Y, MaxX: max.X, MaxY: max.Y}
}
