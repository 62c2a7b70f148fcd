package geometry

// Box は軸平行な矩形領域 (AABB) を表す値型です。
// 壁・スポーン・テレポートの占有領域に使用します。
type Box struct {
	MinX, MinY, MaxX, MaxY float32
}

// Contains は点がボックス内（境界含む）にあるかを返します。
func (b Box) Contains(p Vector) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// IntersectsSegment は線分 start-end がボックスの内部を横切るかを
// Liang–Barsky 法で判定します。角や辺に接するだけの線分は
// 横切ったとみなしません（内部を厳密に通過する場合のみ true）。
func (b Box) IntersectsSegment(start, end Vector) bool {
	dx := float64(end.X - start.X)
	dy := float64(end.Y - start.Y)

	tmin, tmax := 0.0, 1.0

	clip := func(p, min, max, d float64) bool {
		if d == 0 {
			// 線分がこの軸に平行な場合、境界上は内部とみなさない
			return p > min && p < max
		}
		t0 := (min - p) / d
		t1 := (max - p) / d
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tmin {
			tmin = t0
		}
		if t1 < tmax {
			tmax = t1
		}
		return tmin < tmax
	}

	if !clip(float64(start.X), float64(b.MinX), float64(b.MaxX), dx) {
		return false
	}
	if !clip(float64(start.Y), float64(b.MinY), float64(b.MaxY), dy) {
		return false
	}
	// tmin == tmax は角への接触であり、内部を通過していない
	return tmin < tmax
}
