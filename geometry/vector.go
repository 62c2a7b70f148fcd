package geometry

import "math"

// Vector はワールド座標上の位置・方向を表す値型です。
type Vector struct {
	X, Y float32
}

// Sub は v - o を返します。
func (v Vector) Sub(o Vector) Vector {
	return Vector{X: v.X - o.X, Y: v.Y - o.Y}
}

// Magnitude はベクトルの長さを返します。
func (v Vector) Magnitude() float64 {
	return math.Hypot(float64(v.X), float64(v.Y))
}

// Normalize は長さ1に正規化したベクトルを返します。
// ゼロベクトルはそのまま返します。
func (v Vector) Normalize() Vector {
	m := v.Magnitude()
	if m == 0 {
		return v
	}
	return Vector{X: float32(float64(v.X) / m), Y: float32(float64(v.Y) / m)}
}

// Distance は2点間の距離を返します。
func Distance(a, b Vector) float64 {
	return a.Sub(b).Magnitude()
}
