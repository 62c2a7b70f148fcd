package utils

import (
	"math"

	"arena/geometry"
)

// FiniteVec はベクトルの両成分が有限値かを返します。
// ワイヤから届いた座標はNaN/Infを含みうるため、適用前に検査します。
func FiniteVec(v geometry.Vector) bool {
	return isFinite(float64(v.X)) && isFinite(float64(v.Y))
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
