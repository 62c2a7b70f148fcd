// Package codec はワイヤフレーミングの既定実装を提供します。
package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"arena/domain"
	"arena/utils"
)

// ErrNonFiniteCoordinates はNaN/Infを含む座標を持つコマンドを表します。
var ErrNonFiniteCoordinates = errors.New("codec: command carries non-finite coordinates")

// JSON はコマンド/イベントをJSONで運ぶ素朴なフレーミングです。
// 1メッセージ = 1 JSONオブジェクトで、ストリーム側・データグラム側の
// どちらの経路でも同じ形式を使います。
type JSON struct{}

var _ domain.Codec = JSON{}

// Decode はJSONバイト列をコマンドへ復元します。
func (JSON) Decode(data []byte) (domain.Command, error) {
	var cmd domain.Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return domain.Command{}, fmt.Errorf("codec: failed to decode command: %w", err)
	}
	if cmd.Move != nil {
		if !utils.FiniteVec(cmd.Move.Position) || !utils.FiniteVec(cmd.Move.Direction) {
			return domain.Command{}, ErrNonFiniteCoordinates
		}
	}
	return cmd, nil
}

// Encode はイベントをJSONバイト列へ変換します。
func (JSON) Encode(ev domain.Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("codec: failed to encode event: %w", err)
	}
	return data, nil
}
