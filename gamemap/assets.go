package gamemap

import (
	"crypto/sha256"
	"encoding/hex"
)

// AssetBundle はクライアント描画用のマップアセット一式です。
// 内容のハッシュでコンテンツアドレスされ、クライアントはハッシュの
// 一致でキャッシュ済みアセットを再利用できます。
type AssetBundle struct {
	Atlas   []byte // 画像アトラス
	Tileset []byte // タイル定義
	TileMap []byte // タイルマップ記述

	hash string
}

// NewAssetBundle はアセット一式からバンドルを生成し、
// 結合バイト列のハッシュを計算します。
func NewAssetBundle(atlas, tileset, tileMap []byte) *AssetBundle {
	h := sha256.New()
	h.Write(atlas)
	h.Write(tileset)
	h.Write(tileMap)
	return &AssetBundle{
		Atlas:   atlas,
		Tileset: tileset,
		TileMap: tileMap,
		hash:    hex.EncodeToString(h.Sum(nil)),
	}
}

// Hash はバンドル内容のハッシュを返します。
func (b *AssetBundle) Hash() string {
	return b.hash
}
