package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"arena/gamemap"
)

// AssetsHandler はクライアント描画用のマップアセット一式を配布します。
// ETagに内容ハッシュを載せるため、クライアントは同一バンドルを
// 再ダウンロードせずに済みます。
type AssetsHandler struct {
	bundle *gamemap.AssetBundle
	etag   string
}

type assetsResponse struct {
	Hash    string `json:"hash"`
	Atlas   []byte `json:"atlas,omitempty"`
	Tileset []byte `json:"tileset,omitempty"`
	TileMap []byte `json:"tileMap"`
}

// NewAssetsHandler は新しいAssetsHandlerを生成します。
func NewAssetsHandler(bundle *gamemap.AssetBundle) *AssetsHandler {
	return &AssetsHandler{
		bundle: bundle,
		etag:   `"` + bundle.Hash() + `"`,
	}
}

func (h *AssetsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("ETag", h.etag)
	if r.Header.Get("If-None-Match") == h.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(assetsResponse{
		Hash:    h.bundle.Hash(),
		Atlas:   h.bundle.Atlas,
		Tileset: h.bundle.Tileset,
		TileMap: h.bundle.TileMap,
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to write asset bundle", "err", err)
	}
}
