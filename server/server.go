package server

import (
	"context"
	"net/http"
	"time"

	"arena/application"
	"arena/domain"
	"arena/gamemap"
	"arena/server/handler"
)

const readHeaderTimeout = 10 * time.Second

// Server はHTTP面の組み立てと起動・停止を担います。
// websocket受付、ヘルスチェック、マップアセット配布のルートを持ちます。
type Server struct {
	http *http.Server
}

// NewServer はルーティングを組み立てたサーバーを生成します。
func NewServer(addr string, pool *application.RoomPool, codec domain.Codec, bundle *gamemap.AssetBundle, idleTimeout time.Duration) *Server {
	mux := http.NewServeMux()
	mux.Handle("/ws", handler.NewAcceptHandler(pool, codec, idleTimeout))
	mux.Handle("/health", handler.NewHealthHandler(pool))
	mux.Handle("/assets", handler.NewAssetsHandler(bundle))

	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}
}

func (s *Server) Serve() error                       { return s.http.ListenAndServe() }
func (s *Server) Shutdown(ctx context.Context) error { return s.http.Shutdown(ctx) }
func (s *Server) Close() error                       { return s.http.Close() }
func (s *Server) Addr() string                       { return s.http.Addr }
