package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arena/adapter/codec"
	adapterudp "arena/adapter/udp"
	"arena/application"
	"arena/gamemap"
	"arena/server"
	"arena/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := utils.GetEnvDefault("ADDR", "localhost")
	port := utils.GetEnvDefault("PORT", "9090")
	udpPort := utils.GetEnvDefault("UDP_PORT", "9091")

	cfg := application.DefaultConfig()
	cfg.RoomCount = utils.GetEnvIntDefault("ROOM_COUNT", cfg.RoomCount)
	cfg.MaxPlayersPerRoom = utils.GetEnvIntDefault("MAX_PLAYERS_PER_ROOM", cfg.MaxPlayersPerRoom)

	desc := gamemap.DefaultArena()
	level, err := gamemap.Build(desc)
	if err != nil {
		log.Fatalf("failed to build map: %v", err)
	}
	bundle, err := loadAssets(desc)
	if err != nil {
		log.Fatalf("failed to load assets: %v", err)
	}
	pool := application.NewRoomPool(cfg, level)
	go func() {
		if err := pool.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.ErrorContext(ctx, "room pool error", "err", err)
		}
	}()

	wire := codec.JSON{}
	s := server.NewServer(net.JoinHostPort(addr, port), pool, wire, bundle, cfg.IdleTimeout)

	go func() {
		if err := s.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()
	slog.InfoContext(ctx, "server listening", "addr", s.Addr(), "rooms", pool.Size())

	udpAddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(addr, udpPort))
	if err != nil {
		log.Fatalf("failed to resolve udp addr: %v", err)
	}
	udpConn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		log.Fatalf("failed to listen udp: %v", err)
	}
	datagrams := adapterudp.NewServer(udpConn, pool, wire)
	go func() {
		if err := datagrams.Serve(ctx); err != nil {
			slog.ErrorContext(ctx, "udp server error", "err", err)
		}
	}()
	slog.InfoContext(ctx, "datagram server listening", "addr", udpAddr.String())

	<-ctx.Done()
	slog.InfoContext(ctx, "shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool.Close(shutdownCtx)
	if err := s.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(ctx, "graceful shutdown failed", "error", err)
		if err := s.Close(); err != nil {
			slog.ErrorContext(ctx, "forced close failed", "error", err)
		}
	}
	slog.InfoContext(ctx, "server shutdown complete")
}

// loadAssets はクライアントへ配布するアセットバンドルを組み立てます。
// アトラスとタイルセットの画像は任意で、パスが未指定なら省略されます。
func loadAssets(desc gamemap.Description) (*gamemap.AssetBundle, error) {
	tileMap, err := json.Marshal(desc)
	if err != nil {
		return nil, fmt.Errorf("marshal tile map: %w", err)
	}
	return gamemap.NewAssetBundle(readOptional("ATLAS_PATH"), readOptional("TILESET_PATH"), tileMap), nil
}

func readOptional(env string) []byte {
	path := os.Getenv(env)
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("asset file unavailable", "path", path, "err", err)
		return nil
	}
	return data
}
