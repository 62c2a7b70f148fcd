package handler

import (
	"encoding/json"
	"net/http"

	"arena/application"
)

type healthResponse struct {
	Status  string `json:"status"`
	Rooms   int    `json:"rooms"`
	Players int    `json:"players"`
}

// NewHealthHandler は稼働状態とルームプールの占有状況を返します。
func NewHealthHandler(pool *application.RoomPool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(healthResponse{
			Status:  "ok",
			Rooms:   pool.Size(),
			Players: pool.PlayersOnline(),
		})
	}
}
