package weapon

import "sync"

// Arena はルームIDをキーとするダメージプロファイルのキャッシュです。
// 初回アクセス時にそのルームの設定スナップショットから全武器分を
// 一括構築するため、並行アクセスでも設定の食い違うプロファイルが
// 混在することはありません。
type Arena struct {
	configFor func(roomID int) Config

	mu    sync.RWMutex
	rooms map[int]map[Type]*DamageProfile
}

// NewArena は新しいArenaを生成します。
// configFor はルームIDごとの武器設定を返す関数です。nilの場合は
// 全ルームでデフォルト設定を使用します。
func NewArena(configFor func(roomID int) Config) *Arena {
	if configFor == nil {
		configFor = func(int) Config { return Config{} }
	}
	return &Arena{
		configFor: configFor,
		rooms:     make(map[int]map[Type]*DamageProfile),
	}
}

// Profile はルームの武器プロファイルを返します。
// 初回アクセス時に構築してキャッシュします。
func (a *Arena) Profile(roomID int, t Type) *DamageProfile {
	a.mu.RLock()
	profiles, ok := a.rooms[roomID]
	a.mu.RUnlock()
	if ok {
		return profiles[t]
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	// 二重チェック: 先行したgoroutineが構築済みならそれを使う
	if profiles, ok := a.rooms[roomID]; ok {
		return profiles[t]
	}
	cfg := a.configFor(roomID)
	profiles = make(map[Type]*DamageProfile, len(AllTypes))
	for _, wt := range AllTypes {
		profiles[wt] = newProfile(wt, cfg)
	}
	a.rooms[roomID] = profiles
	return profiles[t]
}
