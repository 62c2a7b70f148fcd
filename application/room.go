package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"arena/anticheat"
	"arena/domain"
	"arena/gamemap"
	"arena/geometry"
	"arena/reliable"
	"arena/weapon"
)

// Room は1つの対戦ルームです。プレイヤーレジストリ、信頼配送の状態、
// 保留中の移動イベントを保持し、受信コマンドをゲーム状態の変化へ変換します。
//
// 参加処理はルーム単位のミューテックスで直列化されます。定員・名前の
// 検査と挿入が単一のクリティカルセクションで行われることが、
// 同時参加で定員を超えないことの保証そのものです。
type Room struct {
	ID int

	cfg   Config
	level *gamemap.Level
	arena *weapon.Arena
	clk   func() time.Time

	mu      sync.Mutex
	players map[uint32]*Player
	names   map[string]uint32

	playerSeq domain.Sequence
	eventSeq  domain.Sequence
	spawnIdx  atomic.Uint32

	// moveMu は保留中の移動イベントを保護します。移動は高頻度のため
	// 即時配送せず、tickごとにプレイヤーあたり最新の1件へ集約されます。
	moveMu       sync.Mutex
	pendingMoves map[uint32]domain.Event

	processed *reliable.ProcessedEvents[domain.Command]
	processor *reliable.Processor[domain.Command]

	closed atomic.Bool
}

// NewRoom は新しいルームを生成します。levelはBuild済みの不変マップ、
// arenaはルーム間で共有される武器プロファイルのキャッシュです。
func NewRoom(id int, cfg Config, level *gamemap.Level, arena *weapon.Arena) *Room {
	r := &Room{
		ID:           id,
		cfg:          cfg,
		level:        level,
		arena:        arena,
		clk:          time.Now,
		players:      make(map[uint32]*Player),
		names:        make(map[string]uint32),
		pendingMoves: make(map[uint32]domain.Event),
	}
	rules := domain.CommandAckRules{}
	r.processed = reliable.NewProcessedEvents(rules, func(c domain.Command) string {
		return c.DedupKey(id)
	})
	r.processor = reliable.NewProcessor(rules, r.processed)
	return r
}

// WithClock はテスト用に時間ソースを差し替えます。
func (r *Room) WithClock(clock func() time.Time) *Room {
	if clock != nil {
		r.clk = clock
		r.processed.WithClock(clock)
	}
	return r
}

// ConnectPlayer はプレイヤーをルームへ参加させます。
// 満室はErrServerFull、名前の重複はErrPlayerExists、閉鎖済みは
// ErrRoomClosedを返します。成功時は参加者本人へ返すハンドシェイク
// 応答イベントを返し、既存プレイヤーへはスポーン通知を配送します。
func (r *Room) ConnectPlayer(ctx context.Context, name string, conn *domain.Connection) (*Player, domain.Event, error) {
	r.mu.Lock()
	if r.closed.Load() {
		r.mu.Unlock()
		return nil, domain.Event{}, domain.ErrRoomClosed
	}
	if len(r.players) >= r.cfg.MaxPlayersPerRoom {
		r.mu.Unlock()
		return nil, domain.Event{}, domain.ErrServerFull
	}
	if _, taken := r.names[name]; taken {
		r.mu.Unlock()
		return nil, domain.Event{}, domain.ErrPlayerExists
	}

	id := r.playerSeq.Next()
	spawn := r.nextSpawn()
	p := newPlayer(id, name, conn.Session(), conn, spawn, r.cfg.OutboxCapacity, r.clk())
	r.players[id] = p
	r.names[name] = id

	// スポーン通知の宛先は挿入と同じクリティカルセクションで確定する。
	// ロック解放後に確定すると、同時参加者が本人をロスターとスポーン
	// 通知の両方で受け取りうる。
	roster := make([]domain.SpawnEvent, 0, len(r.players)-1)
	recipients := make([]*Player, 0, len(r.players)-1)
	for otherID, other := range r.players {
		if otherID == id {
			continue
		}
		roster = append(roster, other.Snapshot())
		recipients = append(recipients, other)
	}
	online := len(r.players)
	r.mu.Unlock()

	slog.InfoContext(ctx, "player joined",
		"room", r.ID, "player", id, "name", name, "online", online)

	self := p.Snapshot()
	r.broadcastTo(ctx, recipients, online, domain.Event{
		Type:  domain.EventSpawn,
		Spawn: &self,
	})

	joined := domain.Event{
		Type:          domain.EventJoined,
		EventID:       r.eventSeq.Next(),
		SessionID:     p.SessionID(),
		PlayersOnline: online,
		Joined: &domain.JoinedEvent{
			PlayerID:  id,
			SessionID: p.SessionID(),
			Spawn:     self,
			Roster:    roster,
		},
	}
	if err := p.pending.RequireAck(joined.EventID, joined); err != nil {
		slog.WarnContext(ctx, "failed to track handshake ack",
			"room", r.ID, "player", id, "error", err)
	}
	return p, joined, nil
}

// HandleCommand は受信コマンドを処理します。セッションタグが現在の
// セッションと一致しないコマンドは古い接続の残骸として黙って破棄します。
// ゲームルール違反はエラーイベントとして送信者本人にのみ通知され、
// 呼び出し側へはエラーを返しません。
func (r *Room) HandleCommand(ctx context.Context, cmd domain.Command) error {
	if r.closed.Load() {
		return domain.ErrRoomClosed
	}
	p := r.playerByID(cmd.PlayerID)
	if p == nil {
		slog.WarnContext(ctx, "command from unknown player",
			"room", r.ID, "player", cmd.PlayerID, "type", cmd.Type.String())
		return nil
	}
	if cmd.SessionID != p.SessionID() {
		slog.WarnContext(ctx, "session tag mismatch, discarding command",
			"room", r.ID, "player", cmd.PlayerID, "type", cmd.Type.String())
		return nil
	}

	switch cmd.Type {
	case domain.CommandAck:
		if cmd.Ack != nil {
			p.pending.AckReceived(cmd.Ack.Sequence)
		}
		return nil
	case domain.CommandPing:
		// 受信時点でセッションのactivityは更新済み
		return nil
	}

	// シーケンスを欠くack対象コマンドはdedupキーが衝突するため、
	// 適用前に破棄する。再送は求めない。
	rules := domain.CommandAckRules{}
	if rules.IsAckRequired(cmd) {
		if err := rules.ValidateAckEvent(cmd); err != nil {
			slog.WarnContext(ctx, "discarding ack-required command",
				"room", r.ID, "player", cmd.PlayerID, "type", cmd.Type.String(), "error", err)
			return nil
		}
	}

	err := r.processor.ProcessInput(cmd,
		func(c domain.Command) error { return r.apply(ctx, p, c) },
		func(c domain.Command) { r.sendAck(p, c) },
	)
	if err != nil {
		var gameErr *domain.GameError
		if errors.As(err, &gameErr) {
			slog.InfoContext(ctx, "command rejected",
				"room", r.ID, "player", cmd.PlayerID, "type", cmd.Type.String(),
				"code", gameErr.Code.String())
			r.sendError(p, gameErr.Code)
			return nil
		}
		return err
	}
	return nil
}

// apply は検証済みコマンドをゲーム状態へ適用します。
func (r *Room) apply(ctx context.Context, p *Player, cmd domain.Command) error {
	switch cmd.Type {
	case domain.CommandMove:
		if cmd.Move == nil {
			return domain.ErrCommandNotRecognized
		}
		return r.applyMove(p, cmd.Move)
	case domain.CommandAttack:
		if cmd.Attack == nil {
			return domain.ErrCommandNotRecognized
		}
		return r.applyAttack(ctx, p, cmd.Attack)
	case domain.CommandChat:
		if cmd.Chat == nil {
			return domain.ErrCommandNotRecognized
		}
		r.applyChat(ctx, p, cmd.Chat)
		return nil
	case domain.CommandTeleport:
		if cmd.Teleport == nil {
			return domain.ErrCommandNotRecognized
		}
		return r.applyTeleport(ctx, p, cmd.Teleport)
	case domain.CommandPowerUp:
		if cmd.PowerUp == nil {
			return domain.ErrCommandNotRecognized
		}
		return r.applyPowerUp(ctx, p, cmd.PowerUp)
	default:
		return domain.ErrCommandNotRecognized
	}
}

func (r *Room) applyMove(p *Player, mv *domain.MoveCommand) error {
	now := r.clk()
	err := p.moveChecked(mv.Position, mv.Direction, now, func(distance, periodSeconds float64) error {
		if anticheat.IsTooMuchDistanceTravelled(distance, periodSeconds, r.cfg.MovementSpeed) {
			return domain.NewGameError(domain.CodeGeneric, "movement speed exceeds allowed maximum")
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.stageMove(p.ID, domain.Event{
		Type: domain.EventMove,
		Move: &domain.MoveEvent{
			PlayerID:  p.ID,
			Position:  mv.Position,
			Direction: mv.Direction,
		},
	})
	return nil
}

func (r *Room) applyAttack(ctx context.Context, attacker *Player, atk *domain.AttackCommand) error {
	if atk.VictimID == attacker.ID {
		return domain.ErrSelfAttack
	}
	victim := r.playerByID(atk.VictimID)
	if victim == nil {
		return domain.NewGameError(domain.CodeGeneric, "attack victim not found")
	}
	profile := r.arena.Profile(r.ID, atk.Weapon)
	if profile == nil {
		return domain.NewGameError(domain.CodeGeneric, "unknown weapon")
	}

	attackerPos := attacker.Position()
	victimPos := victim.Position()
	if anticheat.IsAttackingTooFar(attackerPos, victimPos, profile) {
		return domain.NewGameError(domain.CodeGeneric, "victim is out of weapon range")
	}
	if anticheat.IsCrossingWalls(attackerPos, victimPos, r.level.Walls) {
		return domain.NewGameError(domain.CodeGeneric, "no line of sight to victim")
	}
	if !attacker.tryAttack(atk.Weapon, profile.AttackCooldownMls, r.clk()) {
		return domain.NewGameError(domain.CodeGeneric, "weapon is on cooldown")
	}

	damage := profile.Damage(geometry.Distance(attackerPos, victimPos))
	health, killed := victim.applyDamage(damage)

	result := domain.AttackResultEvent{
		AttackerID:   attacker.ID,
		VictimID:     victim.ID,
		Weapon:       atk.Weapon,
		Damage:       damage,
		VictimHealth: health,
		Killed:       killed,
	}
	if killed {
		victim.respawn(r.nextSpawn())
		snapshot := victim.Snapshot()
		result.Respawn = &snapshot
		slog.InfoContext(ctx, "player killed",
			"room", r.ID, "attacker", attacker.ID, "victim", victim.ID,
			"weapon", atk.Weapon.String())
	}
	r.broadcast(ctx, domain.Event{
		Type:   domain.EventAttackResult,
		Attack: &result,
	})
	return nil
}

func (r *Room) applyChat(ctx context.Context, p *Player, chat *domain.ChatCommand) {
	r.broadcast(ctx, domain.Event{
		Type: domain.EventChat,
		Chat: &domain.ChatEvent{
			PlayerID: p.ID,
			Name:     p.Name,
			Text:     chat.Text,
		},
	})
}

func (r *Room) applyTeleport(ctx context.Context, p *Player, tp *domain.TeleportCommand) error {
	teleport, ok := r.level.Teleports.Get(tp.TeleportID)
	if !ok {
		return domain.NewGameError(domain.CodeGeneric, "teleport not found")
	}
	if anticheat.IsTeleportTooFar(p.Position(), teleport.Location) {
		return domain.NewGameError(domain.CodeGeneric, "teleport is out of reach")
	}
	dest, ok := r.level.Teleports.Destination(tp.TeleportID)
	if !ok {
		return domain.NewGameError(domain.CodeGeneric, "teleport destination missing")
	}
	// 出現位置は使用したテレポートのSpawnTo、向きは対のテレポートのもの
	p.teleportTo(teleport.SpawnTo, dest.Direction)

	// テレポートは離散イベントのため、tick集約を待たず即時配送する
	r.broadcast(ctx, domain.Event{
		Type: domain.EventMove,
		Move: &domain.MoveEvent{
			PlayerID:  p.ID,
			Position:  teleport.SpawnTo,
			Direction: dest.Direction,
		},
	})
	return nil
}

func (r *Room) applyPowerUp(ctx context.Context, p *Player, pu *domain.PowerUpCommand) error {
	if pu.Index < 0 || pu.Index >= len(r.level.PowerUps) {
		return domain.NewGameError(domain.CodeGeneric, "power-up not found")
	}
	target := r.level.PowerUps[pu.Index]
	if anticheat.IsPowerUpTooFar(p.Position(), target.Position) {
		return domain.NewGameError(domain.CodeGeneric, "power-up is out of reach")
	}

	health := p.Health()
	if target.Kind == gamemap.PowerUpHealth {
		health = p.heal(healthPowerUpAmount)
	}
	r.broadcast(ctx, domain.Event{
		Type: domain.EventPowerUp,
		PowerUp: &domain.PowerUpEvent{
			PlayerID: p.ID,
			Index:    pu.Index,
			Health:   health,
		},
	})
	return nil
}

// healthPowerUpAmount は回復パワーアップの回復量です。
const healthPowerUpAmount = 50

// stageMove はtick配送までプレイヤーの最新の移動イベントを保持します。
// 同一tick内の古い移動は新しいもので上書きされます。
func (r *Room) stageMove(playerID uint32, ev domain.Event) {
	r.moveMu.Lock()
	r.pendingMoves[playerID] = ev
	r.moveMu.Unlock()
}

// FlushMoves は保留中の移動イベントをまとめて配送します。
func (r *Room) FlushMoves(ctx context.Context) {
	r.moveMu.Lock()
	if len(r.pendingMoves) == 0 {
		r.moveMu.Unlock()
		return
	}
	staged := r.pendingMoves
	r.pendingMoves = make(map[uint32]domain.Event)
	r.moveMu.Unlock()

	for _, ev := range staged {
		r.broadcast(ctx, ev)
	}
}

// Run はルームのバックグラウンドループを起動します。
// tickごとの移動配送と、処理済みイベントIDの定期掃除です。
func (r *Room) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(r.cfg.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				r.FlushMoves(ctx)
			}
		}
	})
	g.Go(func() error {
		r.processed.Run(ctx, reliable.DefaultSweepInterval)
		return ctx.Err()
	})
	return g.Wait()
}

// RemovePlayer はプレイヤーをルームから除去します。冪等で、
// 既に除去済みのIDに対しては何もしません。
func (r *Room) RemovePlayer(ctx context.Context, playerID uint32) {
	r.mu.Lock()
	p, ok := r.players[playerID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.players, playerID)
	delete(r.names, p.Name)
	online := len(r.players)
	r.mu.Unlock()

	// 去った相手へのackはもう届かないため、保留中の配達確認を一括解除する
	cancelled := p.pending.AckNotRequiredIf(func(domain.Event) bool { return true })
	p.session.Close()
	p.conn.Close()
	if dg := p.Datagram(); dg != nil {
		dg.Close()
	}

	slog.InfoContext(ctx, "player removed",
		"room", r.ID, "player", playerID, "online", online, "cancelled_acks", cancelled)

	r.broadcast(ctx, domain.Event{
		Type:  domain.EventLeave,
		Leave: &domain.LeaveEvent{PlayerID: playerID},
	})
}

// Close はルームを閉鎖します。全プレイヤーへ閉鎖を通知し、
// 保留状態を解放して接続を切断します。2回目以降の呼び出しは無視されます。
func (r *Room) Close(ctx context.Context) {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}

	r.mu.Lock()
	remaining := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		remaining = append(remaining, p)
	}
	r.players = make(map[uint32]*Player)
	r.names = make(map[string]uint32)
	r.mu.Unlock()

	for _, p := range remaining {
		r.sendError(p, domain.CodeRoomClosed)
		p.pending.AckNotRequiredIf(func(domain.Event) bool { return true })
		p.session.Close()
		p.conn.Close()
		if dg := p.Datagram(); dg != nil {
			dg.Close()
		}
	}
	slog.InfoContext(ctx, "room closed", "room", r.ID, "players", len(remaining))
}

// PlayerBySession はセッションIDに一致するプレイヤーを返します。
// データグラム経路の接続をプレイヤーへ紐づける際に使用します。
func (r *Room) PlayerBySession(sessionID string) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		if p.SessionID() == sessionID {
			return p
		}
	}
	return nil
}

// PlayerCount は現在の在室プレイヤー数を返します。
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

func (r *Room) playerByID(id uint32) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.players[id]
}

// nextSpawn はスポーン地点をラウンドロビンで選択します。
func (r *Room) nextSpawn() gamemap.Spawn {
	idx := r.spawnIdx.Add(1) - 1
	return r.level.Spawns[int(idx)%len(r.level.Spawns)]
}

// broadcast は全プレイヤーへイベントを配送します。
// 1回の配送で採番するイベントIDは1つで、受信者ごとにコピーへ
// セッションタグと在室数を刻印します。ack対象イベントは受信者の
// 保留レジストリへ登録され、送信キューが満杯の受信者へは
// 配送を諦めて警告を残します。
func (r *Room) broadcast(ctx context.Context, ev domain.Event) {
	r.broadcastExcept(ctx, 0, ev)
}

func (r *Room) broadcastExcept(ctx context.Context, excludeID uint32, ev domain.Event) {
	r.mu.Lock()
	recipients := make([]*Player, 0, len(r.players))
	for id, p := range r.players {
		if id == excludeID {
			continue
		}
		recipients = append(recipients, p)
	}
	online := len(r.players)
	r.mu.Unlock()

	r.broadcastTo(ctx, recipients, online, ev)
}

func (r *Room) broadcastTo(ctx context.Context, recipients []*Player, online int, ev domain.Event) {
	if len(recipients) == 0 {
		return
	}
	eventID := r.eventSeq.Next()
	for _, p := range recipients {
		out := ev
		out.EventID = eventID
		out.SessionID = p.SessionID()
		out.PlayersOnline = online
		r.deliver(ctx, p, out)
	}
}

// sendError は送信者本人にのみエラーコードを通知します。
func (r *Room) sendError(p *Player, code domain.ErrorCode) {
	ev := domain.Event{
		Type:      domain.EventError,
		EventID:   r.eventSeq.Next(),
		SessionID: p.SessionID(),
		Error:     &domain.ErrorEvent{Code: code},
	}
	r.deliver(context.Background(), p, ev)
}

// sendAck は受信コマンドへの配達確認を、元コマンドと同じ経路で返送します。
func (r *Room) sendAck(p *Player, cmd domain.Command) {
	ev := domain.Event{
		Type:        domain.EventAck,
		EventID:     r.eventSeq.Next(),
		SessionID:   p.SessionID(),
		ViaDatagram: cmd.Origin == domain.OriginDatagram,
		Ack:         &domain.AckEvent{Sequence: cmd.Sequence},
	}
	r.deliver(context.Background(), p, ev)
}

// deliver は受信者の保留レジストリへの登録と送信キューへの投入を行います。
func (r *Room) deliver(ctx context.Context, p *Player, ev domain.Event) {
	if err := p.pending.RequireAck(ev.EventID, ev); err != nil {
		slog.WarnContext(ctx, "dropping event, too many unacked",
			"room", r.ID, "player", p.ID, "type", ev.Type.String(), "error", err)
		return
	}
	if err := p.outbox.Offer(ev); err != nil {
		p.pending.AckNotRequired(ev.EventID)
		slog.WarnContext(ctx, "dropping event, outbox full",
			"room", r.ID, "player", p.ID, "type", ev.Type.String())
	}
}
