package application

import (
	"sync"
	"time"

	"arena/domain"
	"arena/gamemap"
	"arena/geometry"
	"arena/reliable"
	"arena/weapon"
)

const maxHealth = 100

// Player は1ルームに属するプレイヤーの状態です。
// 生成・削除はルームの臨界区間内で行われ、可変状態は
// プレイヤー自身のロックで保護されます。
type Player struct {
	ID   uint32
	Name string

	session  *domain.Session
	conn     *domain.Connection
	outbox   *domain.Queue[domain.Event]
	pending  *reliable.PendingAcks[domain.Event]
	datagram *domain.Connection // UDPリンク接続後に設定される

	mu           sync.Mutex
	position     geometry.Vector
	direction    geometry.Vector
	health       int
	lastMoveAt   time.Time
	lastAttackAt map[weapon.Type]time.Time
}

func newPlayer(id uint32, name string, session *domain.Session, conn *domain.Connection, spawn gamemap.Spawn, outboxCapacity int, now time.Time) *Player {
	return &Player{
		ID:           id,
		Name:         name,
		session:      session,
		conn:         conn,
		outbox:       domain.NewQueue[domain.Event](outboxCapacity),
		pending:      reliable.NewPendingAcks[domain.Event](domain.EventAckRules{}, reliable.ServerOutboundCapacity),
		position:     spawn.Position,
		direction:    spawn.Direction,
		health:       maxHealth,
		lastMoveAt:   now,
		lastAttackAt: make(map[weapon.Type]time.Time),
	}
}

// SessionID はプレイヤーのセッションタグを返します。
func (p *Player) SessionID() string {
	return p.session.ID()
}

// Session は接続に紐づく論理セッションを返します。
func (p *Player) Session() *domain.Session {
	return p.session
}

// Outbox はプレイヤー宛イベントの送信キューを返します。
// 消費者は接続エンドポイントただ1つです。
func (p *Player) Outbox() *domain.Queue[domain.Event] {
	return p.outbox
}

// PendingAcks はこの接続のサーバー発未ackストレージを返します。
func (p *Player) PendingAcks() *reliable.PendingAcks[domain.Event] {
	return p.pending
}

// Position は現在位置を返します。
func (p *Player) Position() geometry.Vector {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

// Health は現在のHPを返します。
func (p *Player) Health() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.health
}

// Snapshot は現在状態のスポーンイベント表現を返します。
func (p *Player) Snapshot() domain.SpawnEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return domain.SpawnEvent{
		PlayerID:  p.ID,
		Name:      p.Name,
		Position:  p.position,
		Direction: p.direction,
		Health:    p.health,
	}
}

// moveChecked は移動距離と経過秒数をvalidateに渡し、妥当な場合のみ
// 位置を更新します。検証と適用を同一ロック内で行います。
func (p *Player) moveChecked(pos, dir geometry.Vector, now time.Time, validate func(distance, periodSeconds float64) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := validate(geometry.Distance(p.position, pos), now.Sub(p.lastMoveAt).Seconds()); err != nil {
		return err
	}
	p.position = pos
	p.direction = dir
	p.lastMoveAt = now
	return nil
}

// tryAttack はクールダウンが明けていれば攻撃時刻を記録してtrueを返します。
func (p *Player) tryAttack(w weapon.Type, cooldownMls int, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	last, ok := p.lastAttackAt[w]
	if ok && now.Sub(last) < time.Duration(cooldownMls)*time.Millisecond {
		return false
	}
	p.lastAttackAt[w] = now
	return true
}

// applyDamage はダメージを適用し、適用後のHPと死亡したかを返します。
func (p *Player) applyDamage(damage int) (health int, killed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.health -= damage
	if p.health <= 0 {
		p.health = 0
		return 0, true
	}
	return p.health, false
}

// respawn は再出現位置へ移動しHPを全快させます。
func (p *Player) respawn(spawn gamemap.Spawn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = spawn.Position
	p.direction = spawn.Direction
	p.health = maxHealth
}

// heal はHPを回復します（上限あり）。回復後のHPを返します。
func (p *Player) heal(amount int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.health += amount
	if p.health > maxHealth {
		p.health = maxHealth
	}
	return p.health
}

// teleportTo はテレポート先へ即時移動します。
func (p *Player) teleportTo(pos, dir geometry.Vector) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = pos
	p.direction = dir
}

// AttachDatagram はデータグラム接続を紐付けます。
func (p *Player) AttachDatagram(conn *domain.Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.datagram = conn
}

// Datagram は紐付け済みのデータグラム接続を返します（未接続ならnil）。
func (p *Player) Datagram() *domain.Connection {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.datagram
}
