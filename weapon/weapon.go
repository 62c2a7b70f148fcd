package weapon

// Type は武器種別です。
type Type uint8

const (
	Punch Type = iota
	Shotgun
	Minigun
	Railgun
	RocketLauncher
	Plasmagun
	// 以下は未実装の武器。プロファイルは存在するがダメージは常に0。
	Pistol
	MachineGun
)

// AllTypes は定義済みの全武器種別です。
var AllTypes = []Type{Punch, Shotgun, Minigun, Railgun, RocketLauncher, Plasmagun, Pistol, MachineGun}

func (t Type) String() string {
	switch t {
	case Punch:
		return "punch"
	case Shotgun:
		return "shotgun"
	case Minigun:
		return "minigun"
	case Railgun:
		return "railgun"
	case RocketLauncher:
		return "rocket_launcher"
	case Plasmagun:
		return "plasmagun"
	case Pistol:
		return "pistol"
	case MachineGun:
		return "machine_gun"
	default:
		return "unknown"
	}
}

// DamageProfile は1ルーム・1武器ごとのダメージ特性です。
// 生成後は不変で、DistanceAmplifier は純粋関数です。
type DamageProfile struct {
	BaseDamage           int
	MaxEffectiveDistance float64
	AttackCooldownMls    int
	DistanceAmplifier    func(distance float64) float64
}

// Damage は距離に応じた実ダメージを返します。
func (p *DamageProfile) Damage(distance float64) int {
	return int(float64(p.BaseDamage) * p.DistanceAmplifier(distance))
}

// Config はルームごとに上書き可能な武器設定です。
// 未指定の武器はデフォルト値を使用します。
type Config struct {
	CooldownMls map[Type]int
	MaxDistance map[Type]float64
}

func (c Config) cooldown(t Type, def int) int {
	if v, ok := c.CooldownMls[t]; ok {
		return v
	}
	return def
}

func (c Config) maxDistance(t Type, def float64) float64 {
	if v, ok := c.MaxDistance[t]; ok {
		return v
	}
	return def
}

// newProfile は武器種別ごとのプロファイルを構築します。
func newProfile(t Type, cfg Config) *DamageProfile {
	switch t {
	case Punch:
		maxDist := cfg.maxDistance(t, 1)
		return &DamageProfile{
			BaseDamage:           50,
			MaxEffectiveDistance: maxDist,
			AttackCooldownMls:    cfg.cooldown(t, 300),
			DistanceAmplifier:    flatAmplifier(maxDist),
		}
	case Shotgun:
		maxDist := cfg.maxDistance(t, 7)
		return &DamageProfile{
			BaseDamage:           20,
			MaxEffectiveDistance: maxDist,
			AttackCooldownMls:    cfg.cooldown(t, 450),
			DistanceAmplifier: func(distance float64) float64 {
				switch {
				case distance > maxDist:
					return 0
				case distance < 1:
					return 3
				case distance < 2:
					return 2
				default:
					return 1
				}
			},
		}
	case Minigun:
		maxDist := cfg.maxDistance(t, 7)
		return &DamageProfile{
			BaseDamage:           5,
			MaxEffectiveDistance: maxDist,
			AttackCooldownMls:    cfg.cooldown(t, 155),
			DistanceAmplifier:    flatAmplifier(maxDist),
		}
	case Railgun:
		maxDist := cfg.maxDistance(t, 10)
		return &DamageProfile{
			BaseDamage:           75,
			MaxEffectiveDistance: maxDist,
			AttackCooldownMls:    cfg.cooldown(t, 1700),
			DistanceAmplifier:    flatAmplifier(maxDist),
		}
	case RocketLauncher:
		maxDist := cfg.maxDistance(t, 8)
		return &DamageProfile{
			BaseDamage:           75,
			MaxEffectiveDistance: maxDist,
			AttackCooldownMls:    cfg.cooldown(t, 1250),
			DistanceAmplifier: func(distance float64) float64 {
				switch {
				case distance > maxDist:
					return 0
				case distance <= 1:
					return 1
				default:
					return 1 / distance
				}
			},
		}
	case Plasmagun:
		maxDist := cfg.maxDistance(t, 7)
		return &DamageProfile{
			BaseDamage:           15,
			MaxEffectiveDistance: maxDist,
			AttackCooldownMls:    cfg.cooldown(t, 150),
			DistanceAmplifier:    flatAmplifier(maxDist),
		}
	default:
		// 未実装武器: ダメージ0・増幅率0.0
		return &DamageProfile{
			BaseDamage:           0,
			MaxEffectiveDistance: cfg.maxDistance(t, 0),
			AttackCooldownMls:    cfg.cooldown(t, 0),
			DistanceAmplifier:    func(float64) float64 { return 0 },
		}
	}
}

// flatAmplifier は射程内で一律1倍、射程外で0倍の増幅関数を返します。
func flatAmplifier(maxDist float64) func(float64) float64 {
	return func(distance float64) float64 {
		if distance > maxDist {
			return 0
		}
		return 1
	}
}
