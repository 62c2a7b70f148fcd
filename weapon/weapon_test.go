package weapon

import (
	"sync"
	"testing"
)

func TestShotgunAmplifierTiers(t *testing.T) {
	p := newProfile(Shotgun, Config{})

	cases := []struct {
		distance float64
		want     float64
	}{
		{0.5, 3.0},
		{1.5, 2.0},
		{2.5, 1.0},
		{7.0, 1.0},
		{7.5, 0.0},
	}
	for _, tc := range cases {
		if got := p.DistanceAmplifier(tc.distance); got != tc.want {
			t.Errorf("shotgun amplifier(%v) = %v, want %v", tc.distance, got, tc.want)
		}
	}
}

func TestRocketLauncherFalloff(t *testing.T) {
	p := newProfile(RocketLauncher, Config{})

	if got := p.DistanceAmplifier(0.5); got != 1.0 {
		t.Errorf("amplifier(0.5) = %v, want 1.0", got)
	}
	if got := p.DistanceAmplifier(4); got != 0.25 {
		t.Errorf("amplifier(4) = %v, want 0.25", got)
	}
	if got := p.DistanceAmplifier(100); got != 0 {
		t.Errorf("amplifier(100) = %v, want 0", got)
	}
}

// 全武器で射程外の増幅率は0になる
func TestAmplifierZeroBeyondMaxDistance(t *testing.T) {
	for _, wt := range AllTypes {
		p := newProfile(wt, Config{})
		if got := p.DistanceAmplifier(p.MaxEffectiveDistance + 1); got != 0 {
			t.Errorf("%s: amplifier beyond max distance = %v, want 0", wt, got)
		}
	}
}

func TestDisabledWeaponsDealNoDamage(t *testing.T) {
	for _, wt := range []Type{Pistol, MachineGun} {
		p := newProfile(wt, Config{})
		if p.BaseDamage != 0 {
			t.Errorf("%s: base damage = %d, want 0", wt, p.BaseDamage)
		}
		if got := p.DistanceAmplifier(0); got != 0 {
			t.Errorf("%s: amplifier(0) = %v, want 0", wt, got)
		}
	}
}

func TestDamageUsesAmplifier(t *testing.T) {
	p := newProfile(Shotgun, Config{})
	if got := p.Damage(0.5); got != 60 {
		t.Errorf("shotgun damage at 0.5 = %d, want 60", got)
	}
	if got := p.Damage(100); got != 0 {
		t.Errorf("shotgun damage beyond range = %d, want 0", got)
	}
}

func TestConfigOverrides(t *testing.T) {
	cfg := Config{
		CooldownMls: map[Type]int{Railgun: 2000},
		MaxDistance: map[Type]float64{Railgun: 5},
	}
	p := newProfile(Railgun, cfg)
	if p.AttackCooldownMls != 2000 {
		t.Errorf("cooldown = %d, want 2000", p.AttackCooldownMls)
	}
	if p.MaxEffectiveDistance != 5 {
		t.Errorf("max distance = %v, want 5", p.MaxEffectiveDistance)
	}
	if got := p.DistanceAmplifier(6); got != 0 {
		t.Errorf("amplifier beyond overridden range = %v, want 0", got)
	}
}

func TestArenaCachesPerRoom(t *testing.T) {
	arena := NewArena(nil)
	first := arena.Profile(1, Shotgun)
	second := arena.Profile(1, Shotgun)
	if first != second {
		t.Errorf("expected same cached profile instance")
	}
	other := arena.Profile(2, Shotgun)
	if first == other {
		t.Errorf("rooms must not share profile instances")
	}
}

// 並行初回アクセスでも1ルームにつきプロファイルは1セットしか構築されない
func TestArenaConcurrentFirstAccess(t *testing.T) {
	calls := 0
	var callMu sync.Mutex
	arena := NewArena(func(roomID int) Config {
		callMu.Lock()
		calls++
		callMu.Unlock()
		return Config{}
	})

	const workers = 16
	results := make([]*DamageProfile, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = arena.Profile(7, Railgun)
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if results[i] != results[0] {
			t.Fatalf("worker %d observed a different profile instance", i)
		}
	}
	if calls != 1 {
		t.Errorf("config snapshot taken %d times, want 1", calls)
	}
}
