package domain

import "testing"

func TestXPForLevel(t *testing.T) {
	tests := []struct {
		level int
		want  int64
	}{
		{level: 0, want: 0},
		{level: 1, want: 0},
		{level: 2, want: 100},
		{level: 3, want: 250},
		{level: 4, want: 450},
		{level: 5, want: 700},
		{level: 10, want: 2700},
	}

	for _, tt := range tests {
		if got := XPForLevel(tt.level); got != tt.want {
			t.Errorf("XPForLevel(%d) = %d, want %d", tt.level, got, tt.want)
		}
	}
}

func TestXPForLevelMonotonic(t *testing.T) {
	prev := XPForLevel(1)
	for level := 2; level <= 50; level++ {
		cur := XPForLevel(level)
		if cur <= prev {
			t.Fatalf("XPForLevel(%d) = %d not greater than XPForLevel(%d) = %d", level, cur, level-1, prev)
		}
		prev = cur
	}
}

func TestAddXP(t *testing.T) {
	tests := []struct {
		name       string
		startXP    int64
		startLevel int
		amount     int64
		wantLevel  int
		wantGained int
	}{
		{name: "no level up", startXP: 0, startLevel: 1, amount: 50, wantLevel: 1, wantGained: 0},
		{name: "exact threshold", startXP: 0, startLevel: 1, amount: 100, wantLevel: 2, wantGained: 1},
		{name: "single level up", startXP: 80, startLevel: 1, amount: 40, wantLevel: 2, wantGained: 1},
		{name: "multi level up", startXP: 0, startLevel: 1, amount: 450, wantLevel: 4, wantGained: 3},
		{name: "zero amount rejected", startXP: 200, startLevel: 2, amount: 0, wantLevel: 2, wantGained: 0},
		{name: "negative amount rejected", startXP: 200, startLevel: 2, amount: -10, wantLevel: 2, wantGained: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProgression("p1")
			p.XP = tt.startXP
			p.Level = tt.startLevel

			leveled, gained := p.AddXP(tt.amount)
			if p.Level != tt.wantLevel {
				t.Errorf("Level = %d, want %d", p.Level, tt.wantLevel)
			}
			if gained != tt.wantGained {
				t.Errorf("gained = %d, want %d", gained, tt.wantGained)
			}
			if leveled != (tt.wantGained > 0) {
				t.Errorf("leveled = %v, want %v", leveled, tt.wantGained > 0)
			}
			if tt.amount > 0 && p.XP != tt.startXP+tt.amount {
				t.Errorf("XP = %d, want %d", p.XP, tt.startXP+tt.amount)
			}
			if tt.amount <= 0 && p.XP != tt.startXP {
				t.Errorf("XP mutated on rejected amount: %d", p.XP)
			}
		})
	}
}

func TestDeductCoins(t *testing.T) {
	tests := []struct {
		name    string
		balance int64
		amount  int64
		wantOK  bool
		want    int64
	}{
		{name: "sufficient", balance: 100, amount: 30, wantOK: true, want: 70},
		{name: "exact balance", balance: 30, amount: 30, wantOK: true, want: 0},
		{name: "insufficient", balance: 20, amount: 30, wantOK: false, want: 20},
		{name: "zero amount", balance: 100, amount: 0, wantOK: false, want: 100},
		{name: "negative amount", balance: 100, amount: -5, wantOK: false, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProgression("p1")
			p.Coins = tt.balance

			if ok := p.DeductCoins(tt.amount); ok != tt.wantOK {
				t.Errorf("DeductCoins(%d) = %v, want %v", tt.amount, ok, tt.wantOK)
			}
			if p.Coins != tt.want {
				t.Errorf("Coins = %d, want %d", p.Coins, tt.want)
			}
		})
	}
}

func TestProgress(t *testing.T) {
	p := NewProgression("p1")
	if got := p.Progress(); got != 0 {
		t.Errorf("Progress at zero XP = %f, want 0", got)
	}

	p.XP = 50
	if got := p.Progress(); got != 50 {
		t.Errorf("Progress at half of level 1 = %f, want 50", got)
	}

	p.XP = 100
	p.Level = 2
	if got := p.Progress(); got != 0 {
		t.Errorf("Progress at level 2 threshold = %f, want 0", got)
	}
}
