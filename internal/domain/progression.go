package domain

import "time"

// PlayerProgression is a player's persistent level, experience and coin
// balance, independent of any single session. New players start at level 1
// with zero XP and zero coins.
type PlayerProgression struct {
	PlayerID  string    `json:"player_id"`
	Level     int       `json:"level"`
	XP        int64     `json:"xp"`
	Coins     int64     `json:"coins"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewProgression returns the starting progression for a fresh player
func NewProgression(playerID string) PlayerProgression {
	now := time.Now()
	return PlayerProgression{
		PlayerID:  playerID,
		Level:     1,
		XP:        0,
		Coins:     0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// LevelUp describes a player crossing one or more level thresholds
type LevelUp struct {
	PlayerID     string `json:"player_id"`
	NewLevel     int    `json:"new_level"`
	LevelsGained int    `json:"levels_gained"`
	XPGained     int64  `json:"xp_gained"`
}

// XPForLevel returns the cumulative XP required to reach the given level.
// The per-level cost starts at 100 and grows by 50 each level, so the
// threshold for level L is the sum of 100+(l-1)*50 over levels 1..L-1.
func XPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	var total int64
	for lvl := 1; lvl < level; lvl++ {
		total += 100 + int64(lvl-1)*50
	}
	return total
}

// XPForNextLevel returns the XP span between the current and next level
func (p *PlayerProgression) XPForNextLevel() int64 {
	return XPForLevel(p.Level+1) - XPForLevel(p.Level)
}

// Progress returns the completion percentage toward the next level, capped at 100
func (p *PlayerProgression) Progress() float64 {
	current := XPForLevel(p.Level)
	next := XPForLevel(p.Level + 1)
	span := next - current
	if span <= 0 {
		return 100
	}
	pct := float64(p.XP-current) / float64(span) * 100
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}

// AddXP credits experience and advances the level while the cumulative XP
// clears the next threshold. Non-positive amounts are rejected without
// mutation. Returns whether a level-up occurred and how many levels were
// gained.
func (p *PlayerProgression) AddXP(amount int64) (bool, int) {
	if amount <= 0 {
		return false, 0
	}

	oldLevel := p.Level
	p.XP += amount

	newLevel := oldLevel
	for p.XP >= XPForLevel(newLevel+1) {
		newLevel++
	}

	gained := newLevel - oldLevel
	if gained > 0 {
		p.Level = newLevel
	}
	return gained > 0, gained
}

// AddCoins credits the balance; non-positive amounts are rejected
func (p *PlayerProgression) AddCoins(amount int64) bool {
	if amount <= 0 {
		return false
	}
	p.Coins += amount
	return true
}

// DeductCoins debits the balance. The deduction is all-or-nothing: it fails
// without mutation when the amount is non-positive or exceeds the balance.
func (p *PlayerProgression) DeductCoins(amount int64) bool {
	if amount <= 0 || amount > p.Coins {
		return false
	}
	p.Coins -= amount
	return true
}
