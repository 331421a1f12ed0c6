package l6levels

import "math"

// XPToNextLevel is the experience needed to leave level: 100 at level 1,
// growing by 20% per level.
func XPToNextLevel(level int) int {
	if level < 1 {
		level = 1
	}
	return int(math.Floor(100 * math.Pow(1.2, float64(level-1))))
}

// Profile is a user's accumulated progress across sessions.
type Profile struct {
	Level         int `json:"level"`
	XP            int `json:"xp"`
	Coins         int `json:"coins"`
	XPToNextLevel int `json:"xp_to_next_level"`
}

// NewProfile is a level 1 profile with nothing earned.
func NewProfile() Profile {
	return Profile{Level: 1, XPToNextLevel: XPToNextLevel(1)}
}

// Award adds xp and coins, carrying surplus experience through as many
// level-ups as it pays for. It returns the number of levels gained.
func (p *Profile) Award(xp, coins int) int {
	if p.Level < 1 {
		p.Level = 1
	}
	if p.XPToNextLevel <= 0 {
		p.XPToNextLevel = XPToNextLevel(p.Level)
	}
	p.XP += xp
	p.Coins += coins
	gained := 0
	for p.XP >= p.XPToNextLevel {
		p.XP -= p.XPToNextLevel
		p.Level++
		p.XPToNextLevel = XPToNextLevel(p.Level)
		gained++
	}
	return gained
}
