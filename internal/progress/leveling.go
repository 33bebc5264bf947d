package progress

import "math"

// Curve is the geometric XP curve: leaving level L costs
// round(BaseXP * Growth^(L-1)) experience.
type Curve struct {
	BaseXP int
	Growth float64
}

// DefaultCurve is used when no leveling configuration is supplied.
var DefaultCurve = Curve{BaseXP: 100, Growth: 1.5}

// XPForLevel returns the experience needed to advance from level to level+1.
func (c Curve) XPForLevel(level int) int {
	if level < 1 {
		level = 1
	}
	base := c.BaseXP
	if base <= 0 {
		base = DefaultCurve.BaseXP
	}
	growth := c.Growth
	if growth < 1 {
		growth = 1
	}
	need := math.Round(float64(base) * math.Pow(growth, float64(level-1)))
	if need > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(need)
}

// Profile is the viewer's level state. XP counts progress inside the
// current level; TotalXP never decreases.
type Profile struct {
	Level   int `json:"level"`
	XP      int `json:"xp"`
	TotalXP int `json:"total_xp"`
}

// NewProfile returns a level 1 profile with no experience.
func NewProfile() Profile {
	return Profile{Level: 1}
}

// AddXP adds amount and levels up as many times as the curve allows. It
// returns the number of levels gained. Non-positive amounts are ignored.
func (p *Profile) AddXP(amount int, curve Curve) int {
	if p.Level < 1 {
		p.Level = 1
	}
	if amount <= 0 {
		return 0
	}
	p.TotalXP += amount
	p.XP += amount
	gained := 0
	for {
		need := curve.XPForLevel(p.Level)
		if p.XP < need {
			break
		}
		p.XP -= need
		p.Level++
		gained++
	}
	return gained
}

// ToNextLevel returns how much experience is still missing for the next level.
func (p Profile) ToNextLevel(curve Curve) int {
	level := p.Level
	if level < 1 {
		level = 1
	}
	remaining := curve.XPForLevel(level) - p.XP
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Awards is the XP granted per viewer action.
type Awards struct {
	PerEpisode    int
	PerCompletion int
	PerRating     int
}

// ForProgress returns the XP for newly watched episodes plus the completion
// bonus. Negative counts earn nothing.
func (a Awards) ForProgress(newEpisodes int, firstCompletion bool) int {
	xp := 0
	if newEpisodes > 0 {
		xp += newEpisodes * a.PerEpisode
	}
	if firstCompletion {
		xp += a.PerCompletion
	}
	return xp
}

// ForRating returns the XP for rating a title for the first time.
func (a Awards) ForRating(firstRating bool) int {
	if !firstRating {
		return 0
	}
	return a.PerRating
}
