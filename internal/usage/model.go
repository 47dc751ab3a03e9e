package usage

import "time"

// DefaultWindow is how long a quota period lasts.
const DefaultWindow = 24 * time.Hour

// Usage is a client's quota snapshot. Only counts are kept, never verdicts.
type Usage struct {
	Limit    int       `json:"limit"`
	Used     int       `json:"used"`
	ResetsAt time.Time `json:"resetsAt"`
}

// Remaining returns how many analyses are left in the window.
func (u Usage) Remaining() int {
	if u.Used >= u.Limit {
		return 0
	}
	return u.Limit - u.Used
}

type policy struct {
	limit  int
	window time.Duration
	now    func() time.Time
}

func (p policy) fresh() Usage {
	return Usage{
		Limit:    p.limit,
		Used:     0,
		ResetsAt: p.now().UTC().Add(p.window),
	}
}

// roll starts a new window when the current one has elapsed and applies the
// configured limit.
func (p policy) roll(u Usage) (Usage, bool) {
	changed := false
	now := p.now().UTC()
	if !now.Before(u.ResetsAt) {
		u.Used = 0
		u.ResetsAt = now.Add(p.window)
		changed = true
	}
	if u.Limit != p.limit {
		u.Limit = p.limit
		changed = true
	}
	return u, changed
}
