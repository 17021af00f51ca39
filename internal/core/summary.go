package core

import "time"

// BucketBalance is a compact bucket view for presentation collaborators.
type BucketBalance struct {
	Type  BucketType `json:"type"`
	Total Money      `json:"total"`
}

// CycleOverview is the pacing summary the presentation layer renders for
// the active cycle.
type CycleOverview struct {
	CycleID         string `json:"cycleId"`
	EffectiveBudget Money  `json:"effectiveBudget"`
	TotalSpent      Money  `json:"totalSpent"`
	Remaining       Money  `json:"remaining"`
	DaysElapsed     int    `json:"daysElapsed"`
	DaysTotal       int    `json:"daysTotal"`
	OverBudget      bool   `json:"overBudget"`
}

// NewCycleOverview derives the pacing view of a cycle at a given instant.
func NewCycleOverview(c Cycle, now time.Time) CycleOverview {
	total := int(c.EndDate.Sub(c.StartDate).Hours()/24) + 1
	elapsed := int(now.Sub(c.StartDate).Hours()/24) + 1
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > total {
		elapsed = total
	}
	return CycleOverview{
		CycleID:         c.ID,
		EffectiveBudget: c.EffectiveBudget,
		TotalSpent:      c.TotalSpent,
		Remaining:       Money{Cents: c.RawResult()},
		DaysElapsed:     elapsed,
		DaysTotal:       total,
		OverBudget:      c.CurrentDeficit().Cents > 0,
	}
}
