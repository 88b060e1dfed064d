package model

import "time"

// BatchReport counts the outcome of one dispatched batch. It is transient:
// used for logging, metrics and the reconcile decision, never persisted.
type BatchReport struct {
	Attempted int `json:"attempted"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}

func (r BatchReport) Add(other BatchReport) BatchReport {
	return BatchReport{
		Attempted: r.Attempted + other.Attempted,
		Delivered: r.Delivered + other.Delivered,
		Failed:    r.Failed + other.Failed,
	}
}

// CycleReport aggregates one full pass over all three tiers.
type CycleReport struct {
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Tiers      map[Tier]BatchReport `json:"tiers"`
}

func NewCycleReport() *CycleReport {
	return &CycleReport{
		StartedAt: time.Now(),
		Tiers:     make(map[Tier]BatchReport),
	}
}

func (r *CycleReport) Total() BatchReport {
	var total BatchReport
	for _, tr := range r.Tiers {
		total = total.Add(tr)
	}
	return total
}
