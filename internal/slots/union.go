package slots

import (
	"sort"
	"time"

	"slotbook/internal/model"
)

// UnionSlot is a no-preference slot with the workers free at that time.
type UnionSlot struct {
	TimeSlot
	WorkerIDs []string `json:"worker_ids"`
}

// ComputeNoPreferenceSlots unions the day slots of every worker qualified for the
// services. A time is enabled when at least one worker has it enabled.
func (e *Engine) ComputeNoPreferenceSlots(workers []model.Worker, date time.Time, services []model.Service) []UnionSlot {
	byTime := make(map[int64]*UnionSlot)

	for _, w := range workers {
		if !w.Qualified(services) {
			continue
		}
		for _, s := range e.ComputeDaySlots(w, date, services) {
			key := s.Time.Unix()
			u, ok := byTime[key]
			if !ok {
				u = &UnionSlot{TimeSlot: TimeSlot{Time: s.Time, Disabled: true}, WorkerIDs: []string{}}
				byTime[key] = u
			}
			if !s.Disabled {
				u.Disabled = false
				u.WorkerIDs = append(u.WorkerIDs, w.ID)
			}
		}
	}

	out := make([]UnionSlot, 0, len(byTime))
	for _, u := range byTime {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

// Plain drops the worker lists.
func Plain(union []UnionSlot) []TimeSlot {
	out := make([]TimeSlot, len(union))
	for i, u := range union {
		out[i] = u.TimeSlot
	}
	sortSlots(out)
	return out
}

// FirstFreeWorker returns the first worker free at start, in worker order.
func FirstFreeWorker(union []UnionSlot, start time.Time) (string, bool) {
	for _, u := range union {
		if u.Time.Equal(start) && !u.Disabled && len(u.WorkerIDs) > 0 {
			return u.WorkerIDs[0], true
		}
	}
	return "", false
}
