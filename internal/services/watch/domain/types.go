package domain

import "time"

// State is the phase a site loop is in
type State string

// Loop states, in cycle order
const (
	StateIdle         State = "idle"
	StateFetching     State = "fetching"
	StateExtracting   State = "extracting"
	StateFilteringNew State = "filtering_new"
	StateSearching    State = "searching"
	StateNotifying    State = "notifying"
	StatePersisting   State = "persisting"
	StateSleeping     State = "sleeping"
)

// CycleStats summarises one poll cycle
type CycleStats struct {
	CycleID    string    `json:"cycle_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Listed     int       `json:"listed"`   // candidates inside the window
	New        int       `json:"new"`      // not yet seen
	Searches   int       `json:"searches"` // code searches issued
	Matched    int       `json:"matched"`
	Notified   int       `json:"notified"`
	Deferred   int       `json:"deferred"` // left for a later cycle
	Recorded   int       `json:"recorded"`
	Baseline   bool      `json:"baseline,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// SiteStatus is the observable state of one site loop
type SiteStatus struct {
	Site      string      `json:"site"`
	State     State       `json:"state"`
	Seen      int         `json:"seen"`
	Cycles    int64       `json:"cycles"`
	NextCycle time.Time   `json:"next_cycle,omitzero"`
	Last      *CycleStats `json:"last,omitempty"`
}
