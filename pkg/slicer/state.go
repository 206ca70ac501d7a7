package slicer

import "github.com/heyjunin/VideoSlicer/pkg/planner"

// State is a step of the run state machine:
// Idle → Probing → Planning → Running → {Completed | Cancelled | Failed}.
type State string

const (
	StateIdle      State = "idle"
	StateProbing   State = "probing"
	StatePlanning  State = "planning"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Result is what a run leaves behind, whatever its outcome.
type Result struct {
	State State `json:"state"`
	// Plan is nil when the run failed before planning.
	Plan *planner.Plan `json:"plan,omitempty"`
	// Written lists the segment files produced, in order.
	Written []string `json:"written"`
	// Percent is the last reported progress.
	Percent int `json:"percent"`
	// Message is the user-facing terminal message.
	Message string `json:"message"`
}
