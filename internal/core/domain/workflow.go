package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Workflow is a named directed graph of ticket states and legal transitions,
// scoped to a tenant and optionally a brand. A nil BrandID means the workflow
// applies tenant-wide.
type Workflow struct {
	ID        int64
	TenantID  uuid.UUID
	BrandID   *uuid.UUID
	Name      string
	Slug      string
	IsDefault bool

	States      []WorkflowState
	Transitions []WorkflowTransition

	CreatedAt time.Time
	UpdatedAt time.Time
}

// WorkflowState is a node in a workflow graph.
type WorkflowState struct {
	ID          int64
	WorkflowID  int64
	Slug        string
	Name        string
	Position    int
	IsInitial   bool
	IsTerminal  bool
	SlaMinutes  *int
	EntryHook   string
	Description string
}

// WorkflowTransition is a directed edge between two states. A nil FromStateID
// matches a ticket that has not yet been assigned a state.
type WorkflowTransition struct {
	ID              int64
	WorkflowID      int64
	FromStateID     *int64
	ToStateID       int64
	RequiresComment bool
	GuardHook       string
	Metadata        map[string]string
}

// AppliesTo reports whether the workflow is usable for the given tenant/brand
// pair. Tenant-wide workflows (nil brand) apply to every brand of the tenant.
func (w *Workflow) AppliesTo(tenantID uuid.UUID, brandID *uuid.UUID) bool {
	if w.TenantID != tenantID {
		return false
	}
	if w.BrandID == nil {
		return true
	}
	return brandID != nil && *w.BrandID == *brandID
}

// StateBySlug returns the state with the given slug, or nil.
func (w *Workflow) StateBySlug(slug string) *WorkflowState {
	for i := range w.States {
		if w.States[i].Slug == slug {
			return &w.States[i]
		}
	}
	return nil
}

// StateByID returns the state with the given id, or nil.
func (w *Workflow) StateByID(id int64) *WorkflowState {
	for i := range w.States {
		if w.States[i].ID == id {
			return &w.States[i]
		}
	}
	return nil
}

// InitialState picks the workflow's entry state: the first state flagged
// IsInitial, else the state with the lowest position. Returns nil when the
// workflow defines no states.
func (w *Workflow) InitialState() *WorkflowState {
	if len(w.States) == 0 {
		return nil
	}
	for i := range w.States {
		if w.States[i].IsInitial {
			return &w.States[i]
		}
	}
	lowest := &w.States[0]
	for i := range w.States {
		if w.States[i].Position < lowest.Position {
			lowest = &w.States[i]
		}
	}
	return lowest
}

// FindTransition looks up the edge for the exact (from, to) pair. A ticket
// with no assigned state matches only edges whose FromStateID is nil.
func (w *Workflow) FindTransition(fromStateID *int64, toStateID int64) *WorkflowTransition {
	for i := range w.Transitions {
		tr := &w.Transitions[i]
		if tr.ToStateID != toStateID {
			continue
		}
		if fromStateID == nil && tr.FromStateID == nil {
			return tr
		}
		if fromStateID != nil && tr.FromStateID != nil && *tr.FromStateID == *fromStateID {
			return tr
		}
	}
	return nil
}

// StatesByPosition returns the states ordered by position, then id.
func (w *Workflow) StatesByPosition() []WorkflowState {
	states := make([]WorkflowState, len(w.States))
	copy(states, w.States)
	sort.Slice(states, func(i, j int) bool {
		if states[i].Position != states[j].Position {
			return states[i].Position < states[j].Position
		}
		return states[i].ID < states[j].ID
	})
	return states
}
