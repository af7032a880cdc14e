package characters

import (
	"fmt"

	"github.com/Sternrassler/rickmorty-client/pkg/model"
)

// Phase is the pager's position in its load lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoadingFirstPage
	PhaseLoadingMore
	PhaseReady
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoadingFirstPage:
		return "loading_first_page"
	case PhaseLoadingMore:
		return "loading_more"
	case PhaseReady:
		return "ready"
	case PhaseError:
		return "error"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Mode selects how characters are fetched for a filter.
type Mode string

const (
	// ModePaged reads the character collection page by page, optionally
	// with a server-side status filter.
	ModePaged Mode = "paged"

	// ModeLocation resolves a location's residents in one shot and filters
	// them by status client-side. Pagination is disabled in this mode.
	ModeLocation Mode = "location"
)

// Filter is the selection coming out of the filter drawer. Nil fields mean
// "no filter" for that dimension.
type Filter struct {
	Status   *model.Status
	Location *model.Location
}

// Mode returns the fetch mode the filter selects.
func (f Filter) Mode() Mode {
	if f.Location != nil {
		return ModeLocation
	}
	return ModePaged
}

// Active reports whether any filter dimension is set.
func (f Filter) Active() bool {
	return f.Status != nil || f.Location != nil
}

// statusValue is the query value for ModePaged, "" when unfiltered.
func (f Filter) statusValue() string {
	if f.Status == nil {
		return ""
	}
	return f.Status.Value
}

// State is a read-only snapshot of the pager.
//
// IsLoadingFirstPage and IsLoadingMore are never both true. Once TotalKnown,
// len(Items) never exceeds TotalCount.
type State struct {
	Phase       Phase
	Filter      Filter
	Mode        Mode
	CurrentPage int
	Items       []model.Character
	TotalCount  int
	TotalKnown  bool
	HasMore     bool

	IsLoadingFirstPage bool
	IsLoadingMore      bool

	// Err is set in PhaseError and wraps ErrFetchFailed.
	Err error
}

// FilterActive reports whether the list is filtered (the filter badge).
func (s State) FilterActive() bool {
	return s.Filter.Active()
}

// Header renders the list header. Location mode shows only the resolved
// count; paged mode shows loaded versus server total.
func (s State) Header() string {
	if s.Mode == ModeLocation {
		return fmt.Sprintf("Total Characters %d", len(s.Items))
	}
	if !s.TotalKnown {
		return fmt.Sprintf("Total Characters: %d / ?", len(s.Items))
	}
	return fmt.Sprintf("Total Characters: %d / %d", len(s.Items), s.TotalCount)
}

func (s State) clone() State {
	out := s
	out.Items = append(make([]model.Character, 0, len(s.Items)), s.Items...)
	return out
}
