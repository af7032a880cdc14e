package model

import "strings"

// Status is a character status filter. Title is the spelling the server uses
// in character records; Value is the spelling of the status query parameter.
type Status struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

var (
	StatusAlive   = Status{Title: "Alive", Value: "alive"}
	StatusDead    = Status{Title: "Dead", Value: "dead"}
	StatusUnknown = Status{Title: "unknown", Value: "unknown"}
)

// Statuses returns the closed set of filterable statuses in display order.
func Statuses() []Status {
	return []Status{StatusAlive, StatusDead, StatusUnknown}
}

// ParseStatus resolves a title or query value, case-insensitively.
func ParseStatus(s string) (Status, bool) {
	s = strings.TrimSpace(s)
	for _, st := range Statuses() {
		if strings.EqualFold(s, st.Title) || strings.EqualFold(s, st.Value) {
			return st, true
		}
	}
	return Status{}, false
}

// Matches reports whether a character record carries this status.
// The comparison is exact against Title.
func (s Status) Matches(c Character) bool {
	return c.Status == s.Title
}

func (s Status) String() string {
	return s.Title
}
