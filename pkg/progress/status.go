// Package progress tracks how far a research pipeline has advanced.
package progress

// Status is a pipeline stage as observed by the reducer.
type Status string

const (
	Idle        Status = "idle"
	Searching   Status = "searching"
	Extracting  Status = "extracting"
	Summarizing Status = "summarizing"
	Reporting   Status = "reporting"
	Completed   Status = "completed"
	Failed      Status = "failed"
)

// order is the forward stage ordering. Failed sits outside of it.
var order = map[Status]int{
	Idle:        0,
	Searching:   1,
	Extracting:  2,
	Summarizing: 3,
	Reporting:   4,
	Completed:   5,
}

// Rank returns the position of s in the stage ordering, or -1 for Failed
// and unknown statuses.
func (s Status) Rank() int {
	r, ok := order[s]
	if !ok {
		return -1
	}
	return r
}

// Terminal reports whether no further event can change s.
func (s Status) Terminal() bool {
	return s == Completed || s == Failed
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == Failed || s.Rank() >= 0
}

func (s Status) String() string {
	return string(s)
}

// Statuses returns every status in stage order, Failed last.
func Statuses() []Status {
	return []Status{Idle, Searching, Extracting, Summarizing, Reporting, Completed, Failed}
}
