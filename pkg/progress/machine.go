package progress

import "github.com/papercomputeco/dossier/pkg/event"

// Machine holds a single monotonic status. It only moves forward through the
// stage ordering; Failed is reachable from any non-terminal status, and
// Completed and Failed are final.
type Machine struct {
	status Status
}

// NewMachine returns a Machine at Idle.
func NewMachine() *Machine {
	return &Machine{status: Idle}
}

// Status returns the current status.
func (m *Machine) Status() Status {
	return m.status
}

// Advance moves to next when it is further along than the current status.
// It reports whether the status changed.
func (m *Machine) Advance(next Status) bool {
	if m.status.Terminal() || next == Failed {
		return false
	}
	if next.Rank() <= m.status.Rank() {
		return false
	}

	m.status = next
	return true
}

// Fail moves to Failed unless the status is already terminal. It reports
// whether the status changed.
func (m *Machine) Fail() bool {
	if m.status.Terminal() {
		return false
	}

	m.status = Failed
	return true
}

// Reset returns the machine to Idle for a new request.
func (m *Machine) Reset() {
	m.status = Idle
}

// Target maps an event to the status it signals. The first matching rule
// wins. focusedParsed reports whether the event's focused summary was
// accepted as an item.
//
// Any decoded event shows that the pipeline is running, so an event matching
// no stage rule still signals Searching.
func Target(ev event.Event, focusedParsed bool) Status {
	switch {
	case ev.Stage.Report != nil:
		return Completed
	case ev.Stage.SearchResults != nil:
		return Extracting
	case ev.Stage.Contents != nil:
		return Summarizing
	case ev.Stage.Summaries != nil:
		return Reporting
	case focusedParsed:
		return Reporting
	default:
		return Searching
	}
}
