package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/slotguard/internal/calendar"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		if event.Type == TraceRequest {
			fmt.Fprintf(&buf, "  [%d] %s %v -> %v\n", event.Step, event.Op, event.Args, event.Outcome)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns one
// message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertFinalState:
			err = assertFinalState(result, a)
		case AssertMetrics:
			err = assertMetrics(result, a)
		case AssertNotifications:
			err = assertNotifications(result, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

// assertFinalState compares the IDs left in the store. With an owner they
// are sorted by start, otherwise they are in storage order.
func assertFinalState(result *Result, a Assertion) error {
	var events []calendar.Event
	if a.Owner == "" {
		events = result.State
	} else {
		for _, e := range result.State {
			if e.Owner == a.Owner {
				events = append(events, e)
			}
		}
		calendar.SortByStart(events)
	}

	got := calendar.IDs(events)
	if slices.Equal(a.IDs, got) {
		return nil
	}

	scope := "all owners"
	if a.Owner != "" {
		scope = a.Owner
	}
	return &AssertionError{
		Type:     AssertFinalState,
		Expected: fmt.Sprintf("%s holds %v", scope, a.IDs),
		Actual:   fmt.Sprintf("%v", got),
		Trace:    result.Trace,
	}
}

func assertMetrics(result *Result, a Assertion) error {
	m := result.Metrics
	var diffs []string
	check := func(name string, want *uint64, got uint64) {
		if want != nil && *want != got {
			diffs = append(diffs, fmt.Sprintf("%s=%d (want %d)", name, got, *want))
		}
	}
	check("total_requests", a.TotalRequests, m.TotalRequests)
	check("successful_adds", a.SuccessfulAdds, m.SuccessfulAdds)
	check("conflicts", a.Conflicts, m.Conflicts)

	if len(diffs) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertMetrics,
		Expected: "matching store counters",
		Actual:   strings.Join(diffs, ", "),
		Trace:    result.Trace,
	}
}

func assertNotifications(result *Result, a Assertion) error {
	kinds := make([]string, len(result.Notifications))
	for i, msg := range result.Notifications {
		kinds[i] = string(msg.Kind)
	}

	if a.Count != nil && *a.Count != len(kinds) {
		return &AssertionError{
			Type:     AssertNotifications,
			Expected: fmt.Sprintf("%d notifications", *a.Count),
			Actual:   fmt.Sprintf("%d notifications %v", len(kinds), kinds),
			Trace:    result.Trace,
		}
	}
	if a.Kinds != nil && !slices.Equal(a.Kinds, kinds) {
		return &AssertionError{
			Type:     AssertNotifications,
			Expected: fmt.Sprintf("kinds %v", a.Kinds),
			Actual:   fmt.Sprintf("kinds %v", kinds),
			Trace:    result.Trace,
		}
	}
	return nil
}
