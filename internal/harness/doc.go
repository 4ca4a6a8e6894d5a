// Package harness runs scheduling scenarios against a real Scheduler and
// checks the outcome.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: double_booking
//	description: "Second overlapping booking is rejected"
//	workers: 2
//	setup:
//	  - { id: 1, title: standup, start: 1000, end: 2000, owner: alice }
//	flow:
//	  - op: add
//	    event: { id: 2, title: review, start: 1500, end: 2500, owner: alice }
//	    expect:
//	      accepted: false
//	      pairs: [{ a: 2, b: 1 }]
//	  - op: query
//	    owner: alice
//	    expect:
//	      ids: [1]
//	assertions:
//	  - type: final_state
//	    owner: alice
//	    ids: [1]
//	  - type: metrics
//	    conflicts: 1
//	  - type: notifications
//	    count: 0
//
// Setup events are added as one batch before the flow and must all be
// accepted. Their notifications are not part of the trace.
//
// # Operations
//
//   - add, replace: event
//   - remove: id
//   - query: owner
//   - query_all
//   - batch: events
//   - suggest: event, max
//   - detect: algorithm (pairwise, sweep or tree)
//
// Any store operation may set async: true to go through the dispatcher
// instead of the caller's goroutine.
//
// # Assertion Types
//
//   - final_state: event IDs left for an owner (all owners when empty)
//   - metrics: store counters after the flow
//   - notifications: count and kinds of notifications emitted by the flow
//
// # Deterministic Testing
//
// Request IDs come from testutil.SequentialIDGenerator and trace sequence
// numbers from testutil.DeterministicClock, so a scenario produces the same
// trace on every run and can be compared against a golden file.
package harness
