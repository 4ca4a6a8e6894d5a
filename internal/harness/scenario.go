package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/slotguard/internal/calendar"
	"github.com/roach88/slotguard/internal/conflict"
)

// Scenario defines a scheduling test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Workers sizes the dispatcher pool used by async steps (default 1).
	Workers int `yaml:"workers,omitempty"`

	// Setup is added as a single batch before the flow.
	Setup []calendar.Event `yaml:"setup,omitempty"`

	// Flow contains the operations under test, run in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the state after the flow.
	Assertions []Assertion `yaml:"assertions"`
}

// Op names a flow step operation.
type Op string

const (
	OpAdd      Op = "add"
	OpRemove   Op = "remove"
	OpReplace  Op = "replace"
	OpQuery    Op = "query"
	OpQueryAll Op = "query_all"
	OpBatch    Op = "batch"
	OpSuggest  Op = "suggest"
	OpDetect   Op = "detect"
)

// FlowStep is one operation in the main flow.
type FlowStep struct {
	Op Op `yaml:"op"`

	// Event is the subject of add, replace and suggest.
	Event *calendar.Event `yaml:"event,omitempty"`

	// Events is the subject of batch.
	Events []calendar.Event `yaml:"events,omitempty"`

	// ID is the event removed by remove.
	ID int64 `yaml:"id,omitempty"`

	// Owner selects the events returned by query.
	Owner string `yaml:"owner,omitempty"`

	// Max caps suggest (0 selects the scheduler default).
	Max int `yaml:"max,omitempty"`

	// Algorithm selects the detect strategy (default sweep).
	Algorithm string `yaml:"algorithm,omitempty"`

	// Async routes store operations through the dispatcher.
	Async bool `yaml:"async,omitempty"`

	// Expect is checked against the step's outcome. Only the fields that
	// are set are compared.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a flow step.
type Expect struct {
	Accepted *bool   `yaml:"accepted,omitempty"`
	Found    *bool   `yaml:"found,omitempty"`
	IDs      []int64 `yaml:"ids,omitempty"`
	Batch    []bool  `yaml:"batch,omitempty"`

	// Pairs is compared after conflict.Normalize, so order and orientation
	// do not matter.
	Pairs []conflict.Pair `yaml:"pairs,omitempty"`
	Total *int            `yaml:"total,omitempty"`

	// Starts lists the expected start of each suggestion.
	Starts []int64 `yaml:"starts,omitempty"`

	// Error is the expected engine error code, e.g. INVALID_EVENT.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the state after the flow.
type Assertion struct {
	// Type specifies the assertion type:
	// - "final_state": event IDs held for Owner, or for everyone when empty
	// - "metrics": store counters
	// - "notifications": notifications emitted by the flow
	Type string `yaml:"type"`

	// Owner filters final_state. Empty compares all events in storage order.
	Owner string `yaml:"owner,omitempty"`

	// IDs is the expected final_state, sorted by start for an owner.
	IDs []int64 `yaml:"ids,omitempty"`

	// TotalRequests, SuccessfulAdds and Conflicts are compared when set
	// (used by metrics). They include the setup batch.
	TotalRequests  *uint64 `yaml:"total_requests,omitempty"`
	SuccessfulAdds *uint64 `yaml:"successful_adds,omitempty"`
	Conflicts      *uint64 `yaml:"conflicts,omitempty"`

	// Count is the expected number of notifications.
	Count *int `yaml:"count,omitempty"`

	// Kinds is the expected notification kind sequence.
	Kinds []string `yaml:"kinds,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState    = "final_state"
	AssertMetrics       = "metrics"
	AssertNotifications = "notifications"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches typos like "assertion:" vs "assertions:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
// Event intervals are not checked here; invalid events are legitimate
// inputs for steps that expect INVALID_EVENT.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", s.Workers)
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step *FlowStep) error {
	switch step.Op {
	case OpAdd, OpReplace, OpSuggest:
		if step.Event == nil {
			return fmt.Errorf("flow[%d]: event is required for %s", index, step.Op)
		}
	case OpBatch:
		if len(step.Events) == 0 {
			return fmt.Errorf("flow[%d]: events list is required for batch", index)
		}
	case OpRemove, OpQuery, OpQueryAll:
	case OpDetect:
		if _, err := conflict.ParseAlgorithm(step.Algorithm); err != nil {
			return fmt.Errorf("flow[%d]: %w", index, err)
		}
	case "":
		return fmt.Errorf("flow[%d]: op is required", index)
	default:
		return fmt.Errorf("flow[%d]: unknown op %q", index, step.Op)
	}

	if step.Async && (step.Op == OpSuggest || step.Op == OpDetect) {
		return fmt.Errorf("flow[%d]: %s cannot run async", index, step.Op)
	}
	if step.Max < 0 {
		return fmt.Errorf("flow[%d]: max must be non-negative", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertFinalState:
		if a.IDs == nil {
			return fmt.Errorf("assertions[%d]: ids is required for final_state (use [] for none)", index)
		}
	case AssertMetrics:
		if a.TotalRequests == nil && a.SuccessfulAdds == nil && a.Conflicts == nil {
			return fmt.Errorf("assertions[%d]: metrics needs at least one counter", index)
		}
	case AssertNotifications:
		if a.Count == nil && a.Kinds == nil {
			return fmt.Errorf("assertions[%d]: notifications needs count or kinds", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
