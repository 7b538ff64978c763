package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is one conformance scenario.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Config overrides registry defaults for this run.
	Config *ConfigOverrides `yaml:"config,omitempty"`

	// Units maps URIs to canned responses. Unknown URIs answer 404.
	Units map[string]UnitSpec `yaml:"units,omitempty"`

	// BrokenTransport makes every transport construction fail.
	BrokenTransport bool `yaml:"broken_transport,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// ConfigOverrides sets registry configuration. Nil fields keep defaults.
type ConfigOverrides struct {
	Separator   *string `yaml:"separator,omitempty"`
	BaseURI     *string `yaml:"base_uri,omitempty"`
	Suffix      *string `yaml:"suffix,omitempty"`
	AutoInclude *bool   `yaml:"auto_include,omitempty"`
	Strict      *bool   `yaml:"strict,omitempty"`
}

// UnitSpec is a canned response. Status defaults to 200.
type UnitSpec struct {
	Status int    `yaml:"status,omitempty"`
	Body   string `yaml:"body"`
}

// Step is one registry operation.
type Step struct {
	Op          string   `yaml:"op"`
	ID          string   `yaml:"id,omitempty"`
	IDs         []string `yaml:"ids,omitempty"`
	Rel         string   `yaml:"rel,omitempty"`
	Value       any      `yaml:"value,omitempty"`
	AutoInclude *bool    `yaml:"auto_include,omitempty"`
	Expect      *Expect  `yaml:"expect,omitempty"`
}

// Expect checks the outcome of a step. Without it a step must not fail.
type Expect struct {
	// OK is the expected include result.
	OK *bool `yaml:"ok,omitempty"`

	// Error names the expected failure kind, one of the Err* constants.
	Error string `yaml:"error,omitempty"`
}

// Assertion checks the final trace or bindings.
type Assertion struct {
	Type       string   `yaml:"type"`
	Event      string   `yaml:"event,omitempty"`
	Identifier string   `yaml:"identifier,omitempty"`
	Status     int      `yaml:"status,omitempty"`
	Events     []string `yaml:"events,omitempty"`
	Count      int      `yaml:"count,omitempty"`
	ID         string   `yaml:"id,omitempty"`
	Value      any      `yaml:"value,omitempty"`
	Absent     bool     `yaml:"absent,omitempty"`
	URI        string   `yaml:"uri,omitempty"`
}

// Step operations.
const (
	OpNamespace    = "namespace"
	OpInclude      = "include"
	OpIncludeAsync = "include_async"
	OpUse          = "use"
	OpUseAsync     = "use_async"
	OpProvide      = "provide"
	OpFromUse      = "from_use"
	OpFromUseAsync = "from_use_async"
)

// Expected error kinds.
const (
	ErrAny                  = "any"
	ErrTransportUnavailable = "transport_unavailable"
	ErrLoadFailed           = "load_failed"
	ErrMissingBinding       = "missing_binding"
	ErrInvalidIdentifier    = "invalid_identifier"
)

// Assertion types.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertBinding       = "binding"
	AssertRequests      = "requests"
)

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step) error {
	switch step.Op {
	case OpNamespace, OpInclude, OpIncludeAsync:
		// id may be empty for namespace (root); include rejects it at run time
	case OpUse, OpUseAsync, OpProvide:
		if len(step.IDs) == 0 && step.ID == "" {
			return fmt.Errorf("steps[%d]: id or ids is required for %s", i, step.Op)
		}
	case OpFromUse, OpFromUseAsync:
		if step.ID == "" || step.Rel == "" {
			return fmt.Errorf("steps[%d]: id and rel are required for %s", i, step.Op)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", i)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
	}

	if step.Expect != nil {
		switch step.Expect.Error {
		case "", ErrAny, ErrTransportUnavailable, ErrLoadFailed, ErrMissingBinding, ErrInvalidIdentifier:
		default:
			return fmt.Errorf("steps[%d].expect: unknown error kind %q", i, step.Expect.Error)
		}
	}
	return nil
}

func validateAssertion(i int, a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_contains", i)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", i)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", i)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", i)
		}
	case AssertBinding:
		if a.Value == nil && !a.Absent {
			return fmt.Errorf("assertions[%d]: value or absent is required for binding", i)
		}
	case AssertRequests:
		if a.URI == "" {
			return fmt.Errorf("assertions[%d]: uri is required for requests", i)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", i)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
	}
	return nil
}

// ids returns the identifier list of a step, falling back to its single id.
func (s Step) ids() []string {
	if len(s.IDs) > 0 {
		return s.IDs
	}
	return []string{s.ID}
}
