// Package scenario defines the declarative YAML format the CLI uses to
// drive a desk: a labelled sequence of lifecycle steps applied in
// order.
package scenario

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Action names one scenario step kind. Values match the desk's event
// vocabulary.
type Action string

const (
	ActionCheckIn      Action = "check-in"
	ActionUpdate       Action = "update"
	ActionCheckOut     Action = "check-out"
	ActionClear        Action = "clear"
	ActionCheckInMany  Action = "check-in-many"
	ActionUpdateMany   Action = "update-many"
	ActionCheckOutMany Action = "check-out-many"
	ActionWait         Action = "wait"
)

// Duration wraps time.Duration so YAML accepts Go duration strings
// ("250ms", "2s").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string like \"250ms\": %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Scenario is one runnable desk script.
type Scenario struct {
	// Label names the desk for traces and the report header.
	Label string `yaml:"label"`

	// Steps apply in order.
	Steps []Step `yaml:"steps"`
}

// Step is a single scenario action. Which fields apply depends on the
// action: per-item actions use ID/Data/Meta, batch actions use
// Entries or IDs, wait uses Duration.
type Step struct {
	Action   Action         `yaml:"action"`
	ID       string         `yaml:"id,omitempty"`
	Data     map[string]any `yaml:"data,omitempty"`
	Meta     map[string]any `yaml:"meta,omitempty"`
	Entries  []BatchEntry   `yaml:"entries,omitempty"`
	IDs      []string       `yaml:"ids,omitempty"`
	Duration Duration       `yaml:"duration,omitempty"`
}

// BatchEntry is one element of a check-in-many or update-many step.
type BatchEntry struct {
	ID   string         `yaml:"id"`
	Data map[string]any `yaml:"data,omitempty"`
	Meta map[string]any `yaml:"meta,omitempty"`
}

// Validate checks that every step is well-formed. Steps are numbered
// from 1 in error messages.
func (s *Scenario) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario has no steps")
	}
	for i, step := range s.Steps {
		if err := step.validate(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

func (s Step) validate() error {
	switch s.Action {
	case ActionCheckIn, ActionUpdate, ActionCheckOut:
		if s.ID == "" {
			return fmt.Errorf("%s requires an id", s.Action)
		}
	case ActionCheckInMany, ActionUpdateMany:
		if len(s.Entries) == 0 {
			return fmt.Errorf("%s requires entries", s.Action)
		}
		for j, entry := range s.Entries {
			if entry.ID == "" {
				return fmt.Errorf("%s entry %d requires an id", s.Action, j+1)
			}
		}
	case ActionCheckOutMany:
		if len(s.IDs) == 0 {
			return fmt.Errorf("%s requires ids", s.Action)
		}
	case ActionWait:
		if s.Duration <= 0 {
			return fmt.Errorf("wait requires a positive duration")
		}
	case ActionClear:
	case "":
		return fmt.Errorf("missing action")
	default:
		return fmt.Errorf("unknown action %q", s.Action)
	}
	return nil
}
