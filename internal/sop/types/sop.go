package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// NextStep is the edge set leaving an SOP step. It serializes as a single
// step id, an array of candidate ids (branching), or null for a terminal
// step. An empty IDs slice means terminal.
type NextStep struct {
	IDs []string
}

// IsTerminal reports whether the step has no outgoing edges
func (n NextStep) IsTerminal() bool {
	return len(n.IDs) == 0
}

// MarshalJSON encodes the edge set in its most compact form
func (n NextStep) MarshalJSON() ([]byte, error) {
	switch len(n.IDs) {
	case 0:
		return []byte("null"), nil
	case 1:
		return json.Marshal(n.IDs[0])
	default:
		return json.Marshal(n.IDs)
	}
}

// UnmarshalJSON accepts null, a string id, or an array of ids
func (n *NextStep) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		n.IDs = nil
		return nil
	}

	if data[0] == '"' {
		var single string
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		// "end" is accepted as an explicit terminal marker
		if single == "" || single == "end" {
			n.IDs = nil
			return nil
		}
		n.IDs = []string{single}
		return nil
	}

	if data[0] == '[' {
		return json.Unmarshal(data, &n.IDs)
	}

	return fmt.Errorf("next_step must be a string, an array of strings, or null")
}

// Step is one node of an SOP's directed step graph
type Step struct {
	ID             string   `json:"id"`
	StepNumber     int      `json:"step_number"`
	Name           string   `json:"name,omitempty"`
	Instructions   string   `json:"instructions,omitempty"`
	ExpectedOutput string   `json:"expected_output,omitempty"`
	NextStep       NextStep `json:"next_step"`
}

// SOP is a versioned step-graph workflow definition
type SOP struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description,omitempty"`
	Steps       []Step    `json:"steps"`
	BuiltIn     bool      `json:"built_in,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// Step returns the step with the given id, or nil
func (s *SOP) Step(id string) *Step {
	for i := range s.Steps {
		if s.Steps[i].ID == id {
			return &s.Steps[i]
		}
	}
	return nil
}

// FirstStep returns the step with the lowest step number, or nil for an
// SOP without steps
func (s *SOP) FirstStep() *Step {
	if len(s.Steps) == 0 {
		return nil
	}

	first := &s.Steps[0]
	for i := range s.Steps {
		if s.Steps[i].StepNumber < first.StepNumber {
			first = &s.Steps[i]
		}
	}
	return first
}

// StepsInOrder returns the steps sorted by step number
func (s *SOP) StepsInOrder() []Step {
	ordered := make([]Step, len(s.Steps))
	copy(ordered, s.Steps)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StepNumber < ordered[j].StepNumber
	})
	return ordered
}

// Run statuses
const (
	RunStatusInProgress = "in_progress"
	RunStatusCompleted  = "completed"
	RunStatusPaused     = "paused"
)

// Run is one execution of an SOP for a specific chat. At most one run per
// chat is in progress at a time.
type Run struct {
	ID            string    `json:"id"`
	ChatID        string    `json:"chat_id"`
	SOPID         string    `json:"sop_id"`
	CurrentStepID string    `json:"current_step_id"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
