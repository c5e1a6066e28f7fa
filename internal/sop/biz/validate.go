package biz

import (
	"encoding/json"
	"fmt"

	"github.com/leapstack-ai/sop-copilot-backend/internal/sop/types"

	"github.com/tidwall/gjson"
)

// ValidateSOPJSON structurally validates a raw SOP JSON document. All
// violations are collected and returned at once; the SOP is only decoded
// when the structure is sound. The rules match what the authoring tools
// and the HTTP API both enforce:
//
//   - id, name and display_name must be non-empty strings
//   - steps must be a non-empty array
//   - every step must have a unique, non-empty id and a numeric step_number
//   - every next_step edge must reference a step id defined in this SOP
func ValidateSOPJSON(raw string) (*types.SOP, []string) {
	if !gjson.Valid(raw) {
		return nil, []string{"sop is not valid JSON"}
	}

	doc := gjson.Parse(raw)
	var problems []string

	for _, field := range []string{"id", "name", "display_name"} {
		v := doc.Get(field)
		if v.Type != gjson.String || v.String() == "" {
			problems = append(problems, fmt.Sprintf("missing or empty %q field", field))
		}
	}

	steps := doc.Get("steps")
	switch {
	case !steps.Exists() || !steps.IsArray():
		problems = append(problems, "missing steps array")
	case len(steps.Array()) == 0:
		problems = append(problems, "steps array cannot be empty")
	default:
		seen := make(map[string]bool)
		stepIDs := make(map[string]bool)

		steps.ForEach(func(_, step gjson.Result) bool {
			if id := step.Get("id"); id.Type == gjson.String && id.String() != "" {
				stepIDs[id.String()] = true
			}
			return true
		})

		i := 0
		steps.ForEach(func(_, step gjson.Result) bool {
			id := step.Get("id")
			switch {
			case id.Type != gjson.String || id.String() == "":
				problems = append(problems, fmt.Sprintf("step %d: missing or empty id", i))
			case seen[id.String()]:
				problems = append(problems, fmt.Sprintf("step %d: duplicate step id %q", i, id.String()))
			default:
				seen[id.String()] = true
			}

			if num := step.Get("step_number"); num.Type != gjson.Number {
				problems = append(problems, fmt.Sprintf("step %d: step_number must be numeric", i))
			}

			next := step.Get("next_step")
			if next.Exists() && next.Type != gjson.Null {
				for _, target := range nextStepTargets(next) {
					if target != "" && target != "end" && !stepIDs[target] {
						problems = append(problems, fmt.Sprintf("step %d: next_step references unknown step %q", i, target))
					}
				}
			}

			i++
			return true
		})
	}

	if len(problems) > 0 {
		return nil, problems
	}

	var sop types.SOP
	if err := json.Unmarshal([]byte(raw), &sop); err != nil {
		return nil, []string{fmt.Sprintf("failed to decode sop: %v", err)}
	}

	return &sop, nil
}

func nextStepTargets(next gjson.Result) []string {
	if next.Type == gjson.String {
		return []string{next.String()}
	}
	if next.IsArray() {
		var targets []string
		next.ForEach(func(_, v gjson.Result) bool {
			targets = append(targets, v.String())
			return true
		})
		return targets
	}
	return nil
}

// ValidateSOP validates an already-decoded SOP by round-tripping it through
// the JSON validator, so both write paths share one rule set.
func ValidateSOP(sop *types.SOP) []string {
	raw, err := json.Marshal(sop)
	if err != nil {
		return []string{fmt.Sprintf("failed to encode sop: %v", err)}
	}
	_, problems := ValidateSOPJSON(string(raw))
	return problems
}
