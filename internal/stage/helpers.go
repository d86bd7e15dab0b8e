package stage

import (
	"hakimi/internal/plan"
	"hakimi/internal/services"
)

// ParsePlan parses a stored prompt plan string and returns the payload.
// On failure it returns a services.ErrValidation suitable for stage Execute methods.
func ParsePlan(raw string) (plan.Plan, error) {
	p, err := plan.Parse(raw)
	if err != nil {
		return plan.Plan{}, services.Wrap(
			services.ErrValidation, "stage", "parse prompt plan",
			"Prompt plan missing or invalid; rerun prompting", err)
	}
	return p, nil
}
