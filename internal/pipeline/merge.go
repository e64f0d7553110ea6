// Package pipeline runs stage functions over a shared state: merge, the
// analysis fan-out and the graph engine.
package pipeline

import "FxDesk/internal/domain/models"

// Merge applies delta to cur and returns the next state. Present fields in
// delta replace those in cur, errors are key-unioned with delta winning, and
// the step count never decreases. Neither argument is modified.
func Merge(cur models.State, delta models.Update) models.State {
	next := cur

	if delta.News != nil {
		next.News = delta.News
	}
	if delta.Technical != nil {
		next.Technical = delta.Technical
	}
	if delta.Fundamental != nil {
		next.Fundamental = delta.Fundamental
	}
	if delta.Risk != nil {
		next.Risk = delta.Risk
	}
	if delta.Decision != nil {
		next.Decision = delta.Decision
	}

	next.StepCount = max(cur.StepCount, delta.StepCount)

	next.Errors = make(map[models.StageName]string, len(cur.Errors)+len(delta.Errors))
	for k, v := range cur.Errors {
		next.Errors[k] = v
	}
	for k, v := range delta.Errors {
		next.Errors[k] = v
	}
	return next
}

// combine folds independent deltas into one: present fields are taken as-is,
// step_count is the maximum and errors are unioned.
func combine(deltas []models.Update) models.Update {
	out := models.Update{Errors: map[models.StageName]string{}}
	for _, d := range deltas {
		if d.News != nil {
			out.News = d.News
		}
		if d.Technical != nil {
			out.Technical = d.Technical
		}
		if d.Fundamental != nil {
			out.Fundamental = d.Fundamental
		}
		if d.Risk != nil {
			out.Risk = d.Risk
		}
		if d.Decision != nil {
			out.Decision = d.Decision
		}
		out.StepCount = max(out.StepCount, d.StepCount)
		for k, v := range d.Errors {
			out.Errors[k] = v
		}
	}
	return out
}
