// Package domain provides core business rules for the artwork bounded context.
package domain

// GenerationStep is the lifecycle position of an artwork in the generation
// pipeline.
type GenerationStep string

const (
	StepPending            GenerationStep = "pending"
	StepMonaLisaGeneration GenerationStep = "monalisa_generation"
	StepPetIntegration     GenerationStep = "pet_integration"
	StepCompleted          GenerationStep = "completed"
	StepFailed             GenerationStep = "failed"
)

// stepOrder positions each step on the forward path. Failed is not on the
// path; it is a terminal branch reachable from any non-terminal step.
var stepOrder = map[GenerationStep]int{
	StepPending:            0,
	StepMonaLisaGeneration: 1,
	StepPetIntegration:     2,
	StepCompleted:          3,
}

// ValidStep reports whether the value is a known generation step.
func ValidStep(step GenerationStep) bool {
	if step == StepFailed {
		return true
	}
	_, ok := stepOrder[step]
	return ok
}

// IsTerminal reports whether no further forward progress is possible.
// Completed is not terminal here: re-applying completed with the same image
// is a legal no-op, and regeneration re-enters the pipeline explicitly.
func IsTerminal(step GenerationStep) bool {
	return step == StepFailed
}

// CanAdvance reports whether an artwork at from may be advanced to to.
// Steps never regress; repeating the current step is allowed so that a
// redelivered completion is a no-op rather than an error. Failed is reachable
// from any non-terminal step.
func CanAdvance(from, to GenerationStep) bool {
	if from == StepFailed {
		return false
	}
	if to == StepFailed {
		return true
	}
	fromOrder, okFrom := stepOrder[from]
	toOrder, okTo := stepOrder[to]
	if !okFrom || !okTo {
		return false
	}
	return toOrder >= fromOrder
}
