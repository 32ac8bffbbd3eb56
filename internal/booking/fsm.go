// Package booking implements the booking wizard steps and the booking write chain.
package booking

import (
	"errors"
	"fmt"
)

// Step is a booking wizard step.
type Step string

const (
	StepService      Step = "service"
	StepProfessional Step = "professional"
	StepDateTime     Step = "date_time"
	StepContact      Step = "contact"
)

// Steps lists the wizard steps in order.
var Steps = []Step{StepService, StepProfessional, StepDateTime, StepContact}

// ErrStepNotAllowed is returned when a step change breaks the transition table or the form guard.
var ErrStepNotAllowed = errors.New("step not allowed")

// ParseStep validates a step name.
func ParseStep(s string) (Step, error) {
	for _, step := range Steps {
		if string(step) == s {
			return step, nil
		}
	}
	return "", fmt.Errorf("unknown step %q", s)
}

// Index returns the position of the step, or -1.
func (s Step) Index() int {
	for i, step := range Steps {
		if step == s {
			return i
		}
	}
	return -1
}

// FSM manages step transitions.
type FSM struct {
	transitions map[Step][]Step
}

// NewFSM creates the wizard FSM: forward one step, back to any earlier step.
func NewFSM() *FSM {
	return &FSM{
		transitions: map[Step][]Step{
			StepService:      {StepProfessional},
			StepProfessional: {StepDateTime, StepService},
			StepDateTime:     {StepContact, StepProfessional, StepService},
			StepContact:      {StepDateTime, StepProfessional, StepService},
		},
	}
}

// CanTransition checks the transition table only.
func (f *FSM) CanTransition(from, to Step) bool {
	allowed, ok := f.transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Next returns the step after s, if any.
func Next(s Step) (Step, bool) {
	i := s.Index()
	if i < 0 || i+1 >= len(Steps) {
		return "", false
	}
	return Steps[i+1], true
}

// Back returns the step before s, if any.
func Back(s Step) (Step, bool) {
	i := s.Index()
	if i <= 0 {
		return "", false
	}
	return Steps[i-1], true
}

// CanAdvance reports whether the form satisfies the step, so the wizard may leave it
// forward. On the contact step it means the form can be submitted.
func CanAdvance(step Step, form Form) bool {
	switch step {
	case StepService:
		return form.ServiceCategory != "" && len(form.ServiceIDs) > 0
	case StepProfessional:
		return form.WorkerID != ""
	case StepDateTime:
		return form.Date != "" && form.Time != ""
	case StepContact:
		return form.Contact.Complete()
	default:
		return false
	}
}

// CanNavigateTo reports whether the wizard may show target given the form:
// every earlier step must be satisfied.
func CanNavigateTo(target Step, form Form) bool {
	i := target.Index()
	if i < 0 {
		return false
	}
	for _, s := range Steps[:i] {
		if !CanAdvance(s, form) {
			return false
		}
	}
	return true
}

// Transition moves the session to step to. Backward moves only need the table;
// forward moves also need every earlier step satisfied.
func (f *FSM) Transition(session *Session, to Step) error {
	from := session.Step
	if !f.CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrStepNotAllowed, from, to)
	}
	if to.Index() > from.Index() && !CanNavigateTo(to, session.Form) {
		return fmt.Errorf("%w: %s is incomplete", ErrStepNotAllowed, from)
	}
	session.SetStep(to)
	return nil
}

// StepTitles are the labels shown by the step indicator.
var StepTitles = map[Step]string{
	StepService:      "Service",
	StepProfessional: "Professional",
	StepDateTime:     "Date & Time",
	StepContact:      "Contact",
}
