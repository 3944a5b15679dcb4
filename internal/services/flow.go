// Package services – FlowMachine
//
// FlowMachine runs multi-step dialogues. A dialogue step is a named
// domain.Step plus one rule: on the next free-text input, validate it, commit
// the resulting profile change together with the next step, and reply.
// Invalid input leaves the step unchanged and re-prompts. Onboarding (name,
// age) and the filter editors are all rules on the same machine.
package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/go-cartoon-bot/internal/domain"
	"github.com/tbourn/go-cartoon-bot/internal/repo"
)

// FlowRule is the behaviour of one dialogue step.
type FlowRule struct {
	// Prompt is sent when the step is entered.
	Prompt func(p *domain.UserProfile) string

	// Parse validates input and returns the change to commit. A
	// *ValidationError keeps the profile on this step.
	Parse func(p *domain.UserProfile, input string) (repo.ProfileUpdate, error)

	// Next is the step stored together with the change.
	Next domain.Step

	// Done renders the reply after a successful commit.
	Done func(p *domain.UserProfile) Response
}

// FlowResult is the outcome of one input.
type FlowResult struct {
	Profile  *domain.UserProfile
	Response Response
	Advanced bool
}

// FlowMachine dispatches free-text input by the profile's current step.
type FlowMachine struct {
	Store *ProfileStore
	rules map[domain.Step]FlowRule
}

// NewFlowMachine returns an empty machine.
func NewFlowMachine(store *ProfileStore) *FlowMachine {
	return &FlowMachine{Store: store, rules: make(map[domain.Step]FlowRule)}
}

// Handle registers rule for step and returns m for chaining.
func (m *FlowMachine) Handle(step domain.Step, rule FlowRule) *FlowMachine {
	m.rules[step] = rule
	return m
}

// Handles reports whether step has a rule.
func (m *FlowMachine) Handles(step domain.Step) bool {
	_, ok := m.rules[step]
	return ok
}

// Enter moves userID to step and returns the step's prompt.
func (m *FlowMachine) Enter(ctx context.Context, userID string, step domain.Step) (*domain.UserProfile, Response, error) {
	rule, ok := m.rules[step]
	if !ok {
		return nil, Response{}, errors.New("flow: no rule for step " + string(step))
	}
	p, err := m.Store.SetStep(ctx, userID, step)
	if err != nil {
		return nil, Response{}, err
	}
	return p, reply(rule.Prompt(p)), nil
}

// Feed applies input to p's current step.
func (m *FlowMachine) Feed(ctx context.Context, p *domain.UserProfile, input string) (FlowResult, error) {
	ctx, span := startSpan(ctx, "FlowMachine", "Feed", p.UserID)
	defer span.End()
	span.SetAttributes(attribute.String("step", string(p.Step)))

	rule, ok := m.rules[p.Step]
	if !ok {
		return FlowResult{}, errors.New("flow: no rule for step " + string(p.Step))
	}

	upd, err := rule.Parse(p, input)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return FlowResult{Profile: p, Response: reply(ve.Message)}, nil
		}
		return FlowResult{}, err
	}

	next := rule.Next
	upd.Step = &next
	fresh, err := m.Store.Update(ctx, p.UserID, upd)
	if err != nil {
		return FlowResult{}, err
	}

	res := FlowResult{Profile: fresh, Advanced: true}
	if rule.Done != nil {
		res.Response = rule.Done(fresh)
	} else if nr, ok := m.rules[next]; ok {
		res.Response = reply(nr.Prompt(fresh))
	}
	return res, nil
}
