// Package wizard drives the multi-step onboarding flow: an ordered list of
// question steps, an accumulated answer record, and a commit point at the
// last data-collecting step where the record is submitted for registration.
package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go-brokerage-backend/internal/domain"
)

// Step names, in order. Complete is terminal; Agreement is the last
// data-collecting step and therefore the commit point.
const (
	StepWelcome          = "welcome"
	StepIdentity         = "identity"
	StepRiskProfile      = "risk_profile"
	StepAssetPreferences = "asset_preferences"
	StepCapitalLimits    = "capital_limits"
	StepAutomation       = "automation"
	StepAgreement        = "agreement"
	StepComplete         = "complete"
)

type stepDef struct {
	Name string
	// Required answer keys gating this step's "next" affordance. Validation
	// is local to the step, never global.
	Required []string
}

var steps = []stepDef{
	{Name: StepWelcome},
	{Name: StepIdentity, Required: []string{domain.KeyExperience, domain.KeyComfort, domain.KeyGoal}},
	{Name: StepRiskProfile, Required: []string{domain.KeyRisk, domain.KeyLoss}},
	{Name: StepAssetPreferences, Required: []string{domain.KeyAssets}},
	{Name: StepCapitalLimits, Required: []string{domain.KeyCapital}},
	{Name: StepAutomation, Required: []string{domain.KeyMode, domain.KeyFrequency}},
	{Name: StepAgreement, Required: []string{domain.KeyAck}},
	{Name: StepComplete},
}

// submitIndex is the commit point: the step whose Advance submits the
// accumulated record before transitioning. Derived from the step list so
// reordering steps cannot desynchronize the rule.
func submitIndex() int {
	return len(steps) - 2
}

const minPasswordLength = 6

// SubmitFunc commits the accumulated answers (the registration call).
type SubmitFunc func(ctx context.Context, req *domain.RegisterRequest) error

// FieldError is a step-local validation failure. It blocks advancement but
// is not a state transition: the session stays on the current step.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Session is the ephemeral, client-held wizard state. It is not safe for
// concurrent use; the flow is strictly sequential per user.
type Session struct {
	step      int
	answers   domain.Answers
	email     string
	password  string
	submitted bool
	submit    SubmitFunc
}

func NewSession(submit SubmitFunc) *Session {
	return &Session{
		answers: domain.Answers{},
		submit:  submit,
	}
}

func (s *Session) StepIndex() int { return s.step }

func (s *Session) StepName() string { return steps[s.step].Name }

func (s *Session) Completed() bool { return s.step == len(steps)-1 }

func (s *Session) Submitted() bool { return s.submitted }

func (s *Session) Email() string { return s.email }

// Answers returns a copy of the accumulated record.
func (s *Session) Answers() domain.Answers {
	return s.answers.Clone()
}

// CanAdvance reports whether the current step's required keys are present.
func (s *Session) CanAdvance() bool {
	if s.step == StepIndexOf(StepIdentity) && (s.email == "" || s.password == "") {
		return false
	}
	for _, key := range steps[s.step].Required {
		if v, ok := s.answers[key]; !ok || v == nil {
			return false
		}
	}
	return true
}

// Advance merges the step output into the accumulated answers and moves to
// the next step. Non-data inputs (anything that is not a plain key/value
// record, such as a stray UI event object) are detected and ignored rather
// than merged. At the commit step the accumulated record is submitted first;
// a failed submission blocks the transition so the user can retry.
func (s *Session) Advance(ctx context.Context, output any) error {
	if s.Completed() {
		return errors.New("wizard already complete")
	}

	record, ok := asRecord(output)
	if ok {
		if err := s.merge(record); err != nil {
			return err
		}
	}

	if s.step == submitIndex() && !s.submitted {
		if s.submit == nil {
			return errors.New("wizard has no submit target")
		}
		req := &domain.RegisterRequest{
			Email:    s.email,
			Password: s.password,
			Answers:  s.answers.Clone(),
		}
		if err := s.submit(ctx, req); err != nil {
			// No transition on a failed submission.
			return err
		}
		s.submitted = true
	}

	s.step++
	return nil
}

// Retreat moves to the previous step without discarding answers. No-op at
// the first step.
func (s *Session) Retreat() {
	if s.step > 0 {
		s.step--
	}
}

func (s *Session) merge(record domain.Answers) error {
	record = record.Clone()

	// Credentials ride alongside the identity step's answers; they are
	// validated locally and kept out of the accumulated record.
	confirm, hasConfirm := record["confirmPassword"].(string)
	delete(record, "confirmPassword")
	if raw, ok := record["userId"]; ok {
		email, _ := raw.(string)
		delete(record, "userId")
		if domain.NormalizeEmail(email) == "" {
			return &FieldError{Field: "userId", Message: "email is required"}
		}
		s.email = domain.NormalizeEmail(email)
	}
	if raw, ok := record["password"]; ok {
		pw, _ := raw.(string)
		delete(record, "password")
		if len(pw) < minPasswordLength {
			return &FieldError{Field: "password", Message: fmt.Sprintf("must be at least %d characters", minPasswordLength)}
		}
		if hasConfirm && confirm != pw {
			return &FieldError{Field: "confirmPassword", Message: "passwords do not match"}
		}
		s.password = pw
	}

	if err := record.Validate(); err != nil {
		return &FieldError{Field: "answers", Message: err.Error()}
	}

	for k, v := range record {
		s.answers[k] = v
	}
	return nil
}

// asRecord accepts only plain data records. Event-like objects (carrying UI
// event markers) and non-map values are rejected.
func asRecord(output any) (domain.Answers, bool) {
	var record domain.Answers
	switch v := output.(type) {
	case nil:
		return nil, false
	case domain.Answers:
		record = v
	case map[string]any:
		record = domain.Answers(v)
	default:
		return nil, false
	}
	if _, ok := record["nativeEvent"]; ok {
		return nil, false
	}
	if _, ok := record["preventDefault"]; ok {
		return nil, false
	}
	return record, true
}

// StepIndexOf returns the index of a named step, or -1.
func StepIndexOf(name string) int {
	for i, def := range steps {
		if def.Name == name {
			return i
		}
	}
	return -1
}

// ---------------------------------------------------------------------------
// Snapshot / Restore: explicit serialize/deserialize contract for the
// client-held session. Versioned; anything unreadable restores as a fresh
// session instead of crashing. The password is never serialized.
// ---------------------------------------------------------------------------

const snapshotVersion = 1

type snapshot struct {
	Version   int            `json:"version"`
	Step      int            `json:"step"`
	Email     string         `json:"email,omitempty"`
	Answers   domain.Answers `json:"answers"`
	Submitted bool           `json:"submitted"`
}

func (s *Session) Snapshot() ([]byte, error) {
	return json.Marshal(snapshot{
		Version:   snapshotVersion,
		Step:      s.step,
		Email:     s.email,
		Answers:   s.answers,
		Submitted: s.submitted,
	})
}

// Restore rebuilds a session from a snapshot. A corrupt, empty, or
// version-mismatched snapshot is treated as absent: the caller gets a fresh
// session at the first step.
func Restore(data []byte, submit SubmitFunc) *Session {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return NewSession(submit)
	}
	if snap.Version != snapshotVersion || snap.Step < 0 || snap.Step >= len(steps) {
		return NewSession(submit)
	}
	answers := snap.Answers
	if answers == nil {
		answers = domain.Answers{}
	}
	return &Session{
		step:      snap.Step,
		answers:   answers,
		email:     snap.Email,
		submitted: snap.Submitted,
		submit:    submit,
	}
}
