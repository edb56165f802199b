package domain

import (
	"fmt"
)

// Answers maps onboarding-question keys to scalar or list values. The set of
// recognized keys is closed: anything outside the schema is rejected at the
// workflow boundary instead of being filtered ad hoc at merge time.
type Answers map[string]any

// AnswerKind is the value shape a question key accepts.
type AnswerKind int

const (
	KindString AnswerKind = iota
	KindBool
	KindNumber
	KindStringList
)

// Wizard question keys, grouped by the step that collects them.
const (
	// Identity step
	KeyExperience = "experience"
	KeyComfort    = "comfort"
	KeyGoal       = "goal"
	// Risk profile step
	KeyRisk = "risk"
	KeyLoss = "loss"
	// Asset preferences step
	KeyAssets      = "assets"
	KeySectors     = "sectors"
	KeyAvoid       = "avoid"
	KeyOtherSector = "otherSector"
	// Capital limits step
	KeyCapital         = "capital"
	KeyBudget          = "budget"
	KeyBudgetPeriod    = "budgetPeriod"
	KeyReinvest        = "reinvest"
	KeyStopLoss        = "stopLoss"
	KeyStopLossPeriod  = "stopLossPeriod"
	KeyStopLossEnabled = "stopLossEnabled"
	// Automation preferences step
	KeyMode      = "mode"
	KeyFrequency = "frequency"
	KeyReport    = "report"
	// Agreement step
	KeyAck        = "ack"
	KeySimulation = "simulation"
)

// AnswerSchema is the closed set of recognized answer keys and their shapes.
var AnswerSchema = map[string]AnswerKind{
	KeyExperience:      KindString,
	KeyComfort:         KindString,
	KeyGoal:            KindString,
	KeyRisk:            KindString,
	KeyLoss:            KindString,
	KeyAssets:          KindStringList,
	KeySectors:         KindStringList,
	KeyAvoid:           KindString,
	KeyOtherSector:     KindString,
	KeyCapital:         KindNumber,
	KeyBudget:          KindNumber,
	KeyBudgetPeriod:    KindString,
	KeyReinvest:        KindBool,
	KeyStopLoss:        KindNumber,
	KeyStopLossPeriod:  KindString,
	KeyStopLossEnabled: KindBool,
	KeyMode:            KindString,
	KeyFrequency:       KindString,
	KeyReport:          KindString,
	KeyAck:             KindBool,
	KeySimulation:      KindBool,
}

// Validate rejects unrecognized keys and malformed value shapes. nil values
// are allowed everywhere (an answer the user skipped or cleared).
func (a Answers) Validate() error {
	for key, value := range a {
		kind, ok := AnswerSchema[key]
		if !ok {
			return fmt.Errorf("unrecognized answer key: %s", key)
		}
		if value == nil {
			continue
		}
		if err := checkKind(key, kind, value); err != nil {
			return err
		}
	}
	return nil
}

// StringList coerces a list-valued answer into []string, tolerating the
// []any shape JSON decoding produces.
func (a Answers) StringList(key string) []string {
	switch v := a[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Clone returns a shallow copy so accumulated state is never aliased.
func (a Answers) Clone() Answers {
	cp := make(Answers, len(a))
	for k, v := range a {
		cp[k] = v
	}
	return cp
}

func checkKind(key string, kind AnswerKind, value any) error {
	switch kind {
	case KindString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("answer %q must be a string", key)
		}
	case KindBool:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("answer %q must be a boolean", key)
		}
	case KindNumber:
		switch value.(type) {
		case float64, int, int64:
		default:
			return fmt.Errorf("answer %q must be a number", key)
		}
	case KindStringList:
		switch v := value.(type) {
		case []string:
		case []any:
			for _, item := range v {
				if _, ok := item.(string); !ok {
					return fmt.Errorf("answer %q must be a list of strings", key)
				}
			}
		default:
			return fmt.Errorf("answer %q must be a list of strings", key)
		}
	}
	return nil
}
