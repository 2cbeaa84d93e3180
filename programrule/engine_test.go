package programrule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/trax/preheat"
	"github.com/teranos/trax/tracker"
)

func engineBuilder() *preheat.Builder {
	return preheat.NewBuilder(tracker.IdSchemeParams{}).
		WithMetadata(tracker.KindProgram, "prA0000001x", &tracker.Program{
			Identifiable: tracker.Identifiable{UID: "prA0000001x"},
		}).
		WithMetadata(tracker.KindDataElement, "de0000001xx", &tracker.DataElement{
			Identifiable: tracker.Identifiable{UID: "de0000001xx"},
			ValueType:    tracker.ValueTypeText,
		})
}

func TestEngineRunsRulesInPriorityOrder(t *testing.T) {
	// Rule with priority 1 assigns "first", rule with priority 2 sees that
	// value and refuses to overwrite it with "second".
	ph := engineBuilder().
		WithRules(
			tracker.ProgramRule{
				UID: "rulB", ProgramUID: "prA0000001x", Priority: 2,
				Actions: []tracker.RuleAction{{Type: tracker.RuleActionAssign, Field: "de0000001xx", Data: "second"}},
			},
			tracker.ProgramRule{
				UID: "rulA", ProgramUID: "prA0000001x", Priority: 1,
				Actions: []tracker.RuleAction{{Type: tracker.RuleActionAssign, Field: "de0000001xx", Data: "first"}},
			},
		).
		Build()

	payload := &tracker.Payload{
		Events: []tracker.Event{{Event: "ev00000001x", Program: "prA0000001x"}},
	}
	b := testBundle(payload, ph, stubSettings{})

	NewEngine(zap.NewNop().Sugar()).Run(b)

	value, _ := payload.Events[0].DataValueFor("de0000001xx")
	assert.Equal(t, "first", value, "later rule must observe the earlier assignment")

	issues := b.RuleIssues()
	require.Len(t, issues, 2)
	assert.Equal(t, tracker.CodeAssignApplied, issues[0].Code)
	assert.Equal(t, "rulA", issues[0].RuleUID)
	assert.Equal(t, tracker.CodeAssignRefused, issues[1].Code)
	assert.Equal(t, "rulB", issues[1].RuleUID)
}

func TestEngineSkipsRulesOfOtherPrograms(t *testing.T) {
	ph := engineBuilder().
		WithRules(tracker.ProgramRule{
			UID: "rulOther", ProgramUID: "prOther001x", Priority: 1,
			Actions: []tracker.RuleAction{{Type: tracker.RuleActionAssign, Field: "de0000001xx", Data: "x"}},
		}).
		Build()

	payload := &tracker.Payload{
		Events: []tracker.Event{{Event: "ev00000001x", Program: "prA0000001x"}},
	}
	b := testBundle(payload, ph, stubSettings{})

	NewEngine(zap.NewNop().Sugar()).Run(b)

	assert.Empty(t, b.RuleIssues())
	_, present := payload.Events[0].DataValueFor("de0000001xx")
	assert.False(t, present)
}

func TestEngineShowErrorAndWarning(t *testing.T) {
	ph := engineBuilder().
		WithRules(tracker.ProgramRule{
			UID: "rulShow01x", ProgramUID: "prA0000001x", Priority: 1,
			Actions: []tracker.RuleAction{
				{Type: tracker.RuleActionShowError, Content: "value out of range"},
				{Type: tracker.RuleActionShowWarning, Content: "please review"},
			},
		}).
		Build()

	payload := &tracker.Payload{
		Events: []tracker.Event{{Event: "ev00000001x", Program: "prA0000001x"}},
	}
	b := testBundle(payload, ph, stubSettings{})

	NewEngine(zap.NewNop().Sugar()).Run(b)

	issues := b.RuleIssues()
	require.Len(t, issues, 2)
	assert.Equal(t, tracker.SeverityError, issues[0].Severity)
	assert.Equal(t, "value out of range", issues[0].Message)
	assert.Equal(t, tracker.SeverityWarning, issues[1].Severity)
}

func TestEngineMandatoryFieldError(t *testing.T) {
	ph := engineBuilder().
		WithRules(tracker.ProgramRule{
			UID: "rulMand01x", ProgramUID: "prA0000001x", Priority: 1,
			Actions: []tracker.RuleAction{{Type: tracker.RuleActionSetMandatory, Field: "de0000001xx"}},
		}).
		Build()

	payload := &tracker.Payload{
		Events: []tracker.Event{
			{Event: "evEmpty001x", Program: "prA0000001x"},
			{Event: "evFilled01x", Program: "prA0000001x",
				DataValues: []tracker.DataValue{{DataElement: "de0000001xx", Value: "present"}}},
		},
	}
	b := testBundle(payload, ph, stubSettings{})

	NewEngine(zap.NewNop().Sugar()).Run(b)

	issues := b.RuleIssues()
	require.Len(t, issues, 1)
	assert.Equal(t, tracker.CodeMandatoryField, issues[0].Code)
	assert.Equal(t, "evEmpty001x", issues[0].Target.UID)
}

func TestEngineHideFieldRemovesValue(t *testing.T) {
	ph := engineBuilder().
		WithRules(tracker.ProgramRule{
			UID: "rulHide01x", ProgramUID: "prA0000001x", Priority: 1,
			Actions: []tracker.RuleAction{{Type: tracker.RuleActionHideField, Field: "de0000001xx"}},
		}).
		Build()

	payload := &tracker.Payload{
		Events: []tracker.Event{
			{Event: "ev00000001x", Program: "prA0000001x",
				DataValues: []tracker.DataValue{{DataElement: "de0000001xx", Value: "secret"}}},
			{Event: "evNoValue1x", Program: "prA0000001x"},
		},
	}
	b := testBundle(payload, ph, stubSettings{})

	NewEngine(zap.NewNop().Sugar()).Run(b)

	_, present := payload.Events[0].DataValueFor("de0000001xx")
	assert.False(t, present)

	// Only the event that actually had a value gets a warning.
	issues := b.RuleIssues()
	require.Len(t, issues, 1)
	assert.Equal(t, tracker.CodeHiddenFieldValue, issues[0].Code)
	assert.Equal(t, "ev00000001x", issues[0].Target.UID)
}

func TestEngineNoRulesIsNoOp(t *testing.T) {
	ph := engineBuilder().Build()
	payload := &tracker.Payload{
		Events: []tracker.Event{{Event: "ev00000001x", Program: "prA0000001x"}},
	}
	b := testBundle(payload, ph, stubSettings{})

	NewEngine(zap.NewNop().Sugar()).Run(b)
	assert.Empty(t, b.RuleIssues())
}
