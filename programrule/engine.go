package programrule

import (
	"time"

	"go.uber.org/zap"

	"github.com/teranos/trax/bundle"
	"github.com/teranos/trax/tracker"
)

// Engine runs the preheated program rules against every enrollment and
// event of the bundle. Rules execute in priority-then-UID order and their
// mutations are applied sequentially, so a later rule observes what an
// earlier one wrote.
type Engine struct {
	logger *zap.SugaredLogger
}

// NewEngine creates a rule engine.
func NewEngine(logger *zap.SugaredLogger) *Engine {
	return &Engine{logger: logger}
}

// Run evaluates all rules, appending issues to the bundle. Rules only
// apply to targets enrolled in the rule's program.
func (e *Engine) Run(b *bundle.Bundle) {
	start := time.Now()
	rules := b.Preheat.Rules()
	if len(rules) == 0 {
		return
	}

	issues := 0
	for i := range b.Payload.Enrollments {
		enrollment := &b.Payload.Enrollments[i]
		program, ok := b.Preheat.Program(enrollment.Program)
		if !ok {
			continue
		}
		issues += e.runTarget(b, rules, program.UID, EnrollmentTarget{Enrollment: enrollment})
	}
	for i := range b.Payload.Events {
		event := &b.Payload.Events[i]
		program, ok := b.Preheat.Program(event.Program)
		if !ok {
			continue
		}
		issues += e.runTarget(b, rules, program.UID, EventTarget{Event: event})
	}

	e.logger.Debugw("program rules evaluated",
		"rules", len(rules),
		"issues", issues,
		"duration", time.Since(start))
}

func (e *Engine) runTarget(b *bundle.Bundle, rules []tracker.ProgramRule, programUID string, target Target) int {
	issues := 0
	for _, rule := range rules {
		if rule.ProgramUID != programUID {
			continue
		}
		for _, action := range rule.Actions {
			executor := executorFor(rule, action)
			if executor == nil {
				e.logger.Warnw("skipping unknown rule action",
					"rule", rule.UID, "action", action.Type)
				continue
			}
			if issue := executor.ExecuteRuleAction(b, target); issue != nil {
				b.AddRuleIssue(*issue)
				issues++
			}
		}
	}
	return issues
}
