// Package bundle holds the mutable working set of one import call.
package bundle

import (
	"github.com/teranos/trax/preheat"
	"github.com/teranos/trax/tracker"
)

// Settings is the read-only view of system toggles the rule engine and
// validators consult. The config package provides the production
// implementation.
type Settings interface {
	// AllowAssignOverwrite permits assign-value rule actions to replace
	// non-empty payload values.
	AllowAssignOverwrite() bool

	// MaxAttributeValueLength caps attribute value length.
	MaxAttributeValueLength() int
}

// EncryptionStatusOK is the status confidential attribute storage must
// report for confidential values to be accepted.
const EncryptionStatusOK = "OK"

// EncryptionStatus reports whether confidential-attribute storage is
// correctly configured.
type EncryptionStatus interface {
	Status() string
}

// Bundle is passed by reference through the pipeline stages. Mutation
// contract:
//   - the rule engine may rewrite payload attribute/data values and
//     appends rule issues,
//   - validators only read,
//   - nothing mutates the payload once validation has run.
type Bundle struct {
	Payload    *tracker.Payload
	Preheat    *preheat.Preheat
	Options    tracker.ImportOptions
	Settings   Settings
	Encryption EncryptionStatus

	ruleIssues []tracker.RuleIssue
}

// New assembles the working set for one import call.
func New(payload *tracker.Payload, ph *preheat.Preheat, opts tracker.ImportOptions, settings Settings, encryption EncryptionStatus) *Bundle {
	return &Bundle{
		Payload:    payload,
		Preheat:    ph,
		Options:    opts,
		Settings:   settings,
		Encryption: encryption,
	}
}

// AddRuleIssue appends one rule engine outcome.
func (b *Bundle) AddRuleIssue(issue tracker.RuleIssue) {
	b.ruleIssues = append(b.ruleIssues, issue)
}

// RuleIssues returns all accumulated rule issues, in execution order.
func (b *Bundle) RuleIssues() []tracker.RuleIssue {
	return b.ruleIssues
}
