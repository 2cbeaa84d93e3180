// Package importer wires the pipeline stages into the single entry point
// callers use: preheat, program rules, validation, persistence, report.
package importer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/trax/bundle"
	"github.com/teranos/trax/metrics"
	"github.com/teranos/trax/preheat"
	"github.com/teranos/trax/programrule"
	"github.com/teranos/trax/report"
	"github.com/teranos/trax/tracker"
	"github.com/teranos/trax/validation"
)

// Persister writes the surviving entities of a validated bundle.
type Persister interface {
	Persist(ctx context.Context, b *bundle.Bundle, rep *validation.Reporter) (map[tracker.Type]report.Stats, error)
}

// Service runs import calls sequentially through the pipeline stages.
// One Service handles many batches; per-call state lives in the bundle
// and reporter, so concurrent Import calls are safe as long as the
// persister's store tolerates them.
type Service struct {
	resolver   *preheat.Resolver
	engine     *programrule.Engine
	chain      *validation.Chain
	persister  Persister
	settings   bundle.Settings
	encryption bundle.EncryptionStatus
	logger     *zap.SugaredLogger
}

// NewService assembles the pipeline.
func NewService(
	resolver *preheat.Resolver,
	engine *programrule.Engine,
	chain *validation.Chain,
	persister Persister,
	settings bundle.Settings,
	encryption bundle.EncryptionStatus,
	logger *zap.SugaredLogger,
) *Service {
	return &Service{
		resolver:   resolver,
		engine:     engine,
		chain:      chain,
		persister:  persister,
		settings:   settings,
		encryption: encryption,
		logger:     logger,
	}
}

// Import runs one payload through the full pipeline and returns the
// import report. The error return covers infrastructure failures only;
// entities that fail validation are reported, not returned as errors.
// Context cancellation is honoured between stages.
func (s *Service) Import(ctx context.Context, payload *tracker.Payload, opts tracker.ImportOptions) (*report.ImportReport, error) {
	start := time.Now()
	payload.EnsureUIDs()

	ph, err := s.resolver.Resolve(ctx, payload, opts)
	if err != nil {
		metrics.ObserveImport("failed")
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		metrics.ObserveImport("failed")
		return nil, err
	}

	b := bundle.New(payload, ph, opts, s.settings, s.encryption)
	s.engine.Run(b)

	if err := ctx.Err(); err != nil {
		metrics.ObserveImport("failed")
		return nil, err
	}

	reporter := validation.NewReporter()
	s.chain.Run(b, reporter)
	reporter.AddRuleIssues(b.RuleIssues())

	if err := ctx.Err(); err != nil {
		metrics.ObserveImport("failed")
		return nil, err
	}

	var stats map[tracker.Type]report.Stats
	if opts.DryRun {
		stats = dryRunStats(b, reporter)
	} else {
		stats, err = s.persister.Persist(ctx, b, reporter)
		if err != nil {
			metrics.ObserveImport("failed")
			return nil, err
		}
	}

	rep := report.New(stats, reporter)
	metrics.ObserveImport(string(rep.Status))

	s.logger.Infow("import finished",
		"status", rep.Status,
		"payload_size", payload.Size(),
		"created", rep.Stats.Created,
		"updated", rep.Stats.Updated,
		"deleted", rep.Stats.Deleted,
		"ignored", rep.Stats.Ignored,
		"errors", len(rep.Validation.Errors),
		"warnings", len(rep.Validation.Warnings),
		"dry_run", opts.DryRun,
		"duration", time.Since(start))
	return rep, nil
}

// dryRunStats predicts what persistence would have done without writing
// anything: same gating, same create/update/delete split.
func dryRunStats(b *bundle.Bundle, reporter *validation.Reporter) map[tracker.Type]report.Stats {
	stats := make(map[tracker.Type]report.Stats, len(tracker.Types()))
	for _, t := range tracker.Types() {
		var created, updated, deleted int
		forEachEntity(b.Payload, t, func(ref tracker.Ref, isDeleted bool) {
			if reporter.HasErrorFor(ref) {
				return
			}
			switch {
			case isDeleted:
				deleted++
			case b.Preheat.Exists(t, ref.UID):
				updated++
			default:
				created++
			}
		})
		stats[t] = report.NewStats(created, updated, deleted, b.Payload.CountFor(t))
	}
	return stats
}

func forEachEntity(p *tracker.Payload, t tracker.Type, fn func(ref tracker.Ref, deleted bool)) {
	switch t {
	case tracker.TypeTrackedEntity:
		for i := range p.TrackedEntities {
			fn(p.TrackedEntities[i].Ref(), p.TrackedEntities[i].Deleted)
		}
	case tracker.TypeEnrollment:
		for i := range p.Enrollments {
			fn(p.Enrollments[i].Ref(), p.Enrollments[i].Deleted)
		}
	case tracker.TypeEvent:
		for i := range p.Events {
			fn(p.Events[i].Ref(), p.Events[i].Deleted)
		}
	case tracker.TypeRelationship:
		for i := range p.Relationships {
			fn(p.Relationships[i].Ref(), p.Relationships[i].Deleted)
		}
	}
}
