package persistence

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/trax/bundle"
	"github.com/teranos/trax/metrics"
	"github.com/teranos/trax/report"
	"github.com/teranos/trax/tracker"
	"github.com/teranos/trax/validation"
)

// plan is the partitioned write set for one entity kind.
type plan struct {
	creates []Record
	updates []Record
	deletes []string
	// owners are tracked entity UIDs whose ownership timestamp must be
	// touched because something under them changed.
	owners []string
}

// Persister writes the surviving entities of a validated bundle. An
// entity with at least one error is excluded; everything else persists
// regardless of how the rest of the batch fared. Saves and updates for
// all kinds commit before any delete runs, and deletes get their own
// transactions.
type Persister struct {
	store  TrackerStore
	logger *zap.SugaredLogger
	clock  func() time.Time
}

// NewPersister creates a persister over a tracker store.
func NewPersister(store TrackerStore, logger *zap.SugaredLogger) *Persister {
	return &Persister{store: store, logger: logger, clock: time.Now}
}

// Persist applies the bundle's surviving entities and returns per-kind
// stats for the import report. A storage failure aborts the call; the
// returned stats then cover only what committed.
func (p *Persister) Persist(ctx context.Context, b *bundle.Bundle, rep *validation.Reporter) (map[tracker.Type]report.Stats, error) {
	plans := p.partition(b, rep)
	stats := make(map[tracker.Type]report.Stats, len(plans))

	// Saves and updates first, in persistence order, so parents exist
	// before their children reference them.
	for _, t := range tracker.Types() {
		pl := plans[t]
		if err := p.store.BulkSave(ctx, t, pl.creates); err != nil {
			return stats, err
		}
		if err := p.store.BulkUpdate(ctx, t, pl.updates); err != nil {
			return stats, err
		}
		stats[t] = report.NewStats(len(pl.creates), len(pl.updates), 0, b.Payload.CountFor(t))
	}

	// Deletes run last, in reverse order, each kind in its own
	// transaction.
	kinds := tracker.Types()
	for i := len(kinds) - 1; i >= 0; i-- {
		t := kinds[i]
		pl := plans[t]
		deleted, err := p.store.BulkDelete(ctx, t, pl.deletes, b.Options.AtomicDeletes)
		if err != nil {
			return stats, err
		}
		s := stats[t]
		s.Deleted = deleted
		if s.Ignored >= deleted {
			s.Ignored -= deleted
		} else {
			s.Ignored = 0
		}
		stats[t] = s
		metrics.ObserveEntities(string(t), "created", s.Created)
		metrics.ObserveEntities(string(t), "updated", s.Updated)
		metrics.ObserveEntities(string(t), "deleted", s.Deleted)
		metrics.ObserveEntities(string(t), "ignored", s.Ignored)
	}

	if owners := collectOwners(plans); len(owners) > 0 {
		if err := p.store.TouchOwners(ctx, owners, p.clock()); err != nil {
			return stats, err
		}
		p.logger.Debugw("touched entity owners", "count", len(owners))
	}

	return stats, nil
}

// partition splits the payload into create/update/delete groups per
// kind, dropping entities that failed validation.
func (p *Persister) partition(b *bundle.Bundle, rep *validation.Reporter) map[tracker.Type]*plan {
	plans := make(map[tracker.Type]*plan, len(tracker.Types()))
	for _, t := range tracker.Types() {
		plans[t] = &plan{}
	}

	for i := range b.Payload.TrackedEntities {
		te := &b.Payload.TrackedEntities[i]
		if rep.HasErrorFor(te.Ref()) {
			continue
		}
		pl := plans[tracker.TypeTrackedEntity]
		switch {
		case te.Deleted:
			pl.deletes = append(pl.deletes, te.TrackedEntity)
		case b.Preheat.Exists(tracker.TypeTrackedEntity, te.TrackedEntity):
			pl.updates = append(pl.updates, Record{UID: te.TrackedEntity, Body: te})
		default:
			pl.creates = append(pl.creates, Record{UID: te.TrackedEntity, Body: te})
		}
	}

	for i := range b.Payload.Enrollments {
		e := &b.Payload.Enrollments[i]
		if rep.HasErrorFor(e.Ref()) {
			continue
		}
		pl := plans[tracker.TypeEnrollment]
		switch {
		case e.Deleted:
			pl.deletes = append(pl.deletes, e.Enrollment)
		case b.Preheat.Exists(tracker.TypeEnrollment, e.Enrollment):
			pl.updates = append(pl.updates, Record{UID: e.Enrollment, Body: e})
		default:
			pl.creates = append(pl.creates, Record{UID: e.Enrollment, Body: e})
		}
		pl.owners = append(pl.owners, e.TrackedEntity)
	}

	for i := range b.Payload.Events {
		ev := &b.Payload.Events[i]
		if rep.HasErrorFor(ev.Ref()) {
			continue
		}
		pl := plans[tracker.TypeEvent]
		switch {
		case ev.Deleted:
			pl.deletes = append(pl.deletes, ev.Event)
		case b.Preheat.Exists(tracker.TypeEvent, ev.Event):
			pl.updates = append(pl.updates, Record{UID: ev.Event, Body: ev})
		default:
			pl.creates = append(pl.creates, Record{UID: ev.Event, Body: ev})
		}
		if owner := eventOwner(b, ev); owner != "" {
			pl.owners = append(pl.owners, owner)
		}
	}

	for i := range b.Payload.Relationships {
		rel := &b.Payload.Relationships[i]
		if rep.HasErrorFor(rel.Ref()) {
			continue
		}
		pl := plans[tracker.TypeRelationship]
		switch {
		case rel.Deleted:
			pl.deletes = append(pl.deletes, rel.Relationship)
		case b.Preheat.Exists(tracker.TypeRelationship, rel.Relationship):
			pl.updates = append(pl.updates, Record{UID: rel.Relationship, Body: rel})
		default:
			pl.creates = append(pl.creates, Record{UID: rel.Relationship, Body: rel})
		}
	}

	return plans
}

// eventOwner resolves the tracked entity an event belongs to, via its
// enrollment in the payload or the preheat.
func eventOwner(b *bundle.Bundle, ev *tracker.Event) string {
	if ev.Enrollment == "" {
		return ""
	}
	for i := range b.Payload.Enrollments {
		if b.Payload.Enrollments[i].Enrollment == ev.Enrollment {
			return b.Payload.Enrollments[i].TrackedEntity
		}
	}
	if e, ok := b.Preheat.Enrollment(ev.Enrollment); ok {
		return e.TrackedEntity
	}
	return ""
}

// collectOwners flattens and deduplicates owner UIDs so each tracked
// entity is touched once per import call.
func collectOwners(plans map[tracker.Type]*plan) []string {
	seen := make(map[string]bool)
	var out []string
	for _, pl := range plans {
		for _, uid := range pl.owners {
			if uid == "" || seen[uid] {
				continue
			}
			seen[uid] = true
			out = append(out, uid)
		}
	}
	sort.Strings(out)
	return out
}
