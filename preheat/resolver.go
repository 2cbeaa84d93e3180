package preheat

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/trax/errors"
	"github.com/teranos/trax/metrics"
	"github.com/teranos/trax/tracker"
)

const programRuleCacheKey = "tracker.ProgramRule"

// ResolverConfig bounds the process-wide cache usage of the resolver.
type ResolverConfig struct {
	CacheTTLMinutes int
	CacheCapacity   int
}

// DefaultResolverConfig mirrors the config package defaults.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{CacheTTLMinutes: 10, CacheCapacity: 1000}
}

// Resolver builds the Preheat snapshot for one batch: exactly one bulk
// lookup per distinct referenced (kind, scheme) pair, plus cached lookups
// for slowly-changing rule metadata.
type Resolver struct {
	metadata MetadataRepository
	entities EntityRepository
	cache    *Cache
	cfg      ResolverConfig
	logger   *zap.SugaredLogger
}

// NewResolver creates a resolver sharing the process-wide cache.
func NewResolver(metadata MetadataRepository, entities EntityRepository, cache *Cache, cfg ResolverConfig, logger *zap.SugaredLogger) *Resolver {
	if cfg.CacheCapacity == 0 {
		cfg = DefaultResolverConfig()
	}
	return &Resolver{
		metadata: metadata,
		entities: entities,
		cache:    cache,
		cfg:      cfg,
		logger:   logger,
	}
}

// Resolve performs the preheat pass for a payload. Resolution gaps are
// recorded as not-found markers, never returned as errors; only repository
// failures abort.
func (r *Resolver) Resolve(ctx context.Context, payload *tracker.Payload, opts tracker.ImportOptions) (*Preheat, error) {
	start := time.Now()
	ph := newPreheat(opts.IdSchemes)

	refs := collectReferences(payload)
	for _, kind := range tracker.MetadataKinds() {
		values := refs[kind]
		if len(values) == 0 {
			continue
		}
		if err := r.resolveKind(ctx, ph, kind, values); err != nil {
			return nil, err
		}
	}

	if err := r.resolveEntities(ctx, ph, payload); err != nil {
		return nil, err
	}

	if err := r.resolveUniqueValues(ctx, ph); err != nil {
		return nil, err
	}

	r.resolveRules(ctx, ph)

	r.logger.Debugw("preheat resolved",
		"payload_size", payload.Size(),
		"metadata_kinds", len(refs),
		"rules", len(ph.rules),
		"duration", time.Since(start))
	return ph, nil
}

func (r *Resolver) resolveKind(ctx context.Context, ph *Preheat, kind tracker.MetadataKind, values []string) error {
	param := ph.idSchemes.ForKind(kind)

	metrics.BulkLookup()
	found, err := r.metadata.FindMetadata(ctx, kind, param, values)
	if err != nil {
		return errors.Wrapf(err, "bulk lookup of %s references", kind)
	}

	for _, value := range values {
		id := tracker.NewIdentifier(param, value)
		if obj, ok := found[value]; ok {
			ph.putMetadata(kind, id, obj)
		} else {
			ph.markNotFound(kind, id)
		}
	}
	return nil
}

func (r *Resolver) resolveEntities(ctx context.Context, ph *Preheat, payload *tracker.Payload) error {
	if uids := trackedEntityUIDs(payload); len(uids) > 0 {
		metrics.BulkLookup()
		existing, err := r.entities.FindTrackedEntities(ctx, uids)
		if err != nil {
			return errors.Wrap(err, "bulk lookup of tracked entities")
		}
		ph.trackedEntities = existing
	}
	if uids := uidsOf(len(payload.Enrollments), func(i int) string { return payload.Enrollments[i].Enrollment }); len(uids) > 0 {
		metrics.BulkLookup()
		existing, err := r.entities.FindEnrollments(ctx, uids)
		if err != nil {
			return errors.Wrap(err, "bulk lookup of enrollments")
		}
		ph.enrollments = existing
	}
	if uids := uidsOf(len(payload.Events), func(i int) string { return payload.Events[i].Event }); len(uids) > 0 {
		metrics.BulkLookup()
		existing, err := r.entities.FindEvents(ctx, uids)
		if err != nil {
			return errors.Wrap(err, "bulk lookup of events")
		}
		ph.events = existing
	}
	if uids := uidsOf(len(payload.Relationships), func(i int) string { return payload.Relationships[i].Relationship }); len(uids) > 0 {
		metrics.BulkLookup()
		existing, err := r.entities.FindRelationships(ctx, uids)
		if err != nil {
			return errors.Wrap(err, "bulk lookup of relationships")
		}
		ph.relationships = existing
	}
	return nil
}

// resolveUniqueValues precomputes the existing values of every unique
// attribute the batch touches, so the uniqueness validator never issues a
// per-candidate query.
func (r *Resolver) resolveUniqueValues(ctx context.Context, ph *Preheat) error {
	var uniqueAttrs []string
	for _, obj := range ph.metadata[tracker.KindTrackedEntityAttribute] {
		if tea, ok := obj.(*tracker.TrackedEntityAttribute); ok && tea.Unique {
			uniqueAttrs = append(uniqueAttrs, tea.UID)
		}
	}
	if len(uniqueAttrs) == 0 {
		return nil
	}
	sort.Strings(uniqueAttrs)

	metrics.BulkLookup()
	values, err := r.entities.UniqueAttributeValues(ctx, uniqueAttrs)
	if err != nil {
		return errors.Wrap(err, "bulk lookup of unique attribute values")
	}
	for _, v := range values {
		ph.uniqueValues[uniqueKey(v.AttributeUID, v.OrgUnitUID, v.Value)] = v.OwnerUID
	}
	return nil
}

// resolveRules loads program rules through the process-wide cache; rules
// are payload-external reference data that changes slowly across
// sequential imports. A load failure degrades to "no rules" for that
// program rather than failing the batch.
func (r *Resolver) resolveRules(ctx context.Context, ph *Preheat) {
	programs := make([]string, 0, len(ph.metadata[tracker.KindProgram]))
	seen := make(map[string]struct{})
	for _, obj := range ph.metadata[tracker.KindProgram] {
		p, ok := obj.(*tracker.Program)
		if !ok {
			continue
		}
		if _, dup := seen[p.UID]; dup {
			continue
		}
		seen[p.UID] = struct{}{}
		programs = append(programs, p.UID)
	}
	sort.Strings(programs)

	var rules []tracker.ProgramRule
	for _, programUID := range programs {
		v, ok := r.cache.GetOrCompute(programRuleCacheKey, programUID, func(_, uid string) (interface{}, bool) {
			loaded, err := r.metadata.ProgramRules(ctx, uid)
			if err != nil {
				r.logger.Warnw("program rule load failed, continuing without rules",
					"program", uid, "error", err)
				return nil, false
			}
			return loaded, true
		}, r.cfg.CacheTTLMinutes, r.cfg.CacheCapacity)
		if !ok {
			continue
		}
		if programRules, ok := v.([]tracker.ProgramRule); ok {
			rules = append(rules, programRules...)
		}
	}
	ph.setRules(rules)
}

// collectReferences gathers the distinct raw reference values per metadata
// kind across the whole payload.
func collectReferences(payload *tracker.Payload) map[tracker.MetadataKind][]string {
	sets := make(map[tracker.MetadataKind]map[string]struct{})
	add := func(kind tracker.MetadataKind, value string) {
		if value == "" {
			return
		}
		s, ok := sets[kind]
		if !ok {
			s = make(map[string]struct{})
			sets[kind] = s
		}
		s[value] = struct{}{}
	}

	for i := range payload.TrackedEntities {
		te := &payload.TrackedEntities[i]
		add(tracker.KindTrackedEntityType, te.TrackedEntityType)
		add(tracker.KindOrganisationUnit, te.OrgUnit)
		for _, a := range te.Attributes {
			add(tracker.KindTrackedEntityAttribute, a.Attribute)
		}
	}
	for i := range payload.Enrollments {
		e := &payload.Enrollments[i]
		add(tracker.KindProgram, e.Program)
		add(tracker.KindOrganisationUnit, e.OrgUnit)
		for _, a := range e.Attributes {
			add(tracker.KindTrackedEntityAttribute, a.Attribute)
		}
	}
	for i := range payload.Events {
		ev := &payload.Events[i]
		add(tracker.KindProgram, ev.Program)
		add(tracker.KindProgramStage, ev.ProgramStage)
		add(tracker.KindOrganisationUnit, ev.OrgUnit)
		add(tracker.KindCategoryOptionCombo, ev.AttributeOptionCombo)
		for _, dv := range ev.DataValues {
			add(tracker.KindDataElement, dv.DataElement)
		}
	}
	for i := range payload.Relationships {
		add(tracker.KindRelationshipType, payload.Relationships[i].RelationshipType)
	}

	out := make(map[tracker.MetadataKind][]string, len(sets))
	for kind, s := range sets {
		values := make([]string, 0, len(s))
		for v := range s {
			values = append(values, v)
		}
		sort.Strings(values)
		out[kind] = values
	}
	return out
}

func trackedEntityUIDs(payload *tracker.Payload) []string {
	return uidsOf(len(payload.TrackedEntities), func(i int) string { return payload.TrackedEntities[i].TrackedEntity })
}

func uidsOf(n int, at func(int) string) []string {
	seen := make(map[string]struct{}, n)
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		uid := at(i)
		if uid == "" {
			continue
		}
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}
		out = append(out, uid)
	}
	return out
}
