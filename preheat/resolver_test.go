package preheat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/trax/tracker"
)

// countingRepo records one entry per bulk call so tests can assert the
// one-lookup-per-(kind,scheme) contract.
type countingRepo struct {
	metadataCalls map[tracker.MetadataKind]int
	ruleCalls     int
	uniqueCalls   int
	entityCalls   int

	objects     map[tracker.MetadataKind]map[string]interface{}
	rules       map[string][]tracker.ProgramRule
	ruleErr     error
	uniqueVals  []UniqueValue
	trackedEnts map[string]*tracker.TrackedEntity
}

var _ MetadataRepository = (*countingRepo)(nil)
var _ EntityRepository = (*countingRepo)(nil)

func newCountingRepo() *countingRepo {
	return &countingRepo{
		metadataCalls: make(map[tracker.MetadataKind]int),
		objects:       make(map[tracker.MetadataKind]map[string]interface{}),
		rules:         make(map[string][]tracker.ProgramRule),
		trackedEnts:   make(map[string]*tracker.TrackedEntity),
	}
}

func (r *countingRepo) put(kind tracker.MetadataKind, value string, obj interface{}) {
	if r.objects[kind] == nil {
		r.objects[kind] = make(map[string]interface{})
	}
	r.objects[kind][value] = obj
}

func (r *countingRepo) FindMetadata(_ context.Context, kind tracker.MetadataKind, _ tracker.IdSchemeParam, values []string) (map[string]interface{}, error) {
	r.metadataCalls[kind]++
	found := make(map[string]interface{})
	for _, v := range values {
		if obj, ok := r.objects[kind][v]; ok {
			found[v] = obj
		}
	}
	return found, nil
}

func (r *countingRepo) ProgramRules(_ context.Context, programUID string) ([]tracker.ProgramRule, error) {
	r.ruleCalls++
	if r.ruleErr != nil {
		return nil, r.ruleErr
	}
	return r.rules[programUID], nil
}

func (r *countingRepo) FindTrackedEntities(_ context.Context, uids []string) (map[string]*tracker.TrackedEntity, error) {
	r.entityCalls++
	out := make(map[string]*tracker.TrackedEntity)
	for _, uid := range uids {
		if te, ok := r.trackedEnts[uid]; ok {
			out[uid] = te
		}
	}
	return out, nil
}

func (r *countingRepo) FindEnrollments(_ context.Context, _ []string) (map[string]*tracker.Enrollment, error) {
	r.entityCalls++
	return map[string]*tracker.Enrollment{}, nil
}

func (r *countingRepo) FindEvents(_ context.Context, _ []string) (map[string]*tracker.Event, error) {
	r.entityCalls++
	return map[string]*tracker.Event{}, nil
}

func (r *countingRepo) FindRelationships(_ context.Context, _ []string) (map[string]*tracker.Relationship, error) {
	r.entityCalls++
	return map[string]*tracker.Relationship{}, nil
}

func (r *countingRepo) UniqueAttributeValues(_ context.Context, _ []string) ([]UniqueValue, error) {
	r.uniqueCalls++
	return r.uniqueVals, nil
}

func newTestResolver(repo *countingRepo) *Resolver {
	return NewResolver(repo, repo, NewCache(), DefaultResolverConfig(), zap.NewNop().Sugar())
}

func TestResolveOneLookupPerKind(t *testing.T) {
	repo := newCountingRepo()
	repo.put(tracker.KindOrganisationUnit, "ouA", &tracker.OrganisationUnit{Identifiable: tracker.Identifiable{UID: "ouA"}})
	repo.put(tracker.KindProgram, "prA", &tracker.Program{Identifiable: tracker.Identifiable{UID: "prA"}})

	payload := &tracker.Payload{
		TrackedEntities: []tracker.TrackedEntity{
			{TrackedEntity: "te1", OrgUnit: "ouA"},
			{TrackedEntity: "te2", OrgUnit: "ouA"},
		},
		Enrollments: []tracker.Enrollment{
			{Enrollment: "en1", Program: "prA", OrgUnit: "ouA", TrackedEntity: "te1"},
			{Enrollment: "en2", Program: "prA", OrgUnit: "ouA", TrackedEntity: "te2"},
		},
	}

	ph, err := newTestResolver(repo).Resolve(context.Background(), payload, tracker.ImportOptions{})
	require.NoError(t, err)

	// Two entities and two enrollments reference the same org unit; one
	// bulk lookup per kind regardless.
	assert.Equal(t, 1, repo.metadataCalls[tracker.KindOrganisationUnit])
	assert.Equal(t, 1, repo.metadataCalls[tracker.KindProgram])

	ou, ok := ph.OrganisationUnit("ouA")
	require.True(t, ok)
	assert.Equal(t, "ouA", ou.UID)
}

func TestResolveMarksMissingReferencesNotFound(t *testing.T) {
	repo := newCountingRepo()
	payload := &tracker.Payload{
		TrackedEntities: []tracker.TrackedEntity{
			{TrackedEntity: "te1", OrgUnit: "ouMissing"},
		},
	}

	ph, err := newTestResolver(repo).Resolve(context.Background(), payload, tracker.ImportOptions{})
	require.NoError(t, err)

	_, ok := ph.OrganisationUnit("ouMissing")
	assert.False(t, ok)
	assert.True(t, ph.IsNotFound(tracker.KindOrganisationUnit, "ouMissing"))
	assert.False(t, ph.IsNotFound(tracker.KindOrganisationUnit, "ouNeverAsked"))
}

func TestResolveCachesProgramRulesAcrossBatches(t *testing.T) {
	repo := newCountingRepo()
	repo.put(tracker.KindProgram, "prA", &tracker.Program{Identifiable: tracker.Identifiable{UID: "prA"}})
	repo.rules["prA"] = []tracker.ProgramRule{
		{UID: "rul2", ProgramUID: "prA", Priority: 2},
		{UID: "rul1", ProgramUID: "prA", Priority: 1},
	}

	resolver := newTestResolver(repo)
	payload := &tracker.Payload{
		Enrollments: []tracker.Enrollment{
			{Enrollment: "en1", Program: "prA", OrgUnit: "ouA", TrackedEntity: "te1"},
		},
	}

	ph, err := resolver.Resolve(context.Background(), payload, tracker.ImportOptions{})
	require.NoError(t, err)
	require.Len(t, ph.Rules(), 2)
	assert.Equal(t, "rul1", ph.Rules()[0].UID, "rules sorted by priority")

	_, err = resolver.Resolve(context.Background(), payload, tracker.ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.ruleCalls, "second batch served from the rule cache")
}

func TestResolveRuleLoadFailureDegradesToNoRules(t *testing.T) {
	repo := newCountingRepo()
	repo.put(tracker.KindProgram, "prA", &tracker.Program{Identifiable: tracker.Identifiable{UID: "prA"}})
	repo.ruleErr = assert.AnError

	payload := &tracker.Payload{
		Enrollments: []tracker.Enrollment{
			{Enrollment: "en1", Program: "prA", OrgUnit: "ouA", TrackedEntity: "te1"},
		},
	}

	ph, err := newTestResolver(repo).Resolve(context.Background(), payload, tracker.ImportOptions{})
	require.NoError(t, err)
	assert.Empty(t, ph.Rules())
}

func TestResolveUniqueValuesSingleLookup(t *testing.T) {
	repo := newCountingRepo()
	repo.put(tracker.KindTrackedEntityAttribute, "teaU", &tracker.TrackedEntityAttribute{
		Identifiable: tracker.Identifiable{UID: "teaU"},
		Unique:       true,
	})
	repo.put(tracker.KindTrackedEntityAttribute, "teaPlain", &tracker.TrackedEntityAttribute{
		Identifiable: tracker.Identifiable{UID: "teaPlain"},
	})
	repo.uniqueVals = []UniqueValue{
		{AttributeUID: "teaU", Value: "123", OwnerUID: "teOwner"},
	}

	payload := &tracker.Payload{
		TrackedEntities: []tracker.TrackedEntity{
			{TrackedEntity: "te1", OrgUnit: "ouA", Attributes: []tracker.Attribute{
				{Attribute: "teaU", Value: "123"},
				{Attribute: "teaPlain", Value: "x"},
			}},
			{TrackedEntity: "te2", OrgUnit: "ouA", Attributes: []tracker.Attribute{
				{Attribute: "teaU", Value: "456"},
			}},
		},
	}

	ph, err := newTestResolver(repo).Resolve(context.Background(), payload, tracker.ImportOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, repo.uniqueCalls)
	owner, ok := ph.UniqueValueOwner("teaU", "", "123")
	require.True(t, ok)
	assert.Equal(t, "teOwner", owner)
	_, ok = ph.UniqueValueOwner("teaU", "", "456")
	assert.False(t, ok)
}

func TestResolveLoadsExistingEntities(t *testing.T) {
	repo := newCountingRepo()
	repo.trackedEnts["teExisting"] = &tracker.TrackedEntity{TrackedEntity: "teExisting"}

	payload := &tracker.Payload{
		TrackedEntities: []tracker.TrackedEntity{
			{TrackedEntity: "teExisting", OrgUnit: "ouA"},
			{TrackedEntity: "teNew", OrgUnit: "ouA"},
		},
	}

	ph, err := newTestResolver(repo).Resolve(context.Background(), payload, tracker.ImportOptions{})
	require.NoError(t, err)

	assert.True(t, ph.Exists(tracker.TypeTrackedEntity, "teExisting"))
	assert.False(t, ph.Exists(tracker.TypeTrackedEntity, "teNew"))
}
