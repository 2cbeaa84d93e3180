package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/trax/bundle"
	"github.com/teranos/trax/preheat"
	"github.com/teranos/trax/tracker"
	"github.com/teranos/trax/validation"
)

type storeCall struct {
	op   string
	kind tracker.Type
	uids []string
}

// recordingStore captures every bulk call in order. UIDs in missing
// behave like rows that are not in storage: deletes for them affect
// nothing.
type recordingStore struct {
	calls   []storeCall
	touched []string
	failOn  string
	missing map[string]bool
}

var _ TrackerStore = (*recordingStore)(nil)

func (s *recordingStore) BulkSave(_ context.Context, t tracker.Type, records []Record) error {
	if s.failOn == "save" {
		return assert.AnError
	}
	s.calls = append(s.calls, storeCall{op: "save", kind: t, uids: recordUIDs(records)})
	return nil
}

func (s *recordingStore) BulkUpdate(_ context.Context, t tracker.Type, records []Record) error {
	s.calls = append(s.calls, storeCall{op: "update", kind: t, uids: recordUIDs(records)})
	return nil
}

func (s *recordingStore) BulkDelete(_ context.Context, t tracker.Type, uids []string, _ bool) (int, error) {
	s.calls = append(s.calls, storeCall{op: "delete", kind: t, uids: uids})
	deleted := 0
	for _, uid := range uids {
		if s.missing[uid] {
			continue
		}
		deleted++
	}
	return deleted, nil
}

func (s *recordingStore) TouchOwners(_ context.Context, uids []string, _ time.Time) error {
	s.touched = append(s.touched, uids...)
	return nil
}

func recordUIDs(records []Record) []string {
	var out []string
	for _, r := range records {
		out = append(out, r.UID)
	}
	return out
}

type fixedSettings struct{}

func (fixedSettings) AllowAssignOverwrite() bool   { return false }
func (fixedSettings) MaxAttributeValueLength() int { return 1200 }

type okEncryption struct{}

func (okEncryption) Status() string { return bundle.EncryptionStatusOK }

func newBundle(payload *tracker.Payload, ph *preheat.Preheat, opts tracker.ImportOptions) *bundle.Bundle {
	return bundle.New(payload, ph, opts, fixedSettings{}, okEncryption{})
}

func TestPersistExcludesOnlyFailedEntities(t *testing.T) {
	payload := &tracker.Payload{
		TrackedEntities: []tracker.TrackedEntity{
			{TrackedEntity: "teGood0001x"},
			{TrackedEntity: "teBad00001x"},
		},
		Enrollments: []tracker.Enrollment{
			{Enrollment: "enGood0001x", TrackedEntity: "teGood0001x"},
		},
	}
	ph := preheat.NewBuilder(tracker.IdSchemeParams{}).Build()

	rep := validation.NewReporter()
	rep.AddError(tracker.Ref{Type: tracker.TypeTrackedEntity, UID: "teBad00001x"},
		tracker.CodeMissingOrgUnit, "org unit missing")

	store := &recordingStore{}
	p := NewPersister(store, zap.NewNop().Sugar())

	stats, err := p.Persist(context.Background(), newBundle(payload, ph, tracker.ImportOptions{}), rep)
	require.NoError(t, err)

	te := stats[tracker.TypeTrackedEntity]
	assert.Equal(t, 1, te.Created)
	assert.Equal(t, 1, te.Ignored)

	enr := stats[tracker.TypeEnrollment]
	assert.Equal(t, 1, enr.Created)
	assert.Equal(t, 0, enr.Ignored)

	require.NotEmpty(t, store.calls)
	assert.Equal(t, storeCall{op: "save", kind: tracker.TypeTrackedEntity, uids: []string{"teGood0001x"}}, store.calls[0])
}

func TestPersistUpdatesWhenPreheatKnowsEntity(t *testing.T) {
	payload := &tracker.Payload{
		TrackedEntities: []tracker.TrackedEntity{{TrackedEntity: "teExist001x"}},
	}
	ph := preheat.NewBuilder(tracker.IdSchemeParams{}).
		WithTrackedEntity(&tracker.TrackedEntity{TrackedEntity: "teExist001x"}).
		Build()

	store := &recordingStore{}
	p := NewPersister(store, zap.NewNop().Sugar())

	stats, err := p.Persist(context.Background(), newBundle(payload, ph, tracker.ImportOptions{}), validation.NewReporter())
	require.NoError(t, err)

	te := stats[tracker.TypeTrackedEntity]
	assert.Equal(t, 0, te.Created)
	assert.Equal(t, 1, te.Updated)
}

func TestPersistDeletesRunAfterSavesInReverseOrder(t *testing.T) {
	payload := &tracker.Payload{
		TrackedEntities: []tracker.TrackedEntity{
			{TrackedEntity: "teGone0001x", Deleted: true},
		},
		Events: []tracker.Event{
			{Event: "evGone0001x", Deleted: true},
			{Event: "evNew00001x"},
		},
	}
	ph := preheat.NewBuilder(tracker.IdSchemeParams{}).Build()

	store := &recordingStore{}
	p := NewPersister(store, zap.NewNop().Sugar())

	stats, err := p.Persist(context.Background(), newBundle(payload, ph, tracker.ImportOptions{}), validation.NewReporter())
	require.NoError(t, err)

	assert.Equal(t, 1, stats[tracker.TypeEvent].Created)
	assert.Equal(t, 1, stats[tracker.TypeEvent].Deleted)
	assert.Equal(t, 1, stats[tracker.TypeTrackedEntity].Deleted)

	var ops []string
	for _, c := range store.calls {
		if len(c.uids) > 0 {
			ops = append(ops, c.op+":"+string(c.kind))
		}
	}
	// Saves in forward kind order, then deletes in reverse kind order.
	assert.Equal(t, []string{
		"save:EVENT",
		"delete:EVENT",
		"delete:TRACKED_ENTITY",
	}, ops)
}

func TestPersistDeleteOfUnknownEntityCountsAsIgnored(t *testing.T) {
	payload := &tracker.Payload{
		TrackedEntities: []tracker.TrackedEntity{
			{TrackedEntity: "teGhost001x", Deleted: true},
			{TrackedEntity: "teGone0001x", Deleted: true},
		},
	}
	ph := preheat.NewBuilder(tracker.IdSchemeParams{}).Build()

	store := &recordingStore{missing: map[string]bool{"teGhost001x": true}}
	p := NewPersister(store, zap.NewNop().Sugar())

	stats, err := p.Persist(context.Background(), newBundle(payload, ph, tracker.ImportOptions{}), validation.NewReporter())
	require.NoError(t, err)

	te := stats[tracker.TypeTrackedEntity]
	assert.Equal(t, 1, te.Deleted, "only the delete that removed a row counts")
	assert.Equal(t, 1, te.Ignored, "a delete of an entity that never existed is ignored")
	assert.Equal(t, 0, te.Created)
	assert.Equal(t, 0, te.Updated)
}

func TestPersistTouchesOwnersOnce(t *testing.T) {
	payload := &tracker.Payload{
		Enrollments: []tracker.Enrollment{
			{Enrollment: "enA0000001x", TrackedEntity: "teOwner001x"},
		},
		Events: []tracker.Event{
			{Event: "evA0000001x", Enrollment: "enA0000001x"},
			{Event: "evB0000001x", Enrollment: "enA0000001x"},
		},
	}
	ph := preheat.NewBuilder(tracker.IdSchemeParams{}).Build()

	store := &recordingStore{}
	p := NewPersister(store, zap.NewNop().Sugar())

	_, err := p.Persist(context.Background(), newBundle(payload, ph, tracker.ImportOptions{}), validation.NewReporter())
	require.NoError(t, err)

	assert.Equal(t, []string{"teOwner001x"}, store.touched)
}

func TestPersistStoreFailureAborts(t *testing.T) {
	payload := &tracker.Payload{
		TrackedEntities: []tracker.TrackedEntity{{TrackedEntity: "te00000001x"}},
	}
	ph := preheat.NewBuilder(tracker.IdSchemeParams{}).Build()

	store := &recordingStore{failOn: "save"}
	p := NewPersister(store, zap.NewNop().Sugar())

	_, err := p.Persist(context.Background(), newBundle(payload, ph, tracker.ImportOptions{}), validation.NewReporter())
	assert.Error(t, err)
}
