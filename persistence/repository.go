package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/trax/errors"
	"github.com/teranos/trax/preheat"
	"github.com/teranos/trax/tracker"
)

// MetadataSchema creates the metadata tables the preheat resolver reads.
// Metadata is written by the administrative sync process, not by the
// import pipeline; the pipeline only reads it.
const MetadataSchema = `
CREATE TABLE IF NOT EXISTS organisation_units (uid TEXT PRIMARY KEY, body TEXT NOT NULL);
CREATE TABLE IF NOT EXISTS tracked_entity_types (uid TEXT PRIMARY KEY, body TEXT NOT NULL);
CREATE TABLE IF NOT EXISTS programs (uid TEXT PRIMARY KEY, body TEXT NOT NULL);
CREATE TABLE IF NOT EXISTS program_stages (uid TEXT PRIMARY KEY, body TEXT NOT NULL);
CREATE TABLE IF NOT EXISTS data_elements (uid TEXT PRIMARY KEY, body TEXT NOT NULL);
CREATE TABLE IF NOT EXISTS tracked_entity_attributes (uid TEXT PRIMARY KEY, body TEXT NOT NULL);
CREATE TABLE IF NOT EXISTS category_option_combos (uid TEXT PRIMARY KEY, body TEXT NOT NULL);
CREATE TABLE IF NOT EXISTS relationship_types (uid TEXT PRIMARY KEY, body TEXT NOT NULL);
CREATE TABLE IF NOT EXISTS program_rules (uid TEXT PRIMARY KEY, program_uid TEXT NOT NULL, body TEXT NOT NULL);
CREATE INDEX IF NOT EXISTS idx_program_rules_program ON program_rules(program_uid);
CREATE TABLE IF NOT EXISTS unique_attribute_values (
	attribute_uid TEXT NOT NULL,
	org_unit_uid TEXT NOT NULL DEFAULT '',
	value TEXT NOT NULL,
	owner_uid TEXT NOT NULL,
	PRIMARY KEY (attribute_uid, org_unit_uid, value)
);`

var metadataTables = map[tracker.MetadataKind]string{
	tracker.KindOrganisationUnit:       "organisation_units",
	tracker.KindTrackedEntityType:      "tracked_entity_types",
	tracker.KindProgram:                "programs",
	tracker.KindProgramStage:           "program_stages",
	tracker.KindDataElement:            "data_elements",
	tracker.KindTrackedEntityAttribute: "tracked_entity_attributes",
	tracker.KindCategoryOptionCombo:    "category_option_combos",
	tracker.KindRelationshipType:       "relationship_types",
}

// SQLRepository serves the preheat resolver's bulk lookups from the same
// SQLite database the store writes to.
type SQLRepository struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

var _ preheat.MetadataRepository = (*SQLRepository)(nil)
var _ preheat.EntityRepository = (*SQLRepository)(nil)

// NewSQLRepository creates a repository over an open database handle.
func NewSQLRepository(db *sql.DB, logger *zap.SugaredLogger) *SQLRepository {
	return &SQLRepository{db: db, logger: logger}
}

// EnsureSchema creates the metadata tables if they do not exist.
func (r *SQLRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, MetadataSchema); err != nil {
		return errors.Wrap(err, "failed to create metadata schema")
	}
	return nil
}

// schemePath maps a scheme param to the JSON path the lookup matches on.
func schemePath(param tracker.IdSchemeParam) string {
	switch param.Scheme {
	case tracker.SchemeCode:
		return "$.code"
	case tracker.SchemeName:
		return "$.name"
	case tracker.SchemeAttribute:
		return "$.attributeValues." + param.AttributeUID
	default:
		return "$.uid"
	}
}

// FindMetadata resolves raw payload values of one kind in a single query.
func (r *SQLRepository) FindMetadata(ctx context.Context, kind tracker.MetadataKind, param tracker.IdSchemeParam, values []string) (map[string]interface{}, error) {
	table, ok := metadataTables[kind]
	if !ok {
		return nil, errors.Newf("no metadata table for kind %q", kind)
	}
	if len(values) == 0 {
		return map[string]interface{}{}, nil
	}

	query := fmt.Sprintf(
		"SELECT json_extract(body, '%s'), body FROM %s WHERE json_extract(body, '%s') IN (%s)",
		schemePath(param), table, schemePath(param), placeholders(len(values)))

	rows, err := r.db.QueryContext(ctx, query, args(values)...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query %s", table)
	}
	defer rows.Close()

	found := make(map[string]interface{}, len(values))
	for rows.Next() {
		var matched, body string
		if err := rows.Scan(&matched, &body); err != nil {
			return nil, errors.Wrapf(err, "failed to scan %s row", table)
		}
		obj, err := unmarshalMetadata(kind, body)
		if err != nil {
			return nil, err
		}
		found[matched] = obj
	}
	r.logger.Debugw("metadata lookup",
		"kind", kind, "scheme", param.Scheme, "requested", len(values), "found", len(found))
	return found, rows.Err()
}

func unmarshalMetadata(kind tracker.MetadataKind, body string) (interface{}, error) {
	var obj interface{}
	switch kind {
	case tracker.KindOrganisationUnit:
		obj = &tracker.OrganisationUnit{}
	case tracker.KindTrackedEntityType:
		obj = &tracker.TrackedEntityType{}
	case tracker.KindProgram:
		obj = &tracker.Program{}
	case tracker.KindProgramStage:
		obj = &tracker.ProgramStage{}
	case tracker.KindDataElement:
		obj = &tracker.DataElement{}
	case tracker.KindTrackedEntityAttribute:
		obj = &tracker.TrackedEntityAttribute{}
	case tracker.KindCategoryOptionCombo:
		obj = &tracker.CategoryOptionCombo{}
	case tracker.KindRelationshipType:
		obj = &tracker.RelationshipType{}
	default:
		return nil, errors.Newf("cannot unmarshal metadata kind %q", kind)
	}
	if err := json.Unmarshal([]byte(body), obj); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal %s metadata", kind)
	}
	return obj, nil
}

// ProgramRules returns the configured rules of one program.
func (r *SQLRepository) ProgramRules(ctx context.Context, programUID string) ([]tracker.ProgramRule, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT body FROM program_rules WHERE program_uid = ?", programUID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query rules of program %s", programUID)
	}
	defer rows.Close()

	var rules []tracker.ProgramRule
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, errors.Wrap(err, "failed to scan program rule row")
		}
		var rule tracker.ProgramRule
		if err := json.Unmarshal([]byte(body), &rule); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal program rule")
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// FindTrackedEntities returns the stored tracked entities among uids.
func (r *SQLRepository) FindTrackedEntities(ctx context.Context, uids []string) (map[string]*tracker.TrackedEntity, error) {
	out := make(map[string]*tracker.TrackedEntity)
	err := r.findEntities(ctx, "tracked_entities", uids, func(uid, body string) error {
		var te tracker.TrackedEntity
		if err := json.Unmarshal([]byte(body), &te); err != nil {
			return err
		}
		out[uid] = &te
		return nil
	})
	return out, err
}

// FindEnrollments returns the stored enrollments among uids.
func (r *SQLRepository) FindEnrollments(ctx context.Context, uids []string) (map[string]*tracker.Enrollment, error) {
	out := make(map[string]*tracker.Enrollment)
	err := r.findEntities(ctx, "enrollments", uids, func(uid, body string) error {
		var e tracker.Enrollment
		if err := json.Unmarshal([]byte(body), &e); err != nil {
			return err
		}
		out[uid] = &e
		return nil
	})
	return out, err
}

// FindEvents returns the stored events among uids.
func (r *SQLRepository) FindEvents(ctx context.Context, uids []string) (map[string]*tracker.Event, error) {
	out := make(map[string]*tracker.Event)
	err := r.findEntities(ctx, "events", uids, func(uid, body string) error {
		var e tracker.Event
		if err := json.Unmarshal([]byte(body), &e); err != nil {
			return err
		}
		out[uid] = &e
		return nil
	})
	return out, err
}

// FindRelationships returns the stored relationships among uids.
func (r *SQLRepository) FindRelationships(ctx context.Context, uids []string) (map[string]*tracker.Relationship, error) {
	out := make(map[string]*tracker.Relationship)
	err := r.findEntities(ctx, "relationships", uids, func(uid, body string) error {
		var rel tracker.Relationship
		if err := json.Unmarshal([]byte(body), &rel); err != nil {
			return err
		}
		out[uid] = &rel
		return nil
	})
	return out, err
}

func (r *SQLRepository) findEntities(ctx context.Context, table string, uids []string, scan func(uid, body string) error) error {
	if len(uids) == 0 {
		return nil
	}
	query := fmt.Sprintf("SELECT uid, body FROM %s WHERE uid IN (%s)", table, placeholders(len(uids)))
	rows, err := r.db.QueryContext(ctx, query, args(uids)...)
	if err != nil {
		return errors.Wrapf(err, "failed to query %s", table)
	}
	defer rows.Close()

	for rows.Next() {
		var uid, body string
		if err := rows.Scan(&uid, &body); err != nil {
			return errors.Wrapf(err, "failed to scan %s row", table)
		}
		if err := scan(uid, body); err != nil {
			return errors.Wrapf(err, "failed to unmarshal %s %s", table, uid)
		}
	}
	return rows.Err()
}

// UniqueAttributeValues returns every stored value of the given unique
// attributes with its owner and org unit scope.
func (r *SQLRepository) UniqueAttributeValues(ctx context.Context, attributeUIDs []string) ([]preheat.UniqueValue, error) {
	if len(attributeUIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(
		"SELECT attribute_uid, org_unit_uid, value, owner_uid FROM unique_attribute_values WHERE attribute_uid IN (%s)",
		placeholders(len(attributeUIDs)))

	rows, err := r.db.QueryContext(ctx, query, args(attributeUIDs)...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query unique attribute values")
	}
	defer rows.Close()

	var out []preheat.UniqueValue
	for rows.Next() {
		var v preheat.UniqueValue
		if err := rows.Scan(&v.AttributeUID, &v.OrgUnitUID, &v.Value, &v.OwnerUID); err != nil {
			return nil, errors.Wrap(err, "failed to scan unique attribute value row")
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func args(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
