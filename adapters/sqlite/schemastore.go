package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/artpar/objectschema/core/registry"
	"github.com/artpar/objectschema/core/schema"
	"github.com/artpar/objectschema/ports"
	"github.com/rs/zerolog"
)

// SchemaStore implements ports.SchemaStore using SQLite. Schemas are stored
// as JSON documents; decoded schemas are cached and reused while the stored
// digest is unchanged. A cached schema changed in place after it was saved
// is written back on its next lookup.
type SchemaStore struct {
	db     *DB
	opts   []schema.Option
	logger zerolog.Logger

	mu    sync.RWMutex
	cache map[string]cachedSchema
}

type cachedSchema struct {
	digest   string
	revision uint64
	schema   *schema.ObjectSchema
}

// StoreOption configures a SchemaStore.
type StoreOption func(*SchemaStore)

// WithLogger sets the store logger.
func WithLogger(l zerolog.Logger) StoreOption {
	return func(s *SchemaStore) {
		s.logger = l
	}
}

// WithSchemaOptions sets the options used when decoding stored schemas.
func WithSchemaOptions(opts ...schema.Option) StoreOption {
	return func(s *SchemaStore) {
		s.opts = opts
	}
}

// NewSchemaStore creates a new SQLite schema store.
func NewSchemaStore(db *DB, opts ...StoreOption) *SchemaStore {
	s := &SchemaStore{
		db:     db,
		logger: zerolog.Nop(),
		cache:  make(map[string]cachedSchema),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterSchema upserts a schema by namespace and version.
func (s *SchemaStore) RegisterSchema(sch *schema.ObjectSchema) error {
	return s.Save(context.Background(), sch)
}

// Save upserts a schema by namespace and version.
func (s *SchemaStore) Save(ctx context.Context, sch *schema.ObjectSchema) error {
	doc, err := json.Marshal(sch.Definition())
	if err != nil {
		return fmt.Errorf("encode schema %s: %w", sch.Key(), err)
	}
	revision := sch.Revision()
	digest, err := schema.Digest(sch)
	if err != nil {
		return err
	}
	id := sch.Identity()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO object_schemas (namespace, version, id, description, document, digest, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(namespace, version) DO UPDATE SET
			id = excluded.id,
			description = excluded.description,
			document = excluded.document,
			digest = excluded.digest,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`, sch.Namespace(), sch.Version(), id.ID, sch.Description(), string(doc), digest, id.CreatedOn, id.UpdatedOn)
	if err != nil {
		return fmt.Errorf("save schema %s: %w", sch.Key(), err)
	}

	s.mu.Lock()
	s.cache[sch.Key()] = cachedSchema{digest: digest, revision: revision, schema: sch}
	s.mu.Unlock()

	s.logger.Debug().Str("schema", sch.Key()).Str("digest", digest[:12]).Msg("schema saved")
	return nil
}

// GetSchemaType returns the referenced type, or nil if the schema or type is missing.
func (s *SchemaStore) GetSchemaType(ref schema.TypeRef) (*schema.Type, error) {
	sch, err := s.GetSchema(ref.Namespace, ref.Version)
	if err != nil || sch == nil {
		return nil, err
	}
	t, ok := sch.Type(ref.Type)
	if !ok {
		return nil, nil
	}
	return t, nil
}

// GetSchema loads a schema, or returns nil if none is stored.
func (s *SchemaStore) GetSchema(namespace, version string) (*schema.ObjectSchema, error) {
	return s.Get(context.Background(), namespace, version)
}

// Get loads a schema, or returns nil if none is stored.
func (s *SchemaStore) Get(ctx context.Context, namespace, version string) (*schema.ObjectSchema, error) {
	key := schema.SchemaKey(namespace, version)

	var digest string
	err := s.db.QueryRowContext(ctx,
		`SELECT digest FROM object_schemas WHERE namespace = ? AND version = ?`,
		namespace, version,
	).Scan(&digest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup schema %s: %w", key, err)
	}

	s.mu.RLock()
	c, ok := s.cache[key]
	s.mu.RUnlock()
	if ok && c.digest == digest {
		if c.schema.Revision() != c.revision {
			if err := s.Save(ctx, c.schema); err != nil {
				return nil, err
			}
		}
		return c.schema, nil
	}

	sch, err := s.load(ctx, namespace, version)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[key] = cachedSchema{digest: digest, revision: sch.Revision(), schema: sch}
	s.mu.Unlock()
	return sch, nil
}

func (s *SchemaStore) load(ctx context.Context, namespace, version string) (*schema.ObjectSchema, error) {
	var (
		id, doc              string
		createdAt, updatedAt time.Time
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, document, created_at, updated_at
		FROM object_schemas
		WHERE namespace = ? AND version = ?
	`, namespace, version).Scan(&id, &doc, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", schema.SchemaKey(namespace, version), err)
	}

	opts := append([]schema.Option{schema.WithIdentity(schema.Identity{
		ID:         id,
		CreatedOn:  createdAt.UTC(),
		UpdatedOn:  updatedAt.UTC(),
		EntityType: schema.EntityType,
	})}, s.opts...)
	sch, err := schema.ParseJSON([]byte(doc), opts...)
	if err != nil {
		return nil, fmt.Errorf("decode stored schema: %w", err)
	}
	s.logger.Debug().Str("schema", sch.Key()).Msg("schema loaded")
	return sch, nil
}

// Delete removes a schema. It reports whether one was stored.
func (s *SchemaStore) Delete(ctx context.Context, namespace, version string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM object_schemas WHERE namespace = ? AND version = ?`,
		namespace, version,
	)
	if err != nil {
		return false, fmt.Errorf("delete schema: %w", err)
	}

	s.mu.Lock()
	delete(s.cache, schema.SchemaKey(namespace, version))
	s.mu.Unlock()

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RemoveSchema deletes a schema. It reports whether one was stored.
func (s *SchemaStore) RemoveSchema(namespace, version string) (bool, error) {
	return s.Delete(context.Background(), namespace, version)
}

// LatestSchema returns the highest stored version of namespace, or nil.
func (s *SchemaStore) LatestSchema(namespace string) (*schema.ObjectSchema, error) {
	ctx := context.Background()
	rows, err := s.db.QueryContext(ctx,
		`SELECT version FROM object_schemas WHERE namespace = ?`, namespace)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	latest := ""
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		if latest == "" || registry.CompareVersions(v, latest) > 0 {
			latest = v
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if latest == "" {
		return nil, nil
	}
	return s.Get(ctx, namespace, latest)
}

// ListSchemas summarizes every stored schema, by namespace then semantic version.
func (s *SchemaStore) ListSchemas() ([]ports.SchemaInfo, error) {
	return s.List(context.Background())
}

// List summarizes every stored schema, by namespace then semantic version.
func (s *SchemaStore) List(ctx context.Context) ([]ports.SchemaInfo, error) {
	if err := s.flush(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT namespace, version, description, document, digest, updated_at
		FROM object_schemas
	`)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	defer rows.Close()

	var infos []ports.SchemaInfo
	for rows.Next() {
		var (
			info ports.SchemaInfo
			doc  string
		)
		if err := rows.Scan(&info.Namespace, &info.Version, &info.Description, &doc, &info.Digest, &info.UpdatedOn); err != nil {
			return nil, fmt.Errorf("scan schema: %w", err)
		}
		var def schema.Definition
		if err := json.Unmarshal([]byte(doc), &def); err != nil {
			return nil, fmt.Errorf("decode stored schema %s: %w", info.Key(), err)
		}
		info.Types = make([]string, 0, len(def.Types))
		for name := range def.Types {
			info.Types = append(info.Types, name)
		}
		sort.Strings(info.Types)
		info.UpdatedOn = info.UpdatedOn.UTC()
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	registry.SortInfos(infos)
	return infos, nil
}

// flush writes back cached schemas changed in place since they were saved.
func (s *SchemaStore) flush(ctx context.Context) error {
	s.mu.RLock()
	var stale []*schema.ObjectSchema
	for _, c := range s.cache {
		if c.schema.Revision() != c.revision {
			stale = append(stale, c.schema)
		}
	}
	s.mu.RUnlock()

	for _, sch := range stale {
		if err := s.Save(ctx, sch); err != nil {
			return err
		}
	}
	return nil
}

// Ensure interface compliance.
var (
	_ ports.SchemaStore   = (*SchemaStore)(nil)
	_ ports.SchemaLister  = (*SchemaStore)(nil)
	_ ports.SchemaGetter  = (*SchemaStore)(nil)
	_ ports.SchemaRemover = (*SchemaStore)(nil)
	_ ports.LatestGetter  = (*SchemaStore)(nil)
)
