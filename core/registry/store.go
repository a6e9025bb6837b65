package registry

import (
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/artpar/objectschema/core/schema"
	"github.com/artpar/objectschema/ports"
)

// mapStore is the default backing store. It is not safe for concurrent use;
// substitute adapters/memory for that.
type mapStore struct {
	schemas map[string]*schema.ObjectSchema
}

func newMapStore() *mapStore {
	return &mapStore{schemas: make(map[string]*schema.ObjectSchema)}
}

func (m *mapStore) GetSchemaType(ref schema.TypeRef) (*schema.Type, error) {
	s, ok := m.schemas[ref.SchemaKey()]
	if !ok {
		return nil, nil
	}
	t, ok := s.Type(ref.Type)
	if !ok {
		return nil, nil
	}
	return t, nil
}

func (m *mapStore) RegisterSchema(s *schema.ObjectSchema) error {
	m.schemas[s.Key()] = s
	return nil
}

func (m *mapStore) GetSchema(namespace, version string) (*schema.ObjectSchema, error) {
	return m.schemas[schema.SchemaKey(namespace, version)], nil
}

func (m *mapStore) RemoveSchema(namespace, version string) (bool, error) {
	key := schema.SchemaKey(namespace, version)
	_, ok := m.schemas[key]
	delete(m.schemas, key)
	return ok, nil
}

func (m *mapStore) ListSchemas() ([]ports.SchemaInfo, error) {
	infos := make([]ports.SchemaInfo, 0, len(m.schemas))
	for _, s := range m.schemas {
		info, err := Describe(s)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	SortInfos(infos)
	return infos, nil
}

// Describe summarizes a schema for listings.
func Describe(s *schema.ObjectSchema) (ports.SchemaInfo, error) {
	digest, err := schema.Digest(s)
	if err != nil {
		return ports.SchemaInfo{}, err
	}
	return ports.SchemaInfo{
		Namespace:   s.Namespace(),
		Version:     s.Version(),
		Description: s.Description(),
		Types:       s.TypeNames(),
		Digest:      digest,
		UpdatedOn:   s.Identity().UpdatedOn,
	}, nil
}

// SortInfos orders listings by namespace, then by ascending semantic version.
func SortInfos(infos []ports.SchemaInfo) {
	sort.SliceStable(infos, func(i, j int) bool {
		if infos[i].Namespace != infos[j].Namespace {
			return infos[i].Namespace < infos[j].Namespace
		}
		return CompareVersions(infos[i].Version, infos[j].Version) < 0
	})
}

// CompareVersions compares two schema versions semantically. Unparseable
// versions sort lexically after parseable ones.
func CompareVersions(a, b string) int {
	va, errA := semver.StrictNewVersion(a)
	vb, errB := semver.StrictNewVersion(b)
	switch {
	case errA == nil && errB == nil:
		return va.Compare(vb)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

var (
	_ ports.SchemaStore  = (*mapStore)(nil)
	_ ports.SchemaLister = (*mapStore)(nil)
	_ ports.SchemaGetter = (*mapStore)(nil)
)
