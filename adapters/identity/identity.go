// Package identity provides ID generators, clocks and the schema identity
// source built from them.
package identity

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/artpar/objectschema/core/schema"
	"github.com/artpar/objectschema/ports"
	"github.com/google/uuid"
)

// UUID generates random v4 UUIDs.
type UUID struct{}

// New generates a new UUID.
func (UUID) New() string {
	return uuid.NewString()
}

// Sequential generates prefixed sequential IDs (for testing).
type Sequential struct {
	prefix  string
	counter atomic.Uint64
}

// NewSequential creates a sequential ID generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New returns the next ID.
func (s *Sequential) New() string {
	return s.prefix + strconv.FormatUint(s.counter.Add(1), 10)
}

// Reset restarts the sequence.
func (s *Sequential) Reset() {
	s.counter.Store(0)
}

// SystemClock reads UTC wall-clock time.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FakeClock is a manually advanced clock (for testing).
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a clock stopped at t.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Source mints schema identities from an ID generator and a clock.
type Source struct {
	IDs   ports.IDGenerator
	Clock ports.Clock
}

// NewSource creates a source. Nil arguments fall back to UUID and SystemClock.
func NewSource(ids ports.IDGenerator, clock ports.Clock) *Source {
	if ids == nil {
		ids = UUID{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Source{IDs: ids, Clock: clock}
}

// NewIdentity returns a fresh identity stamped with the current time.
func (s *Source) NewIdentity(entityType string) schema.Identity {
	now := s.Clock.Now()
	return schema.Identity{
		ID:         s.IDs.New(),
		CreatedOn:  now,
		UpdatedOn:  now,
		EntityType: entityType,
	}
}

// Now returns the clock's current time.
func (s *Source) Now() time.Time {
	return s.Clock.Now()
}

// Ensure interface compliance.
var (
	_ ports.IDGenerator     = UUID{}
	_ ports.IDGenerator     = (*Sequential)(nil)
	_ ports.Clock           = SystemClock{}
	_ ports.Clock           = (*FakeClock)(nil)
	_ schema.IdentitySource = (*Source)(nil)
)
