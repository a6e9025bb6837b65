// Package metrics provides Prometheus metrics collection for objectschema.
package metrics

import (
	"errors"
	"time"

	"github.com/artpar/objectschema/core/registry"
	"github.com/artpar/objectschema/core/schema"
	"github.com/artpar/objectschema/core/validation"
	"github.com/artpar/objectschema/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "objectschema"

// Collector holds all Prometheus metrics for objectschema.
type Collector struct {
	// Validation metrics
	ValidationsTotal   *prometheus.CounterVec
	ViolationsTotal    *prometheus.CounterVec
	ValidationDuration *prometheus.HistogramVec

	// Store metrics
	LookupsTotal       *prometheus.CounterVec
	RegistrationsTotal prometheus.Counter
	SchemasRegistered  prometheus.Gauge

	// Schema directory metrics
	SchemaReloads      prometheus.Counter
	SchemaReloadErrors prometheus.Counter

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

// New creates a collector registered with the default Prometheus registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		ValidationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validations_total",
				Help:      "Total number of validations by outcome",
			},
			[]string{"schema_namespace", "type", "result"},
		),
		ViolationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "violations_total",
				Help:      "Total number of constraint violations",
			},
			[]string{"schema_namespace", "constraint"},
		),
		ValidationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "validation_duration_seconds",
				Help:      "Validation duration in seconds",
				Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
			},
			[]string{"schema_namespace"},
		),

		LookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "type_lookups_total",
				Help:      "Total number of type lookups by result",
			},
			[]string{"result"},
		),
		RegistrationsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_registrations_total",
				Help:      "Total number of schema registrations",
			},
		),
		SchemasRegistered: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "schemas_registered",
				Help:      "Number of schemas loaded from configured directories",
			},
		),

		SchemaReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_reloads_total",
				Help:      "Total number of successful schema directory reloads",
			},
		),
		SchemaReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_reload_errors_total",
				Help:      "Total number of failed schema directory reloads",
			},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "route"},
		),

		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),
	}
}

// ObserveValidation records one registry validation. It implements
// registry.Observer.
func (c *Collector) ObserveValidation(ref schema.TypeRef, elapsed time.Duration, err error) {
	c.ValidationDuration.WithLabelValues(ref.Namespace).Observe(elapsed.Seconds())

	var ve *validation.ValidationError
	switch {
	case err == nil:
		c.ValidationsTotal.WithLabelValues(ref.Namespace, ref.Type, "valid").Inc()
	case errors.As(err, &ve):
		c.ValidationsTotal.WithLabelValues(ref.Namespace, ref.Type, "invalid").Inc()
		for _, v := range ve.Violations {
			c.ViolationsTotal.WithLabelValues(ref.Namespace, v.Constraint).Inc()
		}
	default:
		c.ValidationsTotal.WithLabelValues(ref.Namespace, ref.Type, "error").Inc()
	}
}

// ObserveRequest records one HTTP request.
func (c *Collector) ObserveRequest(method, route, status string, elapsed time.Duration) {
	c.RequestsTotal.WithLabelValues(method, route, status).Inc()
	c.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordConfigReload records a config reload attempt.
func (c *Collector) RecordConfigReload(err error) {
	if err != nil {
		c.ConfigReloadErrors.Inc()
		return
	}
	c.ConfigReloads.Inc()
	c.ConfigLastReload.SetToCurrentTime()
}

// RecordSchemaReload records a schema directory reload attempt.
func (c *Collector) RecordSchemaReload(loaded int, err error) {
	if err != nil {
		c.SchemaReloadErrors.Inc()
		return
	}
	c.SchemaReloads.Inc()
	c.SchemasRegistered.Set(float64(loaded))
}

// InstrumentedStore wraps a schema store and counts lookups and registrations.
type InstrumentedStore struct {
	inner ports.SchemaStore
	c     *Collector
}

// Instrument wraps store with lookup and registration counters.
func (c *Collector) Instrument(store ports.SchemaStore) *InstrumentedStore {
	return &InstrumentedStore{inner: store, c: c}
}

// GetSchemaType delegates to the wrapped store.
func (s *InstrumentedStore) GetSchemaType(ref schema.TypeRef) (*schema.Type, error) {
	t, err := s.inner.GetSchemaType(ref)
	switch {
	case err != nil:
		s.c.LookupsTotal.WithLabelValues("error").Inc()
	case t == nil:
		s.c.LookupsTotal.WithLabelValues("miss").Inc()
	default:
		s.c.LookupsTotal.WithLabelValues("hit").Inc()
	}
	return t, err
}

// RegisterSchema delegates to the wrapped store.
func (s *InstrumentedStore) RegisterSchema(sch *schema.ObjectSchema) error {
	if err := s.inner.RegisterSchema(sch); err != nil {
		return err
	}
	s.c.RegistrationsTotal.Inc()
	return nil
}

// GetSchema delegates to the wrapped store when it supports whole-schema lookups.
func (s *InstrumentedStore) GetSchema(namespace, version string) (*schema.ObjectSchema, error) {
	g, ok := s.inner.(ports.SchemaGetter)
	if !ok {
		return nil, registry.ErrNotSupported
	}
	return g.GetSchema(namespace, version)
}

// ListSchemas delegates to the wrapped store when it supports listing.
func (s *InstrumentedStore) ListSchemas() ([]ports.SchemaInfo, error) {
	l, ok := s.inner.(ports.SchemaLister)
	if !ok {
		return nil, registry.ErrNotSupported
	}
	return l.ListSchemas()
}

// RemoveSchema delegates to the wrapped store when it supports removal.
func (s *InstrumentedStore) RemoveSchema(namespace, version string) (bool, error) {
	rm, ok := s.inner.(ports.SchemaRemover)
	if !ok {
		return false, registry.ErrNotSupported
	}
	return rm.RemoveSchema(namespace, version)
}

// Unwrap returns the wrapped store.
func (s *InstrumentedStore) Unwrap() ports.SchemaStore {
	return s.inner
}

// Ensure interface compliance.
var (
	_ ports.SchemaStore   = (*InstrumentedStore)(nil)
	_ ports.SchemaLister  = (*InstrumentedStore)(nil)
	_ ports.SchemaGetter  = (*InstrumentedStore)(nil)
	_ ports.SchemaRemover = (*InstrumentedStore)(nil)
	_ registry.Observer   = (*Collector)(nil)
)
