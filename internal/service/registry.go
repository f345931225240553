package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/joeblew999/geoview/internal/geodata"
	"github.com/joeblew999/geoview/internal/mapview"
	"github.com/joeblew999/geoview/internal/metrics"
)

// RecordIDPrefix starts every generated layer ID.
const RecordIDPrefix = "geojson-"

// NewRecordID returns a layer ID built on a UUIDv7: time-ordered, with
// random bits so uploads within the same millisecond stay distinct.
func NewRecordID() string {
	return RecordIDPrefix + uuid.Must(uuid.NewV7()).String()
}

// Registry turns uploaded files into persisted records and map layers.
// Ingestions are serialised so the persisted list and the map agree.
type Registry struct {
	records *RecordService
	surface mapview.Surface
	newID   func() string
	publish func(Event)
	mu      sync.Mutex
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithIDGenerator replaces the layer ID generator.
func WithIDGenerator(fn func() string) RegistryOption {
	return func(r *Registry) { r.newID = fn }
}

// WithPublisher receives a "records" event after each change to the list.
func WithPublisher(fn func(Event)) RegistryOption {
	return func(r *Registry) { r.publish = fn }
}

// NewRegistry creates a registry that persists to records and draws on surface.
func NewRegistry(records *RecordService, surface mapview.Surface, opts ...RegistryOption) *Registry {
	r := &Registry{
		records: records,
		surface: surface,
		newID:   NewRecordID,
		publish: func(Event) {},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Records returns the underlying record service.
func (r *Registry) Records() *RecordService {
	return r.records
}

// Ingest validates text, persists it under a fresh ID, draws it as a circle
// layer and frames it on the map. Validation failures leave both the list
// and the map untouched.
func (r *Registry) Ingest(ctx context.Context, name string, text []byte) (IngestResult, error) {
	c, err := geodata.Validate(text)
	if err != nil {
		metrics.IngestTotal.WithLabelValues(resultLabel(err)).Inc()
		slog.Info("rejected geojson upload", "name", name, "error", err)
		return IngestResult{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	res := IngestResult{ID: r.newID(), Name: name, Collection: c}
	rec := Record{ID: res.ID, Name: name, Data: c.Raw}

	prev, overwrote, err := r.records.Append(ctx, rec)
	if err != nil {
		metrics.IngestTotal.WithLabelValues(metrics.ResultFailed).Inc()
		return IngestResult{}, fmt.Errorf("saving %s: %w", name, err)
	}

	replaced, err := r.register(rec)
	if err != nil {
		if rbErr := r.rollback(ctx, rec.ID, prev, overwrote); rbErr != nil {
			slog.Error("failed to roll back record", "id", rec.ID, "error", rbErr)
		}
		metrics.IngestTotal.WithLabelValues(metrics.ResultFailed).Inc()
		return IngestResult{}, fmt.Errorf("adding layer %s: %w", rec.ID, err)
	}
	res.Replaced = replaced

	res.Bounds = geodata.BoundsOf(c)
	res.Fitted, err = mapview.FitToBounds(r.surface, res.Bounds)
	if err != nil {
		slog.Warn("viewport fit failed", "id", rec.ID, "error", err)
	}

	metrics.IngestTotal.WithLabelValues(metrics.ResultOK).Inc()
	metrics.IngestFeatures.Observe(float64(c.FeatureCount()))
	if replaced {
		metrics.LayersReplaced.Inc()
	}
	slog.Info("geojson layer added",
		"id", rec.ID,
		"name", name,
		"features", c.FeatureCount(),
		"coordinates", res.Bounds.Count(),
		"replaced", replaced,
	)
	r.publish(Event{Resource: ResourceRecords, Action: "created", ID: rec.ID})
	return res, nil
}

// rollback undoes an Append: the overwritten record is put back, otherwise
// the new one is dropped.
func (r *Registry) rollback(ctx context.Context, id string, prev Record, overwrote bool) error {
	if overwrote {
		_, _, err := r.records.Append(ctx, prev)
		return err
	}
	return r.records.remove(ctx, id)
}

// register draws rec on the surface. An existing layer and source with the
// same ID are removed first.
func (r *Registry) register(rec Record) (replaced bool, err error) {
	if r.surface.HasLayer(rec.ID) {
		if err := r.surface.RemoveLayer(rec.ID); err != nil {
			return false, err
		}
		replaced = true
	}
	if r.surface.HasSource(rec.ID) {
		if err := r.surface.RemoveSource(rec.ID); err != nil {
			return false, err
		}
		replaced = true
	}
	if err := r.surface.AddSource(rec.ID, rec.Data); err != nil {
		return replaced, err
	}
	if err := r.surface.AddLayer(mapview.CircleLayer(rec.ID)); err != nil {
		return replaced, err
	}
	return replaced, nil
}

// Restore draws every persisted record on the surface, typically on a map
// that was just recreated. The viewport is not changed.
func (r *Registry) Restore(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.records.List(ctx)
	if err != nil {
		return 0, err
	}
	var errs []error
	n := 0
	for _, rec := range records {
		if _, err := r.register(rec); err != nil {
			errs = append(errs, fmt.Errorf("restoring %s: %w", rec.ID, err))
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

// Clear empties the persisted list and removes the uploaded layers from the map.
func (r *Registry) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.records.List(ctx)
	if err != nil {
		return err
	}
	if err := r.records.Clear(ctx); err != nil {
		return err
	}
	for _, rec := range records {
		if r.surface.HasLayer(rec.ID) {
			r.surface.RemoveLayer(rec.ID)
		}
		if r.surface.HasSource(rec.ID) {
			r.surface.RemoveSource(rec.ID)
		}
	}
	slog.Info("upload list cleared", "records", len(records))
	r.publish(Event{Resource: ResourceRecords, Action: "cleared"})
	return nil
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, geodata.ErrParse):
		return metrics.ResultParseError
	case errors.Is(err, geodata.ErrSchema):
		return metrics.ResultSchemaError
	default:
		return metrics.ResultFailed
	}
}
