// Package memory provides in-memory implementations of the repository
// interfaces. They enforce the same integrity rules as the database
// schema (unique device identifiers, label foreign keys, one sample per
// (time, label) per metric) and back the service and API tests.
package memory

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/ossohq/pe32-hub/internal/database"
	"github.com/ossohq/pe32-hub/internal/errors"
	"github.com/ossohq/pe32-hub/internal/models"
)

// FallbackLabelName mirrors the seed bucket of the persistent registry
const FallbackLabelName = "ergens/fixme"

type sampleKey struct {
	time    int64
	labelID int64
}

// Store is the shared state behind the memory repositories
type Store struct {
	mu sync.Mutex

	labels      map[int64]*models.Label
	devices     map[string]*models.Device
	samples     map[string]map[sampleKey]*models.Sample
	descriptors map[string]map[sampleKey]*models.Descriptor

	nextLabelID  int64
	nextDeviceID int64
}

// NewStore creates an empty store
func NewStore() *Store {
	s := &Store{
		labels:      map[int64]*models.Label{},
		devices:     map[string]*models.Device{},
		samples:     map[string]map[sampleKey]*models.Sample{},
		descriptors: map[string]map[sampleKey]*models.Descriptor{},
	}
	for _, m := range models.Metrics() {
		s.samples[m.Name] = map[sampleKey]*models.Sample{}
		s.descriptors[m.Name] = map[sampleKey]*models.Descriptor{}
	}
	return s
}

// Registry returns the registry repository view of the store
func (s *Store) Registry() *RegistryRepo {
	return &RegistryRepo{s: s}
}

// Samples returns the sample repository view of the store
func (s *Store) Samples() *SampleRepo {
	return &SampleRepo{s: s}
}

type noopTx struct{}

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }
func (noopTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}

// RegistryRepo is the in-memory label/device repository
type RegistryRepo struct {
	s *Store
}

func (r *RegistryRepo) BeginTx(ctx context.Context) (database.Transaction, error) {
	return noopTx{}, nil
}

func (r *RegistryRepo) CreateLabel(ctx context.Context, name string) (*models.Label, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextLabelID++
	label := &models.Label{ID: r.s.nextLabelID, Name: name}
	r.s.labels[label.ID] = label
	return &models.Label{ID: label.ID, Name: label.Name}, nil
}

func (r *RegistryRepo) GetLabel(ctx context.Context, id int64) (*models.Label, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	label, ok := r.s.labels[id]
	if !ok {
		return nil, errors.NewNotFoundError("label not found", nil)
	}
	return &models.Label{ID: label.ID, Name: label.Name}, nil
}

func (r *RegistryRepo) ListLabels(ctx context.Context) ([]*models.Label, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	labels := []*models.Label{}
	for _, l := range r.s.labels {
		labels = append(labels, &models.Label{ID: l.ID, Name: l.Name})
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].Name != labels[j].Name {
			return labels[i].Name < labels[j].Name
		}
		return labels[i].ID < labels[j].ID
	})
	return labels, nil
}

func (r *RegistryRepo) RenameLabel(ctx context.Context, id int64, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	label, ok := r.s.labels[id]
	if !ok {
		return errors.NewNotFoundError("label not found", nil)
	}
	label.Name = name
	return nil
}

func (r *RegistryRepo) CreateDevice(ctx context.Context, device *models.Device) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.devices[device.Identifier]; exists {
		return errors.NewConflictError("failed to create device", nil)
	}
	if device.LabelID != nil {
		if _, ok := r.s.labels[*device.LabelID]; !ok {
			return errors.NewReferenceError("failed to create device", nil)
		}
	}

	r.s.nextDeviceID++
	device.ID = r.s.nextDeviceID
	stored := *device
	r.s.devices[device.Identifier] = &stored
	return nil
}

func (r *RegistryRepo) GetDeviceByIdentifier(ctx context.Context, identifier string) (*models.Device, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	device, ok := r.s.devices[identifier]
	if !ok {
		return nil, errors.NewNotFoundError("device not found", nil)
	}
	copied := *device
	return &copied, nil
}

func (r *RegistryRepo) ReassignLabel(ctx context.Context, identifier string, labelID *int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	device, ok := r.s.devices[identifier]
	if !ok {
		return errors.NewNotFoundError("device not found", nil)
	}
	if labelID != nil {
		if _, ok := r.s.labels[*labelID]; !ok {
			return errors.NewReferenceError("failed to reassign device label", nil)
		}
	}
	device.LabelID = labelID
	return nil
}

func (r *RegistryRepo) UpdateVersionString(ctx context.Context, identifier, version string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	device, ok := r.s.devices[identifier]
	if !ok {
		return errors.NewNotFoundError("device not found", nil)
	}
	device.VersionString = &version
	return nil
}

func (r *RegistryRepo) ListDevices(ctx context.Context) ([]*models.DeviceListing, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	listings := []*models.DeviceListing{}
	for _, l := range r.s.labels {
		attached := false
		for _, d := range r.s.devices {
			if d.LabelID != nil && *d.LabelID == l.ID {
				attached = true
				listings = append(listings, &models.DeviceListing{
					LabelID:       l.ID,
					LabelName:     l.Name,
					DeviceID:      &d.ID,
					Identifier:    &d.Identifier,
					DevType:       &d.DevType,
					VersionString: d.VersionString,
				})
			}
		}
		if !attached {
			listings = append(listings, &models.DeviceListing{LabelID: l.ID, LabelName: l.Name})
		}
	}
	sort.Slice(listings, func(i, j int) bool {
		if listings[i].LabelName != listings[j].LabelName {
			return listings[i].LabelName < listings[j].LabelName
		}
		a, b := "", ""
		if listings[i].Identifier != nil {
			a = *listings[i].Identifier
		}
		if listings[j].Identifier != nil {
			b = *listings[j].Identifier
		}
		return a < b
	})
	return listings, nil
}

func (r *RegistryRepo) FallbackLabel(ctx context.Context) (*models.Label, error) {
	r.s.mu.Lock()
	for _, l := range r.s.labels {
		if l.Name == FallbackLabelName {
			copied := *l
			r.s.mu.Unlock()
			return &copied, nil
		}
	}
	r.s.mu.Unlock()
	return r.CreateLabel(ctx, FallbackLabelName)
}

// SampleRepo is the in-memory metric sample repository
type SampleRepo struct {
	s *Store
}

func (r *SampleRepo) BeginTx(ctx context.Context) (database.Transaction, error) {
	return noopTx{}, nil
}

func (r *SampleRepo) InsertSample(ctx context.Context, metric models.Metric, sample *models.Sample) error {
	if !metric.Numeric() {
		return errors.NewValidationError("metric does not take numeric samples", nil)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.labels[sample.LabelID]; !ok {
		return errors.NewReferenceError("failed to insert sample", nil)
	}

	key := sampleKey{time: sample.Time.UnixNano(), labelID: sample.LabelID}
	if _, exists := r.s.samples[metric.Name][key]; exists {
		return errors.NewConflictError("failed to insert sample", nil)
	}
	stored := *sample
	r.s.samples[metric.Name][key] = &stored
	return nil
}

func (r *SampleRepo) InsertDescriptor(ctx context.Context, metric models.Metric, descriptor *models.Descriptor) error {
	if metric.Numeric() {
		return errors.NewValidationError("metric does not take descriptors", nil)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.labels[descriptor.LabelID]; !ok {
		return errors.NewReferenceError("failed to insert descriptor", nil)
	}

	key := sampleKey{time: descriptor.Time.UnixNano(), labelID: descriptor.LabelID}
	if _, exists := r.s.descriptors[metric.Name][key]; exists {
		return errors.NewConflictError("failed to insert descriptor", nil)
	}
	stored := *descriptor
	r.s.descriptors[metric.Name][key] = &stored
	return nil
}

func (r *SampleRepo) QuerySamples(ctx context.Context, metric models.Metric, from, to time.Time, labelID *int64) ([]models.Sample, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	samples := []models.Sample{}
	for _, sample := range r.s.samples[metric.Name] {
		if !inRange(sample.Time, from, to) {
			continue
		}
		if labelID != nil && sample.LabelID != *labelID {
			continue
		}
		samples = append(samples, *sample)
	}
	sort.Slice(samples, func(i, j int) bool {
		if !samples[i].Time.Equal(samples[j].Time) {
			return samples[i].Time.Before(samples[j].Time)
		}
		return samples[i].LabelID < samples[j].LabelID
	})
	return samples, nil
}

func (r *SampleRepo) QueryDescriptors(ctx context.Context, metric models.Metric, from, to time.Time, labelID *int64) ([]models.Descriptor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	descriptors := []models.Descriptor{}
	for _, descriptor := range r.s.descriptors[metric.Name] {
		if !inRange(descriptor.Time, from, to) {
			continue
		}
		if labelID != nil && descriptor.LabelID != *labelID {
			continue
		}
		descriptors = append(descriptors, *descriptor)
	}
	sort.Slice(descriptors, func(i, j int) bool {
		if !descriptors[i].Time.Equal(descriptors[j].Time) {
			return descriptors[i].Time.Before(descriptors[j].Time)
		}
		return descriptors[i].LabelID < descriptors[j].LabelID
	})
	return descriptors, nil
}

func (r *SampleRepo) DeleteOldData(ctx context.Context, metric models.Metric, before time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for key, sample := range r.s.samples[metric.Name] {
		if sample.Time.Before(before) {
			delete(r.s.samples[metric.Name], key)
		}
	}
	for key, descriptor := range r.s.descriptors[metric.Name] {
		if descriptor.Time.Before(before) {
			delete(r.s.descriptors[metric.Name], key)
		}
	}
	return nil
}

// inRange implements the half-open interval [from, to)
func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}
