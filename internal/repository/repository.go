package repository

import (
	"context"
	"time"

	"github.com/ossohq/pe32-hub/internal/database"
	"github.com/ossohq/pe32-hub/internal/models"
)

// RegistryRepository defines the interface for label and device operations
type RegistryRepository interface {
	database.Repository
	CreateLabel(ctx context.Context, name string) (*models.Label, error)
	GetLabel(ctx context.Context, id int64) (*models.Label, error)
	ListLabels(ctx context.Context) ([]*models.Label, error)
	RenameLabel(ctx context.Context, id int64, name string) error
	CreateDevice(ctx context.Context, device *models.Device) error
	GetDeviceByIdentifier(ctx context.Context, identifier string) (*models.Device, error)
	ReassignLabel(ctx context.Context, identifier string, labelID *int64) error
	UpdateVersionString(ctx context.Context, identifier, version string) error
	ListDevices(ctx context.Context) ([]*models.DeviceListing, error)
	FallbackLabel(ctx context.Context) (*models.Label, error)
}

// SampleRepository defines the interface for metric sample storage
type SampleRepository interface {
	database.Repository
	InsertSample(ctx context.Context, metric models.Metric, sample *models.Sample) error
	InsertDescriptor(ctx context.Context, metric models.Metric, descriptor *models.Descriptor) error
	QuerySamples(ctx context.Context, metric models.Metric, from, to time.Time, labelID *int64) ([]models.Sample, error)
	QueryDescriptors(ctx context.Context, metric models.Metric, from, to time.Time, labelID *int64) ([]models.Descriptor, error)
	DeleteOldData(ctx context.Context, metric models.Metric, before time.Time) error
}

// ResolutionCache caches device identifier to label resolutions for the
// ingestion hot path. Implementations must tolerate a cold or absent
// cache; misses fall through to the registry.
type ResolutionCache interface {
	GetResolution(ctx context.Context, identifier string) (labelID int64, ok bool)
	PutResolution(ctx context.Context, identifier string, labelID int64)
	DropResolution(ctx context.Context, identifier string)
}
