package hubservice

import (
	"context"

	nuts "github.com/vaudience/go-nuts"

	"github.com/ossohq/pe32-hub/internal/errors"
	"github.com/ossohq/pe32-hub/internal/models"
)

// ResolveLabel maps a device hardware identifier to the label its
// readings aggregate under. Unknown devices are registered on the spot
// under the fallback label, so calling this repeatedly with the same
// identifier is idempotent. A device that exists but has had its label
// cleared resolves to a not-found error; its readings have nowhere to go.
func (s *HubService) ResolveLabel(ctx context.Context, identifier, devType string) (int64, error) {
	if identifier == "" {
		return 0, errors.NewValidationError("device identifier is required", nil)
	}

	if s.cache != nil {
		if labelID, ok := s.cache.GetResolution(ctx, identifier); ok {
			return labelID, nil
		}
	}

	device, err := s.Registry.GetDeviceByIdentifier(ctx, identifier)
	if errors.IsNotFound(err) {
		labelID, regErr := s.registerDevice(ctx, identifier, devType)
		if regErr != nil {
			return 0, regErr
		}
		device = &models.Device{Identifier: identifier, LabelID: &labelID}
	} else if err != nil {
		return 0, err
	}

	if device.LabelID == nil {
		return 0, errors.NewNotFoundError("device has no label assigned", nil)
	}

	if s.cache != nil {
		s.cache.PutResolution(ctx, identifier, *device.LabelID)
	}
	return *device.LabelID, nil
}

// registerDevice creates an unseen device under the fallback label. Two
// writers racing on the same identifier collide on the unique constraint;
// the loser re-reads the winner's row.
func (s *HubService) registerDevice(ctx context.Context, identifier, devType string) (int64, error) {
	if devType == "" {
		devType = "unknown"
	}
	if len(identifier) > models.MaxNameLen || len(devType) > models.MaxNameLen {
		return 0, errors.NewValidationError("identifier or device type too long", nil)
	}

	fallback, err := s.Registry.FallbackLabel(ctx)
	if err != nil {
		return 0, err
	}

	device := &models.Device{
		Identifier: identifier,
		DevType:    devType,
		LabelID:    &fallback.ID,
	}
	err = s.Registry.CreateDevice(ctx, device)
	if errors.IsConflict(err) {
		existing, getErr := s.Registry.GetDeviceByIdentifier(ctx, identifier)
		if getErr != nil {
			return 0, getErr
		}
		if existing.LabelID == nil {
			return 0, errors.NewNotFoundError("device has no label assigned", nil)
		}
		return *existing.LabelID, nil
	}
	if err != nil {
		return 0, err
	}

	nuts.L.Infof("[HubService] Registered device %s (%s) under label %d",
		identifier, devType, fallback.ID)
	return fallback.ID, nil
}

// ReassignLabel moves a device to another label, or detaches it when
// labelID is nil
func (s *HubService) ReassignLabel(ctx context.Context, identifier string, labelID *int64) error {
	if identifier == "" {
		return errors.NewValidationError("device identifier is required", nil)
	}

	if err := s.Registry.ReassignLabel(ctx, identifier, labelID); err != nil {
		return err
	}

	if s.cache != nil {
		s.cache.DropResolution(ctx, identifier)
	}
	return nil
}

// CheckIn records the firmware version a device reported on connect
func (s *HubService) CheckIn(ctx context.Context, identifier, version string) error {
	if len(version) > models.MaxVersionLen {
		version = version[:models.MaxVersionLen]
	}
	return s.Registry.UpdateVersionString(ctx, identifier, version)
}

// CreateLabel creates a new label after validating the name
func (s *HubService) CreateLabel(ctx context.Context, name string) (*models.Label, error) {
	if name == "" {
		return nil, errors.NewValidationError("label name is required", nil)
	}
	if len(name) > models.MaxNameLen {
		return nil, errors.NewValidationError("label name too long", nil)
	}
	return s.Registry.CreateLabel(ctx, name)
}

// RenameLabel changes a label's name
func (s *HubService) RenameLabel(ctx context.Context, id int64, name string) error {
	if name == "" || len(name) > models.MaxNameLen {
		return errors.NewValidationError("invalid label name", nil)
	}
	return s.Registry.RenameLabel(ctx, id, name)
}

// GetLabel returns one label by id
func (s *HubService) GetLabel(ctx context.Context, id int64) (*models.Label, error) {
	return s.Registry.GetLabel(ctx, id)
}

// ListLabels returns all labels
func (s *HubService) ListLabels(ctx context.Context) ([]*models.Label, error) {
	return s.Registry.ListLabels(ctx)
}

// ListDevices returns the label/device overview
func (s *HubService) ListDevices(ctx context.Context) ([]*models.DeviceListing, error) {
	return s.Registry.ListDevices(ctx)
}
