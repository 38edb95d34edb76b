package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ossohq/pe32-hub/internal/errors"
	"github.com/ossohq/pe32-hub/internal/models"
)

func TestCreateDeviceDuplicateIdentifier(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	label, err := store.Registry().CreateLabel(ctx, "kitchen")
	require.NoError(t, err)

	first := &models.Device{
		Identifier: "EUI48:AA:BB:CC:DD:EE:FF",
		DevType:    "dht22-v0.1",
		LabelID:    &label.ID,
	}
	require.NoError(t, store.Registry().CreateDevice(ctx, first))

	second := &models.Device{
		Identifier: "EUI48:AA:BB:CC:DD:EE:FF",
		DevType:    "dht22-v0.2",
	}
	err = store.Registry().CreateDevice(ctx, second)
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))

	// The first registration is untouched.
	device, err := store.Registry().GetDeviceByIdentifier(ctx, "EUI48:AA:BB:CC:DD:EE:FF")
	require.NoError(t, err)
	assert.Equal(t, "dht22-v0.1", device.DevType)
	assert.Equal(t, first.ID, device.ID)
}

func TestCreateDeviceUnknownLabel(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	missing := int64(9999)
	device := &models.Device{
		Identifier: "EUI48:AA:BB:CC:DD:EE:FF",
		DevType:    "dht22-v0.1",
		LabelID:    &missing,
	}
	err := store.Registry().CreateDevice(ctx, device)
	require.Error(t, err)
	assert.True(t, errors.IsReference(err))
}
