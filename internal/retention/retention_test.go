package retention

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ossohq/pe32-hub/internal/models"
	"github.com/ossohq/pe32-hub/internal/repository/memory"
)

func TestPurgeBefore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	label, err := store.Registry().CreateLabel(ctx, "kitchen")
	require.NoError(t, err)

	cutoff := time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC)
	old := cutoff.Add(-30 * 24 * time.Hour)
	fresh := cutoff.Add(time.Hour)

	temperature, _ := models.MetricByName("temperature")
	avg := 21.5
	require.NoError(t, store.Samples().InsertSample(ctx, temperature, &models.Sample{
		Time: old, LabelID: label.ID, Avg: avg,
	}))
	require.NoError(t, store.Samples().InsertSample(ctx, temperature, &models.Sample{
		Time: fresh, LabelID: label.ID, Avg: avg,
	}))

	svc := New(store.Samples())

	var mu sync.Mutex
	purged := 0
	svc.OnRetention("retention.purged", func(metric string) {
		mu.Lock()
		purged++
		mu.Unlock()
	})

	require.NoError(t, svc.PurgeBefore(ctx, cutoff))

	samples, err := store.Samples().QuerySamples(ctx, temperature,
		old.Add(-time.Hour), fresh.Add(time.Hour), nil)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, fresh, samples[0].Time)

	// One event per metric table; delivery may be asynchronous.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return purged == len(models.Metrics())
	}, time.Second, 10*time.Millisecond)
}
