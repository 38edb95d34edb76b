package retention

import (
	"context"
	"fmt"
	"time"

	nuts "github.com/vaudience/go-nuts"

	"github.com/ossohq/pe32-hub/internal/models"
	"github.com/ossohq/pe32-hub/internal/repository"
)

// Service coordinates data retention across the metric hypertables.
// Day-to-day expiry is delegated to timescaledb's retention policies;
// PurgeBefore is the manual path for one-off cleanups.
type Service struct {
	samples repository.SampleRepository
	events  *nuts.EventEmitter
}

// New creates a new retention service
func New(samples repository.SampleRepository) *Service {
	return &Service{
		samples: samples,
		events:  nuts.NewEventEmitter(),
	}
}

// PurgeBefore deletes rows older than the cutoff from every metric table
func (s *Service) PurgeBefore(ctx context.Context, before time.Time) error {
	for _, metric := range models.Metrics() {
		if err := s.samples.DeleteOldData(ctx, metric, before); err != nil {
			return fmt.Errorf("failed to purge %s: %w", metric.Name, err)
		}
		if err := s.events.Emit("retention.purged", metric.Name); err != nil {
			nuts.L.Warnf("[Retention] Failed to emit purge event for %s: %v", metric.Name, err)
		}
	}

	nuts.L.Infof("[Retention] Purged all metrics before %v", before)
	return nil
}

// OnRetention registers a callback for retention events. The emitter
// matches listener signatures by reflection, so the handler takes the
// metric name directly.
func (s *Service) OnRetention(event string, handler func(metric string)) {
	s.events.On(event, "retention_handler", handler)
}
