package hubservice

import (
	"context"
	"time"

	"github.com/ossohq/pe32-hub/internal/errors"
	"github.com/ossohq/pe32-hub/internal/models"
)

// RecordSample persists one rollup observation for a numeric metric.
// Avg is required (low and high describe the window around it and may be
// absent); a duplicate (metric, time, label) write is rejected rather
// than upserted.
func (s *HubService) RecordSample(ctx context.Context, metricName string, t time.Time, labelID int64, low, avg, high *float64) error {
	metric, ok := models.MetricByName(metricName)
	if !ok {
		return errors.NewValidationError("unknown metric: "+metricName, nil)
	}
	if !metric.Numeric() {
		return errors.NewValidationError("metric "+metricName+" takes descriptors, not samples", nil)
	}
	if t.IsZero() {
		return errors.NewValidationError("sample time is required", nil)
	}
	if labelID <= 0 {
		return errors.NewValidationError("label id is required", nil)
	}
	if avg == nil {
		return errors.NewValidationError("avg is required", nil)
	}

	sample := &models.Sample{
		Time:    t,
		LabelID: labelID,
		Low:     low,
		Avg:     *avg,
		High:    high,
	}
	return s.Samples.InsertSample(ctx, metric, sample)
}

// RecordComfortDescriptor persists one categorical observation
func (s *HubService) RecordComfortDescriptor(ctx context.Context, t time.Time, labelID int64, value string) error {
	metric, _ := models.MetricByName("comfort")

	if t.IsZero() {
		return errors.NewValidationError("descriptor time is required", nil)
	}
	if labelID <= 0 {
		return errors.NewValidationError("label id is required", nil)
	}
	if value == "" {
		return errors.NewValidationError("descriptor value is required", nil)
	}
	if len(value) > models.MaxNameLen {
		return errors.NewValidationError("descriptor value too long", nil)
	}

	descriptor := &models.Descriptor{
		Time:    t,
		LabelID: labelID,
		Value:   value,
	}
	return s.Samples.InsertDescriptor(ctx, metric, descriptor)
}

func (s *HubService) checkRange(metricName string, from, to time.Time) (models.Metric, error) {
	metric, ok := models.MetricByName(metricName)
	if !ok {
		return models.Metric{}, errors.NewValidationError("unknown metric: "+metricName, nil)
	}
	if from.IsZero() || to.IsZero() {
		return models.Metric{}, errors.NewValidationError("range bounds are required", nil)
	}
	if to.Before(from) {
		return models.Metric{}, errors.NewValidationError("range end precedes start", nil)
	}
	return metric, nil
}

// QuerySamples returns rollup rows for [from, to), ascending by time.
// Storage is append-only within a window, so re-issuing the same query is
// safe and stable.
func (s *HubService) QuerySamples(ctx context.Context, metricName string, from, to time.Time, labelID *int64) ([]models.Sample, error) {
	metric, err := s.checkRange(metricName, from, to)
	if err != nil {
		return nil, err
	}
	return s.Samples.QuerySamples(ctx, metric, from, to, labelID)
}

// QueryDescriptors returns categorical rows for [from, to)
func (s *HubService) QueryDescriptors(ctx context.Context, metricName string, from, to time.Time, labelID *int64) ([]models.Descriptor, error) {
	metric, err := s.checkRange(metricName, from, to)
	if err != nil {
		return nil, err
	}
	return s.Samples.QueryDescriptors(ctx, metric, from, to, labelID)
}
