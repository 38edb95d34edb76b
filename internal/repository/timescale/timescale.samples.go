package timescale

import (
	"context"
	"fmt"
	"time"

	nuts "github.com/vaudience/go-nuts"

	"github.com/ossohq/pe32-hub/internal/database"
	"github.com/ossohq/pe32-hub/internal/errors"
	"github.com/ossohq/pe32-hub/internal/models"
)

type SampleRepo struct {
	TimeScaleBaseRepo
}

// NewSampleRepository creates the metric sample repository, creating one
// hypertable per metric on first use. The registry tables must exist
// already because every metric table references label(id).
func NewSampleRepository(db database.DB) (*SampleRepo, error) {
	repo := &SampleRepo{TimeScaleBaseRepo: TimeScaleBaseRepo{db: db}}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *SampleRepo) initializeSchema() error {
	for _, metric := range models.Metrics() {
		var createTable string
		if metric.Numeric() {
			createTable = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				time TIMESTAMPTZ NOT NULL,
				label_id INT NOT NULL REFERENCES label(id),
				low REAL NULL,
				avg REAL NOT NULL,
				high REAL NULL,
				UNIQUE (time, label_id)
			)`, metric.Table())
		} else {
			createTable = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				time TIMESTAMPTZ NOT NULL,
				label_id INT NOT NULL REFERENCES label(id),
				value VARCHAR(31) NOT NULL,
				UNIQUE (time, label_id)
			)`, metric.Table())
		}

		queries := []string{
			createTable,
			fmt.Sprintf(`SELECT create_hypertable('%s', 'time',
				chunk_time_interval => INTERVAL '7 days',
				if_not_exists => TRUE
			)`, metric.Table()),
		}

		for _, query := range queries {
			_, err := r.db.GetDB().Exec(query)
			if err != nil {
				return errors.NewDatabaseError(
					fmt.Sprintf("failed to initialize schema for metric %s", metric.Name), err)
			}
		}
	}
	return nil
}

// ApplyRetentionPolicies registers a timescaledb retention policy on every
// metric hypertable. Policy failures are logged but not fatal; the data
// simply stays around longer.
func (r *SampleRepo) ApplyRetentionPolicies(interval string) {
	for _, metric := range models.Metrics() {
		query := fmt.Sprintf(`
			SELECT add_retention_policy('%s',
				INTERVAL '%s',
				if_not_exists => TRUE
			)`, metric.Table(), interval)

		_, err := r.db.GetDB().Exec(query)
		if err != nil {
			nuts.L.Errorf("[SampleRepo] Failed to set retention policy on %s: %v", metric.Table(), err)
		}
	}
}

// InsertSample writes one rollup row. A second write for the same
// (time, label) pair is rejected with a conflict error; aggregation
// windows are written exactly once by the owning aggregator.
func (r *SampleRepo) InsertSample(ctx context.Context, metric models.Metric, sample *models.Sample) error {
	if !metric.Numeric() {
		return errors.NewValidationError(
			fmt.Sprintf("metric %s does not take numeric samples", metric.Name), nil)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (time, label_id, low, avg, high)
		VALUES ($1, $2, $3, $4, $5)`, metric.Table())

	_, err := r.db.GetDB().ExecContext(ctx, query,
		sample.Time, sample.LabelID, sample.Low, sample.Avg, sample.High)
	if err != nil {
		return errors.FromPostgres(
			fmt.Sprintf("failed to insert %s sample", metric.Name), err)
	}
	return nil
}

// InsertDescriptor writes one categorical row, with the same
// write-exactly-once policy as InsertSample
func (r *SampleRepo) InsertDescriptor(ctx context.Context, metric models.Metric, descriptor *models.Descriptor) error {
	if metric.Numeric() {
		return errors.NewValidationError(
			fmt.Sprintf("metric %s does not take descriptors", metric.Name), nil)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (time, label_id, value)
		VALUES ($1, $2, $3)`, metric.Table())

	_, err := r.db.GetDB().ExecContext(ctx, query,
		descriptor.Time, descriptor.LabelID, descriptor.Value)
	if err != nil {
		return errors.FromPostgres(
			fmt.Sprintf("failed to insert %s descriptor", metric.Name), err)
	}
	return nil
}

// QuerySamples returns rollup rows in the half-open interval [from, to),
// ordered by time ascending. The time predicate lets timescaledb prune
// chunks outside the range.
func (r *SampleRepo) QuerySamples(ctx context.Context, metric models.Metric, from, to time.Time, labelID *int64) ([]models.Sample, error) {
	if !metric.Numeric() {
		return nil, errors.NewValidationError(
			fmt.Sprintf("metric %s does not hold numeric samples", metric.Name), nil)
	}

	samples := []models.Sample{}
	query := fmt.Sprintf(`
		SELECT time, label_id, low, avg, high
		FROM %s
		WHERE time >= $1 AND time < $2`, metric.Table())
	args := []interface{}{from, to}

	if labelID != nil {
		query += ` AND label_id = $3`
		args = append(args, *labelID)
	}
	query += ` ORDER BY time ASC, label_id ASC`

	err := r.db.GetDB().SelectContext(ctx, &samples, query, args...)
	if err != nil {
		return nil, errors.NewDatabaseError(
			fmt.Sprintf("failed to query %s samples", metric.Name), err)
	}
	return samples, nil
}

// QueryDescriptors is QuerySamples for the categorical metric
func (r *SampleRepo) QueryDescriptors(ctx context.Context, metric models.Metric, from, to time.Time, labelID *int64) ([]models.Descriptor, error) {
	if metric.Numeric() {
		return nil, errors.NewValidationError(
			fmt.Sprintf("metric %s does not hold descriptors", metric.Name), nil)
	}

	descriptors := []models.Descriptor{}
	query := fmt.Sprintf(`
		SELECT time, label_id, value
		FROM %s
		WHERE time >= $1 AND time < $2`, metric.Table())
	args := []interface{}{from, to}

	if labelID != nil {
		query += ` AND label_id = $3`
		args = append(args, *labelID)
	}
	query += ` ORDER BY time ASC, label_id ASC`

	err := r.db.GetDB().SelectContext(ctx, &descriptors, query, args...)
	if err != nil {
		return nil, errors.NewDatabaseError(
			fmt.Sprintf("failed to query %s descriptors", metric.Name), err)
	}
	return descriptors, nil
}

// DeleteOldData drops rows older than the cutoff for one metric. Normal
// retention goes through the timescaledb policies; this is the manual
// escape hatch.
func (r *SampleRepo) DeleteOldData(ctx context.Context, metric models.Metric, before time.Time) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE time < $1`, metric.Table())

	result, err := r.db.GetDB().ExecContext(ctx, query, before)
	if err != nil {
		return errors.NewDatabaseError(
			fmt.Sprintf("failed to delete old %s data", metric.Name), err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}

	nuts.L.Infof("[SampleRepo] Deleted %d %s rows before %v", rows, metric.Name, before)
	return nil
}
