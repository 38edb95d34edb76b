package postgres

import (
	"context"
	"database/sql"

	nuts "github.com/vaudience/go-nuts"

	"github.com/ossohq/pe32-hub/internal/database"
	"github.com/ossohq/pe32-hub/internal/errors"
	"github.com/ossohq/pe32-hub/internal/models"
)

// FallbackLabelName is the bucket for devices that have not been assigned
// a real location yet. The seed device lands here too.
const FallbackLabelName = "ergens/fixme"

const (
	seedDeviceIdentifier = "EUI48:11:22:33:44:55:66"
	seedDeviceType       = "dht22-v0.1"
)

type RegistryRepo struct {
	PostgresBaseRepo
}

// NewRegistryRepository creates the label/device repository, initializing
// the registry tables and seed rows on first use
func NewRegistryRepository(db database.DB) (*RegistryRepo, error) {
	repo := &RegistryRepo{PostgresBaseRepo: PostgresBaseRepo{db: db}}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *RegistryRepo) initializeSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS label (
			id SERIAL PRIMARY KEY,
			name VARCHAR(31) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS device (
			id SERIAL PRIMARY KEY,
			identifier VARCHAR(31) UNIQUE NOT NULL,
			dev_type VARCHAR(31) NOT NULL,
			label_id INT NULL REFERENCES label(id),
			version_string VARCHAR(127) NULL
		)`,
	}

	for _, query := range queries {
		_, err := r.db.GetDB().Exec(query)
		if err != nil {
			return errors.NewDatabaseError("failed to initialize registry schema", err)
		}
	}

	return r.seed()
}

// seed makes sure the fallback label and the bootstrap device exist
func (r *RegistryRepo) seed() error {
	ctx := context.Background()

	fallback, err := r.FallbackLabel(ctx)
	if err != nil {
		return err
	}

	var deviceID int64
	err = r.db.GetDB().GetContext(ctx, &deviceID,
		`SELECT id FROM device WHERE identifier = $1`, seedDeviceIdentifier)
	if err == sql.ErrNoRows {
		nuts.L.Infof("[RegistryRepo] Seeding device %s", seedDeviceIdentifier)
		device := &models.Device{
			Identifier: seedDeviceIdentifier,
			DevType:    seedDeviceType,
			LabelID:    &fallback.ID,
		}
		return r.CreateDevice(ctx, device)
	}
	if err != nil {
		return errors.NewDatabaseError("failed to check seed device", err)
	}
	return nil
}

func (r *RegistryRepo) CreateLabel(ctx context.Context, name string) (*models.Label, error) {
	label := &models.Label{Name: name}
	query := `INSERT INTO label (name) VALUES ($1) RETURNING id`

	err := r.db.GetDB().GetContext(ctx, &label.ID, query, name)
	if err != nil {
		return nil, errors.FromPostgres("failed to create label", err)
	}
	return label, nil
}

func (r *RegistryRepo) GetLabel(ctx context.Context, id int64) (*models.Label, error) {
	label := &models.Label{}
	query := `SELECT id, name FROM label WHERE id = $1`

	err := r.db.GetDB().GetContext(ctx, label, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("label not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get label", err)
	}
	return label, nil
}

func (r *RegistryRepo) ListLabels(ctx context.Context) ([]*models.Label, error) {
	labels := []*models.Label{}
	query := `SELECT id, name FROM label ORDER BY name, id`

	err := r.db.GetDB().SelectContext(ctx, &labels, query)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list labels", err)
	}
	return labels, nil
}

func (r *RegistryRepo) RenameLabel(ctx context.Context, id int64, name string) error {
	query := `UPDATE label SET name = $1 WHERE id = $2`

	result, err := r.db.GetDB().ExecContext(ctx, query, name, id)
	if err != nil {
		return errors.FromPostgres("failed to rename label", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("label not found", nil)
	}
	return nil
}

func (r *RegistryRepo) CreateDevice(ctx context.Context, device *models.Device) error {
	query := `
		INSERT INTO device (identifier, dev_type, label_id, version_string)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := r.db.GetDB().GetContext(ctx, &device.ID, query,
		device.Identifier, device.DevType, device.LabelID, device.VersionString)
	if err != nil {
		return errors.FromPostgres("failed to create device", err)
	}
	return nil
}

func (r *RegistryRepo) GetDeviceByIdentifier(ctx context.Context, identifier string) (*models.Device, error) {
	device := &models.Device{}
	query := `
		SELECT id, identifier, dev_type, label_id, version_string
		FROM device WHERE identifier = $1`

	err := r.db.GetDB().GetContext(ctx, device, query, identifier)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("device not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get device", err)
	}
	return device, nil
}

// ReassignLabel points a device at a new label, or detaches it when
// labelID is nil. A nonexistent label surfaces as a reference error from
// the foreign key.
func (r *RegistryRepo) ReassignLabel(ctx context.Context, identifier string, labelID *int64) error {
	query := `UPDATE device SET label_id = $1 WHERE identifier = $2`

	result, err := r.db.GetDB().ExecContext(ctx, query, labelID, identifier)
	if err != nil {
		return errors.FromPostgres("failed to reassign device label", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("device not found", nil)
	}
	return nil
}

func (r *RegistryRepo) UpdateVersionString(ctx context.Context, identifier, version string) error {
	query := `UPDATE device SET version_string = $1 WHERE identifier = $2`

	result, err := r.db.GetDB().ExecContext(ctx, query, version, identifier)
	if err != nil {
		return errors.FromPostgres("failed to update version string", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("device not found", nil)
	}
	return nil
}

// ListDevices returns the label/device overview ordered by label name.
// Labels without any device still produce a row.
func (r *RegistryRepo) ListDevices(ctx context.Context) ([]*models.DeviceListing, error) {
	listings := []*models.DeviceListing{}
	query := `
		SELECT l.id AS label_id, l.name AS label_name,
			d.id AS device_id, d.identifier, d.dev_type, d.version_string
		FROM label l
		LEFT JOIN device d ON d.label_id = l.id
		ORDER BY l.name, d.identifier`

	err := r.db.GetDB().SelectContext(ctx, &listings, query)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list devices", err)
	}
	return listings, nil
}

// FallbackLabel returns the unassigned-devices bucket, creating it if the
// database has never been seeded
func (r *RegistryRepo) FallbackLabel(ctx context.Context) (*models.Label, error) {
	label := &models.Label{}
	query := `SELECT id, name FROM label WHERE name = $1 ORDER BY id LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, label, query, FallbackLabelName)
	if err == sql.ErrNoRows {
		nuts.L.Infof("[RegistryRepo] Fallback label %q not found, creating", FallbackLabelName)
		return r.CreateLabel(ctx, FallbackLabelName)
	}
	if err != nil {
		return nil, errors.NewDatabaseError("failed to get fallback label", err)
	}
	return label, nil
}
