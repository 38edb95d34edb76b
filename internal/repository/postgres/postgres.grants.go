package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	nuts "github.com/vaudience/go-nuts"

	"github.com/ossohq/pe32-hub/internal/config"
	"github.com/ossohq/pe32-hub/internal/database"
	"github.com/ossohq/pe32-hub/internal/errors"
	"github.com/ossohq/pe32-hub/internal/models"
)

func metricTableNames() []string {
	names := make([]string, 0, len(models.Metrics()))
	for _, m := range models.Metrics() {
		names = append(names, m.Table())
	}
	return names
}

// ApplyGrants hands out table privileges to the configured roles: the
// writer role gets insert/select on everything, the read-only role gets
// select plus default privileges so future metric tables are covered
// without re-running grants. Roles left empty in the config are skipped.
func ApplyGrants(ctx context.Context, db database.DB, cfg config.GrantsConfig) error {
	tables := []string{"label", "device"}
	tables = append(tables, metricTableNames()...)

	if cfg.WriterRole != "" {
		role := pq.QuoteIdentifier(cfg.WriterRole)
		for _, table := range tables {
			query := fmt.Sprintf("GRANT INSERT, SELECT ON %s TO %s",
				pq.QuoteIdentifier(table), role)
			if _, err := db.GetDB().ExecContext(ctx, query); err != nil {
				return errors.NewDatabaseError("failed to grant writer privileges", err)
			}
		}
		query := fmt.Sprintf("GRANT USAGE, SELECT ON ALL SEQUENCES IN SCHEMA public TO %s", role)
		if _, err := db.GetDB().ExecContext(ctx, query); err != nil {
			return errors.NewDatabaseError("failed to grant writer sequence privileges", err)
		}
		nuts.L.Infof("[Grants] Writer privileges granted to %s", cfg.WriterRole)
	}

	if cfg.ReadOnlyRole != "" {
		role := pq.QuoteIdentifier(cfg.ReadOnlyRole)
		for _, table := range tables {
			query := fmt.Sprintf("GRANT SELECT ON %s TO %s",
				pq.QuoteIdentifier(table), role)
			if _, err := db.GetDB().ExecContext(ctx, query); err != nil {
				return errors.NewDatabaseError("failed to grant read-only privileges", err)
			}
		}
		query := fmt.Sprintf("ALTER DEFAULT PRIVILEGES IN SCHEMA public GRANT SELECT ON TABLES TO %s", role)
		if _, err := db.GetDB().ExecContext(ctx, query); err != nil {
			return errors.NewDatabaseError("failed to alter default privileges", err)
		}
		nuts.L.Infof("[Grants] Read-only privileges granted to %s", cfg.ReadOnlyRole)
	}

	return nil
}
