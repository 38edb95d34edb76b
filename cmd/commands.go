package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	nuts "github.com/vaudience/go-nuts"

	"github.com/ossohq/pe32-hub/internal/cache"
	"github.com/ossohq/pe32-hub/internal/config"
	"github.com/ossohq/pe32-hub/internal/database"
	"github.com/ossohq/pe32-hub/internal/hubservice"
	"github.com/ossohq/pe32-hub/internal/relay"
	"github.com/ossohq/pe32-hub/internal/repository"
	"github.com/ossohq/pe32-hub/internal/repository/postgres"
	"github.com/ossohq/pe32-hub/internal/repository/timescale"
	"github.com/ossohq/pe32-hub/internal/retention"
)

// initHub connects to the store and builds the hub service for the
// non-server subcommands
func initHub(cfg *config.Config) (*hubservice.HubService, func(), error) {
	db, err := database.NewTimescaleDB(cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	registry, err := postgres.NewRegistryRepository(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	samples, err := timescale.NewSampleRepository(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	var resolutions repository.ResolutionCache
	closeCache := func() {}
	if cfg.Redis.Enabled {
		c, err := cache.NewResolutionCache(context.Background(), cfg.Redis)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		resolutions = c
		closeCache = func() { c.Close() }
	}

	cleanup := func() {
		closeCache()
		db.Close()
	}
	return hubservice.New(registry, samples, resolutions), cleanup, nil
}

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run only the MQTT relay, without the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		nuts.InitVersion()
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		hub, cleanup, err := initHub(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		r := relay.New(cfg.MQTT, hub)
		if err := r.Start(context.Background()); err != nil {
			return err
		}
		defer r.Stop()

		nuts.L.Infof("[Relay] Relaying %s, interrupt to stop", cfg.MQTT.Topic)
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		return nil
	},
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List labels and the devices reporting under them",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		hub, cleanup, err := initHub(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		listings, err := hub.ListDevices(context.Background())
		if err != nil {
			return err
		}

		for _, l := range listings {
			if l.DeviceID == nil {
				fmt.Printf("- %s (#%d, no devices)\n", l.LabelName, l.LabelID)
				continue
			}
			version := ""
			if l.VersionString != nil {
				version = " " + *l.VersionString
			}
			fmt.Printf("- %s: %s [%s]%s (#%d->%d)\n",
				l.LabelName, *l.Identifier, *l.DevType, version, *l.DeviceID, l.LabelID)
		}
		return nil
	},
}

var setLabelCmd = &cobra.Command{
	Use:   "set-label <device-identifier> <label-id>",
	Short: "Reassign a device to a label; an empty label id detaches it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		hub, cleanup, err := initHub(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		identifier := args[0]
		var labelID *int64
		if args[1] != "" {
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid label id %q: %w", args[1], err)
			}
			labelID = &id
		}

		if err := hub.ReassignLabel(context.Background(), identifier, labelID); err != nil {
			return err
		}
		nuts.L.Infof("[SetLabel] Device %s reassigned", identifier)
		return nil
	},
}

var purgeBefore string

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete samples older than a cutoff from every metric table",
	RunE: func(cmd *cobra.Command, args []string) error {
		nuts.InitVersion()
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		before, err := time.Parse(time.RFC3339, purgeBefore)
		if err != nil {
			return fmt.Errorf("invalid cutoff %q: %w", purgeBefore, err)
		}

		db, err := database.NewTimescaleDB(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		samples, err := timescale.NewSampleRepository(db)
		if err != nil {
			return err
		}

		svc := retention.New(samples)
		svc.OnRetention("retention.purged", func(metric string) {
			fmt.Printf("- purged %s\n", metric)
		})
		return svc.PurgeBefore(context.Background(), before)
	},
}

func init() {
	purgeCmd.Flags().StringVar(&purgeBefore, "before", "",
		"delete rows older than this RFC3339 timestamp")
	purgeCmd.MarkFlagRequired("before")
}
