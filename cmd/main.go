package main

import (
	"fmt"
	"log"
	"os"

	tm "github.com/buger/goterm"
	"github.com/spf13/cobra"
	nuts "github.com/vaudience/go-nuts"

	"github.com/ossohq/pe32-hub/internal/config"
	"github.com/ossohq/pe32-hub/internal/server"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pe32-hub",
	Short: "pe32 telemetry hub: MQTT relay, registry and sample store",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the MQTT relay",
	RunE: func(cmd *cobra.Command, args []string) error {
		ClearConsole()
		DrawLogo()
		nuts.InitVersion()
		nuts.L.Infof("[Main] Starting pe32 hub v%s", nuts.GetVersion())

		cfg, err := config.Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		srv := server.New(cfg)
		if err := srv.Start(); err != nil {
			nuts.L.Errorf("[Main] Server error: %v", err)
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(relayCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(setLabelCmd)
	rootCmd.AddCommand(purgeCmd)
}

// ClearConsole clears the console screen
func ClearConsole() {
	tm.Clear()
	tm.MoveCursor(1, 1)
	tm.Flush()
}

func DrawLogo() {
	fmt.Println()
	lines := []string{
		`    ____  ______ _____ ___      __  __      __  `,
		`   / __ \/ ____//__  /|__ \    / / / /_  __/ /_ `,
		`  / /_/ / __/     / / __/ /   / /_/ / / / / __ \`,
		` / ____/ /___    / / / __/   / __  / /_/ / /_/ /`,
		`/_/   /_____/   /_/ /____/  /_/ /_/\__,_/_.___/ `,
		`................................................  ` + nuts.GetVersion(),
	}

	for _, line := range lines {
		fmt.Println(line)
	}
}
