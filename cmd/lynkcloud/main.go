// Package main provides the entry point for the Lynk & Co cloud client.
// The binary drives the OAuth2 PKCE login flow against the Lynk & Co cloud,
// maintains the persisted credential bundle, and lists the entries it manages.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/lynkco-community/lynkcloud/internal/cmd"
	"github.com/lynkco-community/lynkcloud/internal/config"
	"github.com/lynkco-community/lynkcloud/internal/entries"
	"github.com/lynkco-community/lynkcloud/internal/logging"
	"github.com/lynkco-community/lynkcloud/internal/watcher"
	log "github.com/sirupsen/logrus"
)

var (
	Version           = "dev"
	BuildDate         = "unknown"
	DefaultConfigPath = "config.yaml"
)

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
}

func main() {
	fmt.Printf("lynkcloud Version: %s, BuiltAt: %s\n", Version, BuildDate)

	var login bool
	var reauthEntry string
	var refresh bool
	var listEntries bool
	var noBrowser bool
	var configPath string

	flag.BoolVar(&login, "login", false, "Login to the Lynk & Co cloud using OAuth")
	flag.StringVar(&reauthEntry, "reauth", "", "Re-authenticate the entry with the given ID")
	flag.BoolVar(&refresh, "refresh", false, "Renew stored credentials using the saved refresh token")
	flag.BoolVar(&listEntries, "entries", false, "List configured vehicle entries")
	flag.BoolVar(&noBrowser, "no-browser", false, "Don't open browser automatically for OAuth")
	flag.StringVar(&configPath, "config", DefaultConfigPath, "Configure File Path")
	flag.Parse()

	// Optional .env for local overrides; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err = logging.ConfigureLogOutput(cfg); err != nil {
		fmt.Printf("Failed to configure logging: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	startConfigWatcher(ctx, configPath)

	switch {
	case login:
		cmd.DoLynkLogin(cfg, &cmd.LoginOptions{NoBrowser: noBrowser})
	case reauthEntry != "":
		cmd.DoLynkLogin(cfg, &cmd.LoginOptions{NoBrowser: noBrowser, ReauthEntryID: reauthEntry})
	case refresh:
		cmd.DoLynkRefresh(cfg)
	case listEntries:
		printEntries(cfg)
	default:
		flag.Usage()
	}
}

// startConfigWatcher hot-reloads logging settings while the process runs; the
// login flow can sit at the browser hop for a long time.
func startConfigWatcher(ctx context.Context, configPath string) {
	w, err := watcher.NewWatcher(configPath, func(cfg *config.Config) {
		if errLog := logging.ConfigureLogOutput(cfg); errLog != nil {
			log.Errorf("failed to apply reloaded logging config: %v", errLog)
		}
	})
	if err != nil {
		log.Warnf("config watcher unavailable: %v", err)
		return
	}
	if err = w.Start(ctx); err != nil {
		log.Warnf("config watcher failed to start: %v", err)
	}
}

func printEntries(cfg *config.Config) {
	authDir, err := config.ResolveAuthDir(cfg.AuthDir)
	if err != nil {
		fmt.Printf("Failed to resolve auth directory: %v\n", err)
		return
	}

	all, err := entries.NewRegistry(authDir).List()
	if err != nil {
		fmt.Printf("Failed to list entries: %v\n", err)
		return
	}
	if len(all) == 0 {
		fmt.Println("No entries configured. Run with -login first.")
		return
	}
	for _, entry := range all {
		fmt.Printf("%s  %s  VIN=%s  updated=%s\n", entry.ID, entry.Title, entry.VIN, entry.UpdatedAt)
	}
}
