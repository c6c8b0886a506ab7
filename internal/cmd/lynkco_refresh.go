package cmd

import (
	"context"
	"fmt"

	"github.com/lynkco-community/lynkcloud/internal/auth/lynkco"
	"github.com/lynkco-community/lynkcloud/internal/config"
	"github.com/lynkco-community/lynkcloud/internal/tokenstore"
	log "github.com/sirupsen/logrus"
)

// DoLynkRefresh renews the stored credentials using the persisted refresh
// token, without a full interactive login.
func DoLynkRefresh(cfg *config.Config) {
	authDir, err := config.ResolveAuthDir(cfg.AuthDir)
	if err != nil {
		log.Errorf("failed to resolve auth directory: %v", err)
		return
	}

	store := tokenstore.NewFileStore(authDir)
	manager := lynkco.NewTokenManager(lynkco.NewLynkAuth(cfg), store)

	ccc, err := manager.RefreshCredentials(context.Background())
	if err != nil {
		fmt.Printf("Credential refresh failed: %v\n", err)
		return
	}

	if ccc == "" {
		fmt.Println("Refresh token renewed, but no CCC token was issued. Vehicle calls may require a full login.")
		return
	}
	fmt.Println("Credentials refreshed successfully.")
}
