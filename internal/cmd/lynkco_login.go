// Package cmd wires the interactive command-line entry points for the
// Lynk & Co cloud client.
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lynkco-community/lynkcloud/internal/auth/lynkco"
	"github.com/lynkco-community/lynkcloud/internal/browser"
	"github.com/lynkco-community/lynkcloud/internal/config"
	"github.com/lynkco-community/lynkcloud/internal/entries"
	"github.com/lynkco-community/lynkcloud/internal/flow"
	"github.com/lynkco-community/lynkcloud/internal/misc"
	"github.com/lynkco-community/lynkcloud/internal/tokenstore"
	"github.com/lynkco-community/lynkcloud/internal/vehicle"
	log "github.com/sirupsen/logrus"
)

// maxRedirectAttempts bounds how often the user is re-prompted for a redirect
// URI within one login session.
const maxRedirectAttempts = 5

// LoginOptions contains options for the login process.
type LoginOptions struct {
	// NoBrowser indicates whether to skip opening the browser automatically.
	NoBrowser bool

	// ReauthEntryID selects re-authentication of an existing entry when set.
	ReauthEntryID string

	// Prompt allows the caller to provide interactive input when needed.
	Prompt func(prompt string) (string, error)
}

// DoLynkLogin runs the interactive Lynk & Co login flow: it prints (and
// optionally opens) the authorization URL, waits for the user to paste the
// msauth redirect URI from the browser hop, and drives the login state
// machine to a terminal outcome.
func DoLynkLogin(cfg *config.Config, options *LoginOptions) {
	if options == nil {
		options = &LoginOptions{}
	}

	promptFn := options.Prompt
	if promptFn == nil {
		promptFn = stdinPrompt
	}

	authDir, err := config.ResolveAuthDir(cfg.AuthDir)
	if err != nil {
		log.Errorf("failed to resolve auth directory: %v", err)
		return
	}

	store := tokenstore.NewFileStore(authDir)
	registry := entries.NewRegistry(authDir)
	registry.SetReloadHook(func(entry entries.Entry) {
		log.Infof("entry %s reloaded with VIN %s", entry.ID, entry.VIN)
	})

	mode := flow.ModeNewLogin
	if options.ReauthEntryID != "" {
		if _, err = registry.Get(options.ReauthEntryID); err != nil {
			fmt.Printf("Cannot re-authenticate: %v\n", err)
			return
		}
		mode = flow.ModeReauthenticate
	}

	f := flow.New(mode, options.ReauthEntryID, flow.Deps{
		Auth:     lynkco.NewLynkAuth(cfg),
		Vehicles: vehicle.NewClient(cfg),
		Store:    store,
		Registry: registry,
	})

	authURL, err := f.Begin()
	if err != nil {
		fmt.Printf("Lynk & Co authentication failed: %v\n", err)
		return
	}

	presentAuthURL(authURL, options.NoBrowser)

	ctx := context.Background()
	for attempt := 0; attempt < maxRedirectAttempts; attempt++ {
		input, errPrompt := promptFn("Paste the redirect URI from the app login page: ")
		if errPrompt != nil {
			fmt.Printf("Failed to read input: %v\n", errPrompt)
			return
		}

		result, errSubmit := f.SubmitRedirect(ctx, input)
		if result == nil {
			// Recoverable: re-prompt within the same attempt. The auth URL may
			// have been regenerated after a failed exchange.
			log.Error(lynkco.GetUserFriendlyMessage(errSubmit))
			if f.AuthURL() != authURL {
				authURL = f.AuthURL()
				presentAuthURL(authURL, options.NoBrowser)
			}
			continue
		}

		reportOutcome(result, errSubmit, store, options.ReauthEntryID)
		return
	}

	fmt.Println("Too many failed attempts. Please run login again.")
}

func presentAuthURL(authURL string, noBrowser bool) {
	fmt.Printf("Open this URL in your browser and sign in:\n\n%s\n\n", authURL)
	if noBrowser {
		return
	}
	if err := browser.OpenURL(authURL); err != nil {
		log.Warnf("could not open browser automatically: %v", err)
	}
}

func reportOutcome(result *flow.Result, err error, store *tokenstore.FileStore, reauthEntryID string) {
	switch result.State {
	case flow.StateSuccess:
		misc.LogSavingCredentials(store.Path())
		if reauthEntryID != "" {
			fmt.Printf("Re-authentication successful! Entry %s now manages VIN %s\n", result.EntryID, result.VIN)
			return
		}
		fmt.Printf("Lynk & Co authentication successful! Managing VIN %s (entry %s)\n", result.VIN, result.EntryID)
	case flow.StateAborted:
		var authErr *lynkco.AuthenticationError
		if errors.As(err, &authErr) {
			log.WithFields(log.Fields{"reason": result.Reason}).Error(authErr.Error())
			fmt.Println(lynkco.GetUserFriendlyMessage(authErr))
			return
		}
		fmt.Printf("Login aborted: %s\n", result.Reason)
	}
}

func stdinPrompt(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
