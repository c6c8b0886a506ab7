package lynkco

import (
	"context"
	"fmt"

	"github.com/lynkco-community/lynkcloud/internal/tokenstore"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// TokenManager renews stored credentials between full logins. It exchanges
// the persisted refresh token for a fresh token set, repeats the device login
// to obtain a current CCC token, and merges both back into the bundle.
//
// Concurrent refresh calls are collapsed into a single upstream exchange via
// singleflight, so a burst of callers cannot burn the one-time-use refresh
// token more than once.
type TokenManager struct {
	auth  *LynkAuth
	store *tokenstore.FileStore
	group singleflight.Group
}

// NewTokenManager creates a TokenManager over the given auth service and store.
func NewTokenManager(auth *LynkAuth, store *tokenstore.FileStore) *TokenManager {
	return &TokenManager{auth: auth, store: store}
}

// RefreshCredentials renews the stored refresh token and CCC token.
// It returns the current CCC token, or "" when the device login yielded none
// (the refreshed refresh token is still persisted in that case).
func (m *TokenManager) RefreshCredentials(ctx context.Context) (string, error) {
	ccc, err, _ := m.group.Do("refresh", func() (interface{}, error) {
		return m.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return ccc.(string), nil
}

func (m *TokenManager) refresh(ctx context.Context) (string, error) {
	bundle, err := m.store.Load()
	if err != nil {
		return "", fmt.Errorf("failed to load credential bundle: %w", err)
	}

	refreshToken := bundle[tokenstore.RefreshTokenKey]
	if refreshToken == "" {
		return "", fmt.Errorf("no refresh token stored; run login first")
	}

	triple, err := m.auth.RefreshTokens(ctx, refreshToken)
	if err != nil {
		return "", err
	}

	values := map[string]string{
		tokenstore.RefreshTokenKey: triple.RefreshToken,
	}

	ccc, errCCC := m.auth.DeviceLogin(ctx, triple.AccessToken)
	if errCCC != nil {
		log.Errorf("device login yielded no ccc token during refresh: %v", errCCC)
	} else {
		values[tokenstore.CCCTokenKey] = ccc
	}

	if err = m.store.Put(values); err != nil {
		return "", NewAuthenticationError(ErrPersistenceFailed, err)
	}
	return ccc, nil
}
