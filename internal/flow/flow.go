// Package flow implements the login state machine that sequences the
// Lynk & Co authentication steps: PKCE generation, the browser hop, the
// authorization-code exchange, the CCC device login, identity resolution,
// vehicle lookup, and credential persistence.
package flow

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/lynkco-community/lynkcloud/internal/auth/lynkco"
	"github.com/lynkco-community/lynkcloud/internal/entries"
	"github.com/lynkco-community/lynkcloud/internal/misc"
	"github.com/lynkco-community/lynkcloud/internal/tokenstore"
	log "github.com/sirupsen/logrus"
)

// State identifies a position in the login state machine.
type State string

// Login flow states. Success and Aborted are terminal; a new attempt always
// starts a fresh Flow value at Idle.
const (
	StateIdle              State = "idle"
	StateAwaitingRedirect  State = "awaiting_redirect"
	StateExchanging        State = "exchanging"
	StateResolvingIdentity State = "resolving_identity"
	StateResolvingVehicle  State = "resolving_vehicle"
	StateFinalizing        State = "finalizing"
	StateSuccess           State = "success"
	StateAborted           State = "aborted"
)

// Abort reasons surfaced to the user.
const (
	// ReasonNoVINsFound covers both a missing CCC credential/identity and a
	// genuinely empty vehicle list; the internal error kind stays distinct.
	ReasonNoVINsFound = "no_vins_found"
	// ReasonPersistenceFailed means credentials could not be saved; the
	// attempt must not report success.
	ReasonPersistenceFailed = "persistence_failed"
)

// Mode selects between a first login and a re-authentication of an existing
// entry. It is an explicit input to the state machine, never inferred.
type Mode int

const (
	// ModeNewLogin creates a new entry record on success.
	ModeNewLogin Mode = iota
	// ModeReauthenticate updates an existing entry record in place on success
	// and triggers a reload of dependent state.
	ModeReauthenticate
)

// Authenticator is the subset of the auth service the flow drives.
type Authenticator interface {
	GenerateAuthURL(state string, pkceCodes *lynkco.PKCECodes) (string, error)
	ExchangeRedirectURI(ctx context.Context, redirectURI string, pkceCodes *lynkco.PKCECodes) (*lynkco.TokenTriple, error)
	DeviceLogin(ctx context.Context, accessToken string) (string, error)
}

// VehicleLister resolves the VINs owned by a user.
type VehicleLister interface {
	GetUserVINs(ctx context.Context, cccToken, userID string) []string
}

// TokenStore persists the credential bundle.
type TokenStore interface {
	Load() (map[string]string, error)
	Put(values map[string]string) error
}

// EntryRegistry records configured vehicles.
type EntryRegistry interface {
	Create(title, vin string) (*entries.Entry, error)
	UpdateVIN(id, vin string) (*entries.Entry, error)
}

// Deps bundles the collaborators a Flow drives.
type Deps struct {
	Auth     Authenticator
	Vehicles VehicleLister
	Store    TokenStore
	Registry EntryRegistry
}

// Result is the terminal outcome of a login attempt.
type Result struct {
	State   State
	Reason  string
	VIN     string
	EntryID string
}

// Flow is one login attempt. The PKCE verifier lives only inside the Flow
// value for the lifetime of the attempt; it is never persisted, so a process
// restart during the browser hop abandons the attempt.
type Flow struct {
	mode    Mode
	entryID string
	deps    Deps

	attemptID  string
	state      State
	pkce       *lynkco.PKCECodes
	oauthState string
	authURL    string
}

// New creates a login flow. entryID is required for ModeReauthenticate and
// identifies the entry record to update in place.
func New(mode Mode, entryID string, deps Deps) *Flow {
	return &Flow{
		mode:      mode,
		entryID:   entryID,
		deps:      deps,
		attemptID: uuid.NewString(),
		state:     StateIdle,
	}
}

// State returns the current state of the attempt.
func (f *Flow) State() State {
	return f.state
}

// AuthURL returns the authorization URL for the current PKCE pair.
func (f *Flow) AuthURL() string {
	return f.authURL
}

// Begin generates a fresh PKCE pair and the authorization URL, and moves the
// attempt to AwaitingRedirect. Entropy-source failure is fatal to the attempt.
func (f *Flow) Begin() (string, error) {
	if err := f.regeneratePKCE(); err != nil {
		return "", err
	}
	f.state = StateAwaitingRedirect
	log.WithFields(log.Fields{"state": f.state}).Debugf("login attempt %s started", f.attemptID)
	return f.authURL, nil
}

func (f *Flow) regeneratePKCE() error {
	pkce, err := lynkco.GeneratePKCECodes()
	if err != nil {
		return err
	}
	oauthState, err := misc.GenerateRandomState()
	if err != nil {
		return err
	}
	authURL, err := f.deps.Auth.GenerateAuthURL(oauthState, pkce)
	if err != nil {
		return err
	}
	f.pkce = pkce
	f.oauthState = oauthState
	f.authURL = authURL
	return nil
}

// SubmitRedirect consumes the redirect URI pasted by the user after the
// browser hop and drives the attempt to a terminal state, or back to
// AwaitingRedirect on a recoverable error.
//
// Recoverable errors (nil Result, non-nil error):
//   - an invalid or empty redirect URI re-prompts with the same PKCE pair;
//   - a failed code exchange re-prompts with a freshly generated PKCE pair,
//     since the previous pairing is likely consumed server-side.
//
// Terminal outcomes return a Result; the error alongside an aborted Result
// carries the internal cause.
func (f *Flow) SubmitRedirect(ctx context.Context, redirectURI string) (*Result, error) {
	if f.state != StateAwaitingRedirect {
		return nil, lynkco.NewAuthenticationError(lynkco.ErrMissingDetails, nil)
	}

	redirectURI = strings.TrimSpace(redirectURI)
	if redirectURI == "" {
		return nil, lynkco.NewAuthenticationError(lynkco.ErrMissingDetails, nil)
	}
	if !lynkco.IsValidRedirectURI(redirectURI) {
		// Same PKCE pair stays valid; the user only mis-pasted.
		return nil, lynkco.NewAuthenticationError(lynkco.ErrInvalidRedirectURI, nil)
	}

	f.state = StateExchanging
	triple, err := f.deps.Auth.ExchangeRedirectURI(ctx, redirectURI, f.pkce)
	if err != nil {
		// The code/verifier pairing is consumed server-side; restart the
		// browser hop with a fresh pair.
		if regenErr := f.regeneratePKCE(); regenErr != nil {
			f.state = StateAborted
			return &Result{State: StateAborted, Reason: ReasonNoVINsFound}, regenErr
		}
		f.state = StateAwaitingRedirect
		return nil, err
	}

	f.state = StateResolvingIdentity
	cccToken, errCCC := f.deps.Auth.DeviceLogin(ctx, triple.AccessToken)
	if errCCC != nil {
		log.Errorf("new ccc token is unavailable: %v", errCCC)
		cccToken = ""
	}

	claims, err := lynkco.DecodeIDTokenClaims(triple.IDToken)
	if err != nil {
		f.state = StateAborted
		return &Result{State: StateAborted, Reason: ReasonNoVINsFound}, err
	}
	userID := lynkco.SnowflakeID(claims)

	f.state = StateResolvingVehicle
	var vins []string
	if cccToken != "" && userID != "" {
		vins = f.deps.Vehicles.GetUserVINs(ctx, cccToken, userID)
	}
	if len(vins) == 0 {
		f.state = StateAborted
		log.WithFields(log.Fields{"reason": ReasonNoVINsFound}).Error("no VINs found for the user")
		if cccToken == "" {
			return &Result{State: StateAborted, Reason: ReasonNoVINsFound},
				lynkco.NewAuthenticationError(lynkco.ErrCCCUnavailable, errCCC)
		}
		return &Result{State: StateAborted, Reason: ReasonNoVINsFound},
			lynkco.NewAuthenticationError(lynkco.ErrNoVINsFound, nil)
	}
	// First VIN is the managed vehicle; a policy choice, not a uniqueness guarantee.
	vin := vins[0]

	f.state = StateFinalizing
	values := map[string]string{tokenstore.RefreshTokenKey: triple.RefreshToken}
	if cccToken != "" {
		values[tokenstore.CCCTokenKey] = cccToken
	}
	if err = f.deps.Store.Put(values); err != nil {
		f.state = StateAborted
		return &Result{State: StateAborted, Reason: ReasonPersistenceFailed},
			lynkco.NewAuthenticationError(lynkco.ErrPersistenceFailed, err)
	}

	var entry *entries.Entry
	if f.mode == ModeReauthenticate {
		entry, err = f.deps.Registry.UpdateVIN(f.entryID, vin)
	} else {
		entry, err = f.deps.Registry.Create("Lynk & Co", vin)
	}
	if err != nil {
		f.state = StateAborted
		return &Result{State: StateAborted, Reason: ReasonPersistenceFailed},
			lynkco.NewAuthenticationError(lynkco.ErrPersistenceFailed, err)
	}

	f.state = StateSuccess
	log.WithFields(log.Fields{"state": f.state, "vin": vin, "entry": entry.ID}).Info("login successful")
	return &Result{State: StateSuccess, VIN: vin, EntryID: entry.ID}, nil
}
