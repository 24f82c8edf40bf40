package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/neilberkman/wbaccel/internal/core/models"
	"github.com/neilberkman/wbaccel/internal/core/tableau"
	"github.com/rs/zerolog"
)

var (
	// ErrSignInRejected means the server refused the username, password or site
	ErrSignInRejected = errors.New("sign-in rejected")
	// ErrServerUnreachable means the server could not be contacted at all
	ErrServerUnreachable = errors.New("unable to connect to server")
	// ErrUnexpectedResponse means the server was reached but its answer could not be used
	ErrUnexpectedResponse = errors.New("unexpected response from server")
	// ErrMissingCredentials means a fresh sign-in is needed but nothing can prompt for it
	ErrMissingCredentials = errors.New("missing credentials and no prompt available")
)

// State is where the manager ended up after the last Resolve
type State int

const (
	Unauthenticated State = iota
	CachedValid
	CachedStaleTarget
	Authenticated
)

func (s State) String() string {
	switch s {
	case CachedValid:
		return "cached-valid"
	case CachedStaleTarget:
		return "cached-stale-target"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Request describes the connection the caller wants. Empty fields were not
// supplied; SiteSet distinguishes "no site given" from the Default site ("").
type Request struct {
	Server      string
	Site        string
	SiteSet     bool
	Username    string
	Password    string
	TLSCertPath string
}

// NeedsPrompt reports whether a fresh sign-in lacks any required field
func (r Request) NeedsPrompt() bool {
	return r.Server == "" || !r.SiteSet || r.Username == "" || r.Password == ""
}

// Prompter fills in fields the caller did not supply
type Prompter interface {
	PromptCredentials(req Request) (Request, error)
}

// CredentialStore is the persistence the manager needs
type CredentialStore interface {
	Save(models.SessionRecord) error
	Load() (models.SessionRecord, bool)
	Clear()
}

// Manager decides between reusing a cached session, signing in again, and
// signing out. It owns the store and the currently bound client.
type Manager struct {
	store    CredentialStore
	connect  tableau.Connector
	prompter Prompter
	logger   zerolog.Logger

	client tableau.ServerClient
	userID string
	state  State
}

// NewManager creates a manager. prompter may be nil for non-interactive use.
func NewManager(store CredentialStore, connect tableau.Connector, prompter Prompter, logger zerolog.Logger) *Manager {
	return &Manager{
		store:    store,
		connect:  connect,
		prompter: prompter,
		logger:   logger.With().Str("component", "session").Logger(),
	}
}

// State returns the outcome of the last Resolve
func (m *Manager) State() State {
	return m.state
}

// UserID returns the user the last successful Resolve acts as
func (m *Manager) UserID() string {
	return m.userID
}

// Client returns the client bound by the last successful Resolve
func (m *Manager) Client() tableau.ServerClient {
	return m.client
}

// Resolve returns an authenticated client for the requested server/site,
// reusing the cached session when it is alive and targets the same place.
func (m *Manager) Resolve(ctx context.Context, req Request) (tableau.ServerClient, error) {
	client, rec, ok := m.Current(ctx)

	serverHint := ""
	if ok {
		serverHint = rec.ServerURL
		if m.sameTarget(ctx, client, req) {
			m.logger.Debug().Str("server", client.ServerAddress()).Msg("reusing cached session")
			m.state = CachedValid
			m.client = client
			m.userID = rec.UserID
			return client, nil
		}

		m.logger.Info().Str("server", client.ServerAddress()).Msg("cached session targets a different server or site, signing out")
		m.state = CachedStaleTarget
		m.signOut(ctx, client)
	} else {
		m.state = Unauthenticated
	}

	m.client, m.userID = nil, ""
	client, userID, err := m.signIn(ctx, req, serverHint)
	if err != nil {
		return nil, err
	}
	m.state = Authenticated
	m.client = client
	m.userID = userID
	return client, nil
}

// Current returns a client bound to the cached session if that session is
// still alive. A cached session that fails the probe is cleared.
func (m *Manager) Current(ctx context.Context) (tableau.ServerClient, models.SessionRecord, bool) {
	rec, ok := m.store.Load()
	if !ok {
		return nil, models.SessionRecord{}, false
	}

	client, err := m.connect(rec.ServerURL, rec.TLSCertPath)
	if err != nil {
		m.logger.Debug().Err(err).Msg("unable to rebuild client for cached session")
		m.store.Clear()
		return nil, models.SessionRecord{}, false
	}
	client.BindSession(rec.SiteID, rec.UserID, rec.AuthToken)

	if !client.ProbeAlive(ctx) {
		m.logger.Info().Str("server", rec.ServerURL).Msg("cached session expired")
		m.store.Clear()
		return nil, models.SessionRecord{}, false
	}
	return client, rec, true
}

// Logout signs out of a live cached session and clears the store. It
// returns the server that was signed out of, if any; having nothing to
// sign out of is not a failure.
func (m *Manager) Logout(ctx context.Context) (string, bool) {
	client, _, ok := m.Current(ctx)
	if !ok {
		m.store.Clear()
		return "", false
	}

	address := client.ServerAddress()
	m.signOut(ctx, client)
	m.client, m.userID = nil, ""
	m.state = Unauthenticated
	return address, true
}

// sameTarget compares the live session's server and site with the request.
// Unrequested values default to the live ones.
func (m *Manager) sameTarget(ctx context.Context, client tableau.ServerClient, req Request) bool {
	currentServer := models.NormalizeServerURL(client.ServerAddress())
	wantServer := currentServer
	if req.Server != "" {
		wantServer = models.NormalizeServerURL(req.Server)
	}
	if wantServer != currentServer {
		return false
	}

	if !req.SiteSet {
		return true
	}
	site, err := client.GetSiteByID(ctx, client.SiteID())
	if err != nil {
		m.logger.Debug().Err(err).Msg("unable to read current site")
		return false
	}
	return site.ContentURL == req.Site
}

func (m *Manager) signOut(ctx context.Context, client tableau.ServerClient) {
	m.store.Clear()
	if err := client.SignOut(ctx); err != nil {
		m.logger.Warn().Err(err).Str("server", client.ServerAddress()).Msg("unable to sign out")
	}
}

func (m *Manager) signIn(ctx context.Context, req Request, serverHint string) (tableau.ServerClient, string, error) {
	if req.Server == "" {
		req.Server = serverHint
	}
	if req.NeedsPrompt() {
		if m.prompter == nil {
			return nil, "", ErrMissingCredentials
		}
		prompted, err := m.prompter.PromptCredentials(req)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read credentials: %w", err)
		}
		req = prompted
	}

	server := models.NormalizeServerURL(req.Server)
	if server == "" {
		return nil, "", ErrMissingCredentials
	}
	certPath := req.TLSCertPath
	if !models.IsHTTPS(server) {
		certPath = ""
	}

	client, err := m.connect(server, certPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to set up connection to %s: %w", server, err)
	}

	rec, err := client.SignIn(ctx, models.Credentials{
		Server:      server,
		Site:        req.Site,
		Username:    req.Username,
		Password:    req.Password,
		TLSCertPath: certPath,
	})
	if err != nil {
		var apiErr *tableau.APIError
		switch {
		case errors.As(err, &apiErr):
			return nil, "", fmt.Errorf("%w: %w", ErrSignInRejected, err)
		case errors.Is(err, tableau.ErrMalformedResponse):
			return nil, "", fmt.Errorf("%w %s: %w", ErrUnexpectedResponse, server, err)
		default:
			return nil, "", fmt.Errorf("%w %s: %w", ErrServerUnreachable, server, err)
		}
	}

	if err := m.store.Save(rec); err != nil {
		m.logger.Warn().Err(err).Msg("signed in but unable to persist session")
	}
	m.logger.Info().Str("server", server).Msg("signed in")
	return client, rec.UserID, nil
}
