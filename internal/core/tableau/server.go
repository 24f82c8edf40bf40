// Package tableau is the REST transport for the BI server.
package tableau

import (
	"context"

	"github.com/neilberkman/wbaccel/internal/core/models"
	"github.com/rs/zerolog"
)

// ServerClient is the remote capability the session manager, locator and
// acceleration update drive. Every call is a single blocking round trip.
type ServerClient interface {
	ServerAddress() string
	SiteID() string

	SignIn(ctx context.Context, creds models.Credentials) (models.SessionRecord, error)
	SignOut(ctx context.Context) error
	BindSession(siteID, userID, token string)
	ProbeAlive(ctx context.Context) bool

	GetSiteByID(ctx context.Context, id string) (*models.Site, error)
	GetSiteByContentURL(ctx context.Context, contentURL string) (*models.Site, error)

	ListProjects(ctx context.Context) ([]models.Project, error)
	ListWorkbooksByName(ctx context.Context, name string) ([]*models.Workbook, error)
	ListViews(ctx context.Context, workbookID string) ([]models.View, error)
	UpdateWorkbook(ctx context.Context, wb *models.Workbook) error
}

// Connector creates an unauthenticated client for a server address
type Connector func(address, tlsCertPath string) (ServerClient, error)

// NewConnector returns a Connector producing REST clients
func NewConnector(logger zerolog.Logger) Connector {
	return func(address, tlsCertPath string) (ServerClient, error) {
		return New(address, tlsCertPath, logger)
	}
}
