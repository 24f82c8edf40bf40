// Package tableautest provides an in-memory ServerClient for tests.
package tableautest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neilberkman/wbaccel/internal/core/models"
	"github.com/neilberkman/wbaccel/internal/core/tableau"
)

// ErrUnreachable simulates a transport failure
var ErrUnreachable = errors.New("dial tcp: connection refused")

// Server is the shared state behind every Fake connected to it
type Server struct {
	Address string

	// Accounts maps username to password; SignIn checks it
	Accounts map[string]string
	// Sites keyed by content URL; the first SignIn site lookup uses it
	Sites map[string]*models.Site
	// ValidTokens are tokens the probe accepts
	ValidTokens map[string]bool
	// Down makes every call fail as unreachable
	Down bool

	Projects  []models.Project
	Workbooks []*models.Workbook
	Views     map[string][]models.View
	UpdateErr error
	// SignInErr replaces the outcome of every reachable SignIn
	SignInErr error

	// Recorded calls
	SignIns        int
	SignOuts       int
	Probes         int
	ProjectLists   int
	WorkbookLists  int
	Updated        []*models.Workbook
	nextTokenIndex int
}

// NewServer returns a server with one account and the Default site
func NewServer(address string) *Server {
	return &Server{
		Address:     models.NormalizeServerURL(address),
		Accounts:    map[string]string{"alice": "secret"},
		Sites:       map[string]*models.Site{"": {ID: "site-default", Name: "Default", ContentURL: ""}},
		ValidTokens: map[string]bool{},
		Views:       map[string][]models.View{},
	}
}

// Connector returns a tableau.Connector for this server. Connecting to
// any other address yields a client whose calls fail as unreachable.
func (s *Server) Connector() tableau.Connector {
	return func(address, tlsCertPath string) (tableau.ServerClient, error) {
		return &Fake{server: s, address: models.NormalizeServerURL(address), certPath: tlsCertPath}, nil
	}
}

// Client returns a Fake bound to an existing session
func (s *Server) Client(rec models.SessionRecord) *Fake {
	f := &Fake{server: s, address: models.NormalizeServerURL(rec.ServerURL), certPath: rec.TLSCertPath}
	f.BindSession(rec.SiteID, rec.UserID, rec.AuthToken)
	return f
}

// Fake implements tableau.ServerClient against a Server
type Fake struct {
	server   *Server
	address  string
	certPath string

	siteID string
	userID string
	token  string
}

var _ tableau.ServerClient = (*Fake)(nil)

func (f *Fake) reachable() error {
	if f.server.Down || f.address != f.server.Address {
		return fmt.Errorf("executing request: %w", ErrUnreachable)
	}
	return nil
}

func (f *Fake) authorized() error {
	if err := f.reachable(); err != nil {
		return err
	}
	if !f.server.ValidTokens[f.token] {
		return &tableau.APIError{StatusCode: 401, Code: "401002", Summary: "Unauthorized Access", Detail: "Invalid authentication credentials were provided."}
	}
	return nil
}

func (f *Fake) ServerAddress() string { return f.address }
func (f *Fake) SiteID() string        { return f.siteID }

func (f *Fake) BindSession(siteID, userID, token string) {
	f.siteID, f.userID, f.token = siteID, userID, token
}

func (f *Fake) SignIn(_ context.Context, creds models.Credentials) (models.SessionRecord, error) {
	f.server.SignIns++
	if err := f.reachable(); err != nil {
		return models.SessionRecord{}, err
	}
	if f.server.SignInErr != nil {
		return models.SessionRecord{}, f.server.SignInErr
	}
	site, ok := f.server.Sites[creds.Site]
	if pw, known := f.server.Accounts[creds.Username]; !known || pw != creds.Password || !ok {
		return models.SessionRecord{}, &tableau.APIError{StatusCode: 401, Code: "401001", Summary: "Signin Error", Detail: "Error signing in to Tableau Server"}
	}

	f.server.nextTokenIndex++
	token := fmt.Sprintf("token-%d", f.server.nextTokenIndex)
	f.server.ValidTokens[token] = true
	f.BindSession(site.ID, "user-"+creds.Username, token)

	return models.SessionRecord{
		AuthToken:   token,
		SiteID:      site.ID,
		UserID:      f.userID,
		ServerURL:   f.address,
		TLSCertPath: f.certPath,
	}, nil
}

func (f *Fake) SignOut(context.Context) error {
	f.server.SignOuts++
	if err := f.authorized(); err != nil {
		return err
	}
	delete(f.server.ValidTokens, f.token)
	f.BindSession("", "", "")
	return nil
}

func (f *Fake) ProbeAlive(context.Context) bool {
	f.server.Probes++
	return f.authorized() == nil
}

func (f *Fake) GetSiteByID(_ context.Context, id string) (*models.Site, error) {
	if err := f.authorized(); err != nil {
		return nil, err
	}
	for _, site := range f.server.Sites {
		if site.ID == id {
			return site, nil
		}
	}
	return nil, &tableau.APIError{StatusCode: 404, Code: "404000", Summary: "Site not found"}
}

func (f *Fake) GetSiteByContentURL(_ context.Context, contentURL string) (*models.Site, error) {
	if err := f.authorized(); err != nil {
		return nil, err
	}
	if site, ok := f.server.Sites[contentURL]; ok {
		return site, nil
	}
	return nil, &tableau.APIError{StatusCode: 404, Code: "404000", Summary: "Site not found"}
}

func (f *Fake) ListProjects(context.Context) ([]models.Project, error) {
	f.server.ProjectLists++
	if err := f.authorized(); err != nil {
		return nil, err
	}
	return append([]models.Project(nil), f.server.Projects...), nil
}

// ListWorkbooksByName filters case-insensitively, as the real server does,
// so callers must confirm exact names themselves.
func (f *Fake) ListWorkbooksByName(_ context.Context, name string) ([]*models.Workbook, error) {
	f.server.WorkbookLists++
	if err := f.authorized(); err != nil {
		return nil, err
	}
	var out []*models.Workbook
	for _, wb := range f.server.Workbooks {
		if strings.EqualFold(wb.Name, name) {
			copied := *wb
			copied.Views = nil
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *Fake) ListViews(_ context.Context, workbookID string) ([]models.View, error) {
	if err := f.authorized(); err != nil {
		return nil, err
	}
	return append([]models.View(nil), f.server.Views[workbookID]...), nil
}

func (f *Fake) UpdateWorkbook(_ context.Context, wb *models.Workbook) error {
	if err := f.authorized(); err != nil {
		return err
	}
	if f.server.UpdateErr != nil {
		return f.server.UpdateErr
	}
	copied := *wb
	copied.Views = append([]models.View(nil), wb.Views...)
	f.server.Updated = append(f.server.Updated, &copied)
	return nil
}
