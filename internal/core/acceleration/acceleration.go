// Package acceleration applies a workbook acceleration setting to a
// workbook (or one of its sheets) addressed by path.
package acceleration

import (
	"context"
	"errors"
	"fmt"

	"github.com/cbroglie/mustache"
	"github.com/neilberkman/wbaccel/internal/core/db"
	"github.com/neilberkman/wbaccel/internal/core/locator"
	"github.com/neilberkman/wbaccel/internal/core/models"
	"github.com/neilberkman/wbaccel/internal/core/tableau"
	"github.com/rs/zerolog"
)

// ErrSiteDisabled means the site forbids workbook acceleration
var ErrSiteDisabled = errors.New("cannot update workbook because site is disabled for Workbook Acceleration")

// Client is the part of the server the update needs
type Client interface {
	locator.Catalog
	ServerAddress() string
	SiteID() string
	GetSiteByID(ctx context.Context, id string) (*models.Site, error)
	GetSiteByContentURL(ctx context.Context, contentURL string) (*models.Site, error)
	UpdateWorkbook(ctx context.Context, wb *models.Workbook) error
}

// Recorder stores the outcome of each update attempt
type Recorder interface {
	RecordChange(c db.Change) (int64, error)
}

// Request is one enable or disable command
type Request struct {
	Path          string
	Sheet         string // Empty means every sheet
	Enable        bool
	AccelerateNow bool
}

// Action names the request the way the CLI does
func (r Request) Action() string {
	if r.Enable {
		return "enable"
	}
	return "disable"
}

// Target is the acceleration config pushed to the server
func (r Request) Target() models.AccelerationConfig {
	return models.AccelerationConfig{Enabled: r.Enable, AccelerateNow: r.AccelerateNow}
}

// Updater runs requests against one authenticated client
type Updater struct {
	client   Client
	recorder Recorder
	userID   string
	logger   zerolog.Logger
}

// NewUpdater creates an updater. recorder may be nil.
func NewUpdater(client Client, recorder Recorder, logger zerolog.Logger) *Updater {
	return &Updater{
		client:   client,
		recorder: recorder,
		logger:   logger.With().Str("component", "acceleration").Logger(),
	}
}

// WithUser tags recorded changes with the signed-in user
func (u *Updater) WithUser(userID string) *Updater {
	u.userID = userID
	return u
}

// Apply checks the site allows acceleration, locates the workbook and pushes
// the new setting. Every attempt past the site check is recorded.
func (u *Updater) Apply(ctx context.Context, req Request) (*locator.Result, error) {
	if err := u.checkSite(ctx); err != nil {
		return nil, err
	}

	res, err := locator.Locate(ctx, u.client, req.Path, req.Sheet, req.Target())
	if err != nil {
		u.record(req, nil, err)
		return nil, err
	}

	if err := u.client.UpdateWorkbook(ctx, res.Workbook); err != nil {
		err = &UpdateError{Action: req.Action(), Path: req.Path, Err: err}
		u.record(req, res, err)
		return nil, err
	}

	u.logger.Info().
		Str("workbook_id", res.Workbook.ID).
		Str("path", req.Path).
		Str("sheet", req.Sheet).
		Bool("enabled", req.Enable).
		Msg("workbook updated")
	u.record(req, res, nil)
	return res, nil
}

// checkSite fails with ErrSiteDisabled before anything is located
func (u *Updater) checkSite(ctx context.Context) error {
	current, err := u.client.GetSiteByID(ctx, u.client.SiteID())
	if err != nil {
		return fmt.Errorf("failed to read current site: %w", err)
	}
	site, err := u.client.GetSiteByContentURL(ctx, current.ContentURL)
	if err != nil {
		return fmt.Errorf("failed to read site %q: %w", current.ContentURL, err)
	}
	if site.AccelerationDisabled() {
		return ErrSiteDisabled
	}
	return nil
}

func (u *Updater) record(req Request, res *locator.Result, failure error) {
	if u.recorder == nil {
		return
	}

	change := db.Change{
		ServerURL:     u.client.ServerAddress(),
		SiteID:        u.client.SiteID(),
		UserID:        u.userID,
		WorkbookPath:  req.Path,
		Sheet:         req.Sheet,
		Action:        req.Action(),
		AccelerateNow: req.AccelerateNow,
		Succeeded:     failure == nil,
	}
	if res != nil {
		change.WorkbookID = res.Workbook.ID
	}
	if failure != nil {
		change.Error = failure.Error()
	}

	if _, err := u.recorder.RecordChange(change); err != nil {
		u.logger.Warn().Err(err).Msg("unable to record change in history")
	}
}

// UpdateError is a rejected or failed update call
type UpdateError struct {
	Action string
	Path   string
	Err    error
}

// Error prefers the server's own explanation of the rejection
func (e *UpdateError) Error() string {
	detail := e.Err.Error()
	var apiErr *tableau.APIError
	if errors.As(e.Err, &apiErr) {
		detail = apiErr.Detail
	}
	return fmt.Sprintf("unable to %s %s. %s", e.Action, e.Path, detail)
}

func (e *UpdateError) Unwrap() error {
	return e.Err
}

// RenderResult renders the success line with a mustache template
func RenderResult(tmpl string, req Request, res *locator.Result) (string, error) {
	data := map[string]interface{}{
		"action":         req.Action() + "d",
		"path":           req.Path,
		"sheet":          req.Sheet,
		"accelerate_now": req.AccelerateNow,
		"workbook_id":    res.Workbook.ID,
		"project":        res.ProjectPath,
	}
	out, err := mustache.Render(tmpl, data)
	if err != nil {
		return "", fmt.Errorf("failed to render result: %w", err)
	}
	return out, nil
}
