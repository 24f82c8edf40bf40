package tableau

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/neilberkman/wbaccel/internal/core/models"
	"github.com/rs/zerolog"
)

// APIVersion is the REST API version the tool speaks
const APIVersion = "3.6"

// pageSize for paged listings
const pageSize = 100

// HTTPClient abstracts HTTP calls for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIError is a non-success response from the server
type APIError struct {
	StatusCode int
	Code       string
	Summary    string
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s - %s", e.Code, e.Summary, e.Detail)
}

// ErrMalformedResponse means the server answered but the body was not what
// the API promises
var ErrMalformedResponse = errors.New("malformed server response")

var _ ServerClient = (*Client)(nil)

// Client talks to one server over the REST API
type Client struct {
	baseURL    string
	certPath   string
	httpClient HTTPClient
	logger     zerolog.Logger

	token  string
	siteID string
	userID string
}

// New creates an unauthenticated client. For https servers a PEM file
// adds a trusted root; without one, certificate verification is skipped.
func New(address, tlsCertPath string, logger zerolog.Logger) (*Client, error) {
	baseURL := models.NormalizeServerURL(address)
	if baseURL == "" {
		return nil, fmt.Errorf("server address is required")
	}

	c := &Client{
		baseURL:  baseURL,
		certPath: tlsCertPath,
		logger:   logger.With().Str("component", "tableau").Logger(),
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if models.IsHTTPS(baseURL) {
		tlsConfig, err := c.tlsConfig()
		if err != nil {
			return nil, err
		}
		transport.TLSClientConfig = tlsConfig
	}
	c.httpClient = &http.Client{Transport: transport}

	return c, nil
}

func (c *Client) tlsConfig() (*tls.Config, error) {
	if c.certPath == "" {
		c.logger.Debug().Msg("no certificate given, skipping TLS verification")
		return &tls.Config{InsecureSkipVerify: true}, nil //nolint:gosec
	}

	pem, err := os.ReadFile(c.certPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate %s: %w", c.certPath, err)
	}
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no PEM certificates found in %s", c.certPath)
	}
	return &tls.Config{RootCAs: pool}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(hc HTTPClient) {
	c.httpClient = hc
}

// ServerAddress returns the normalized server address
func (c *Client) ServerAddress() string {
	return c.baseURL
}

// SiteID returns the LUID of the site the session is bound to
func (c *Client) SiteID() string {
	return c.siteID
}

// BindSession attaches an existing session to the client
func (c *Client) BindSession(siteID, userID, token string) {
	c.siteID = siteID
	c.userID = userID
	c.token = token
}

// SignIn authenticates and binds the resulting session
func (c *Client) SignIn(ctx context.Context, creds models.Credentials) (models.SessionRecord, error) {
	req := tsRequest{
		Credentials: &xmlCredentials{
			Name:     creds.Username,
			Password: creds.Password,
			Site:     &xmlSite{ContentURL: creds.Site},
		},
	}

	var resp tsResponse
	if err := c.do(ctx, http.MethodPost, "/auth/signin", &req, &resp); err != nil {
		return models.SessionRecord{}, err
	}
	if resp.Credentials == nil || resp.Credentials.Site == nil || resp.Credentials.User == nil {
		return models.SessionRecord{}, fmt.Errorf("%w: sign-in credentials incomplete", ErrMalformedResponse)
	}

	c.BindSession(resp.Credentials.Site.ID, resp.Credentials.User.ID, resp.Credentials.Token)
	c.logger.Debug().Str("site_id", c.siteID).Str("user_id", c.userID).Msg("signed in")

	return models.SessionRecord{
		AuthToken:   c.token,
		SiteID:      c.siteID,
		UserID:      c.userID,
		ServerURL:   c.baseURL,
		TLSCertPath: c.certPath,
	}, nil
}

// SignOut invalidates the bound token
func (c *Client) SignOut(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/signout", nil, nil)
	c.BindSession("", "", "")
	return err
}

// ProbeAlive performs a cheap authenticated read to confirm the session
func (c *Client) ProbeAlive(ctx context.Context) bool {
	if c.token == "" || c.siteID == "" {
		return false
	}
	if _, err := c.GetSiteByID(ctx, c.siteID); err != nil {
		c.logger.Debug().Err(err).Msg("liveness probe failed")
		return false
	}
	return true
}

// GetSiteByID fetches a site by its LUID
func (c *Client) GetSiteByID(ctx context.Context, id string) (*models.Site, error) {
	var resp tsResponse
	if err := c.do(ctx, http.MethodGet, "/sites/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Site == nil {
		return nil, fmt.Errorf("site %s missing from response", id)
	}
	return resp.Site.toModel(), nil
}

// GetSiteByContentURL fetches a site by its content URL ("" is the Default site)
func (c *Client) GetSiteByContentURL(ctx context.Context, contentURL string) (*models.Site, error) {
	var resp tsResponse
	path := "/sites/" + url.PathEscape(contentURL) + "?key=contentUrl"
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Site == nil {
		return nil, fmt.Errorf("site %q missing from response", contentURL)
	}
	return resp.Site.toModel(), nil
}

// ListProjects returns every project on the site
func (c *Client) ListProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	err := c.paged(ctx, "/sites/"+c.siteID+"/projects", nil, func(resp *tsResponse) int {
		for _, p := range resp.Projects {
			projects = append(projects, models.Project{ID: p.ID, Name: p.Name, ParentID: p.ParentProjectID})
		}
		return len(resp.Projects)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// ListWorkbooksByName returns the workbooks the server matches for name
func (c *Client) ListWorkbooksByName(ctx context.Context, name string) ([]*models.Workbook, error) {
	query := url.Values{}
	query.Set("filter", "name:eq:"+name)

	var workbooks []*models.Workbook
	err := c.paged(ctx, "/sites/"+c.siteID+"/workbooks", query, func(resp *tsResponse) int {
		for _, w := range resp.Workbooks {
			workbooks = append(workbooks, w.toModel())
		}
		return len(resp.Workbooks)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list workbooks: %w", err)
	}
	return workbooks, nil
}

// ListViews returns the views of a workbook
func (c *Client) ListViews(ctx context.Context, workbookID string) ([]models.View, error) {
	var resp tsResponse
	path := "/sites/" + c.siteID + "/workbooks/" + url.PathEscape(workbookID) + "/views"
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list views: %w", err)
	}

	views := make([]models.View, 0, len(resp.Views))
	for _, v := range resp.Views {
		views = append(views, v.toModel())
	}
	return views, nil
}

// UpdateWorkbook pushes the workbook's acceleration config (and that of
// its views, when narrowed to a sheet) to the server.
func (c *Client) UpdateWorkbook(ctx context.Context, wb *models.Workbook) error {
	req := updateRequest(wb)
	path := "/sites/" + c.siteID + "/workbooks/" + url.PathEscape(wb.ID)
	return c.do(ctx, http.MethodPut, path, &req, nil)
}

// paged walks a listing until totalAvailable items have been consumed
func (c *Client) paged(ctx context.Context, path string, query url.Values, consume func(*tsResponse) int) error {
	if query == nil {
		query = url.Values{}
	}
	seen := 0
	for page := 1; ; page++ {
		query.Set("pageSize", fmt.Sprint(pageSize))
		query.Set("pageNumber", fmt.Sprint(page))

		var resp tsResponse
		if err := c.do(ctx, http.MethodGet, path+"?"+query.Encode(), nil, &resp); err != nil {
			return err
		}

		n := consume(&resp)
		seen += n
		if n == 0 || resp.Pagination == nil || seen >= resp.Pagination.TotalAvailable {
			return nil
		}
	}
}

// do executes an API request, encoding body and decoding into out when non-nil
func (c *Client) do(ctx context.Context, method, path string, body *tsRequest, out *tsResponse) error {
	var reader io.Reader
	if body != nil {
		data, err := xml.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	endpoint := c.baseURL + "/api/" + APIVersion + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/xml")
	if body != nil {
		req.Header.Set("Content-Type", "application/xml")
	}
	if c.token != "" {
		req.Header.Set("X-Tableau-Auth", c.token)
	}

	c.logger.Debug().Str("method", method).Str("path", path).Msg("request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := xml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return nil
}

func parseAPIError(status int, data []byte) error {
	apiErr := &APIError{
		StatusCode: status,
		Code:       "unknown code",
		Summary:    "unknown summary",
		Detail:     "unknown detail",
	}

	var resp tsResponse
	if err := xml.Unmarshal(data, &resp); err == nil && resp.Error != nil {
		if resp.Error.Code != "" {
			apiErr.Code = resp.Error.Code
		}
		if resp.Error.Summary != "" {
			apiErr.Summary = resp.Error.Summary
		}
		if resp.Error.Detail != "" {
			apiErr.Detail = resp.Error.Detail
		}
	} else {
		apiErr.Summary = http.StatusText(status)
	}
	return apiErr
}
