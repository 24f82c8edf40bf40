package tableau

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/neilberkman/wbaccel/internal/core/models"
	"github.com/rs/zerolog"
)

const apiPrefix = "/api/" + APIVersion

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	c, err := New(ts.URL, "", zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestSignIn_Success(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != apiPrefix+"/auth/signin" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req tsRequest
		if err := xml.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Credentials.Name != "alice" || req.Credentials.Password != "pass123" {
			t.Errorf("unexpected credentials: %+v", req.Credentials)
		}
		if req.Credentials.Site.ContentURL != "finance" {
			t.Errorf("site = %q, want finance", req.Credentials.Site.ContentURL)
		}
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<tsResponse xmlns="http://tableau.com/api">
  <credentials token="tok-123">
    <site id="site-abc" contentUrl="finance"/>
    <user id="user-xyz"/>
  </credentials>
</tsResponse>`)
	}))

	rec, err := c.SignIn(context.Background(), models.Credentials{Username: "alice", Password: "pass123", Site: "finance"})
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if rec.AuthToken != "tok-123" || rec.SiteID != "site-abc" || rec.UserID != "user-xyz" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.ServerURL != c.ServerAddress() {
		t.Errorf("ServerURL = %q, want %q", rec.ServerURL, c.ServerAddress())
	}
	if c.SiteID() != "site-abc" {
		t.Errorf("SiteID() = %q", c.SiteID())
	}
}

func TestSignIn_Rejected(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `<tsResponse xmlns="http://tableau.com/api">
  <error code="401001"><summary>Signin Error</summary><detail>Error signing in to Tableau Server</detail></error>
</tsResponse>`)
	}))

	_, err := c.SignIn(context.Background(), models.Credentials{Username: "alice", Password: "wrong"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != "401001" || apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("unexpected error: %+v", apiErr)
	}
	if apiErr.Error() != "401001: Signin Error - Error signing in to Tableau Server" {
		t.Errorf("Error() = %q", apiErr.Error())
	}
}

func TestSignIn_MalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing site and user", `<tsResponse><credentials token="t"/></tsResponse>`},
		{"not xml", "<<<"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))

			_, err := c.SignIn(context.Background(), models.Credentials{Username: "alice", Password: "secret"})
			if !errors.Is(err, ErrMalformedResponse) {
				t.Fatalf("SignIn() error = %v, want ErrMalformedResponse", err)
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				t.Errorf("a 200 with a bad body is not an API error: %v", err)
			}
		})
	}
}

func TestAPIError_UnparseableBody(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream down")
	}))
	c.BindSession("site-abc", "user-xyz", "tok")

	_, err := c.GetSiteByID(context.Background(), "site-abc")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != "unknown code" || apiErr.Summary != "Bad Gateway" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestSignOut_ClearsSession(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != apiPrefix+"/auth/signout" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Tableau-Auth") != "tok" {
			t.Errorf("missing auth header")
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	c.BindSession("site-abc", "user-xyz", "tok")

	if err := c.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	if c.SiteID() != "" {
		t.Error("session should be unbound after sign out")
	}
}

func TestProbeAlive(t *testing.T) {
	alive := true
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !alive {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `<tsResponse><site id="site-abc" name="Finance" contentUrl="finance" dataAccelerationMode="enable_selective"/></tsResponse>`)
	}))

	if c.ProbeAlive(context.Background()) {
		t.Error("unbound client should not be alive")
	}

	c.BindSession("site-abc", "user-xyz", "tok")
	if !c.ProbeAlive(context.Background()) {
		t.Error("expected alive")
	}

	alive = false
	if c.ProbeAlive(context.Background()) {
		t.Error("expected probe failure on 401")
	}
}

func TestGetSiteByContentURL(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != apiPrefix+"/sites/finance" || r.URL.Query().Get("key") != "contentUrl" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		fmt.Fprint(w, `<tsResponse><site id="site-abc" name="Finance" contentUrl="finance" dataAccelerationMode="disable"/></tsResponse>`)
	}))
	c.BindSession("site-abc", "user-xyz", "tok")

	site, err := c.GetSiteByContentURL(context.Background(), "finance")
	if err != nil {
		t.Fatalf("GetSiteByContentURL() error = %v", err)
	}
	if !site.AccelerationDisabled() {
		t.Errorf("expected disabled site, got %+v", site)
	}
}

func TestListProjects_Paged(t *testing.T) {
	calls := 0
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != apiPrefix+"/sites/site-abc/projects" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		switch r.URL.Query().Get("pageNumber") {
		case "1":
			fmt.Fprint(w, `<tsResponse><pagination pageNumber="1" pageSize="100" totalAvailable="3"/>
<projects><project id="a" name="Finance"/><project id="b" name="Reports" parentProjectId="a"/></projects></tsResponse>`)
		case "2":
			fmt.Fprint(w, `<tsResponse><pagination pageNumber="2" pageSize="100" totalAvailable="3"/>
<projects><project id="c" name="Marketing"/></projects></tsResponse>`)
		default:
			t.Errorf("unexpected page %s", r.URL.Query().Get("pageNumber"))
		}
	}))
	c.BindSession("site-abc", "user-xyz", "tok")

	projects, err := c.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 page requests, got %d", calls)
	}
	want := []models.Project{
		{ID: "a", Name: "Finance"},
		{ID: "b", Name: "Reports", ParentID: "a"},
		{ID: "c", Name: "Marketing"},
	}
	if len(projects) != len(want) {
		t.Fatalf("got %d projects, want %d", len(projects), len(want))
	}
	for i := range want {
		if projects[i] != want[i] {
			t.Errorf("project[%d] = %+v, want %+v", i, projects[i], want[i])
		}
	}
}

func TestListWorkbooksByName(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("filter"); got != "name:eq:Sales" {
			t.Errorf("filter = %q", got)
		}
		fmt.Fprint(w, `<tsResponse><pagination pageNumber="1" pageSize="100" totalAvailable="1"/>
<workbooks><workbook id="wb-1" name="Sales"><project id="a" name="Finance"/>
<dataAccelerationConfig accelerationEnabled="true" lastUpdatedAt="2026-10-01T12:00:00Z" accelerationStatus="Accelerated"/>
</workbook></workbooks></tsResponse>`)
	}))
	c.BindSession("site-abc", "user-xyz", "tok")

	workbooks, err := c.ListWorkbooksByName(context.Background(), "Sales")
	if err != nil {
		t.Fatalf("ListWorkbooksByName() error = %v", err)
	}
	if len(workbooks) != 1 {
		t.Fatalf("got %d workbooks", len(workbooks))
	}
	wb := workbooks[0]
	if wb.ID != "wb-1" || wb.ProjectID != "a" || !wb.Acceleration.Enabled {
		t.Errorf("unexpected workbook: %+v", wb)
	}
	if wb.Acceleration.LastUpdatedAt == nil || wb.Acceleration.Status != "Accelerated" {
		t.Errorf("unexpected acceleration: %+v", wb.Acceleration)
	}
}

func TestUpdateWorkbook_OmitsName(t *testing.T) {
	var body string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != apiPrefix+"/sites/site-abc/workbooks/wb-1" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		fmt.Fprint(w, `<tsResponse><workbook id="wb-1"/></tsResponse>`)
	}))
	c.BindSession("site-abc", "user-xyz", "tok")

	wb := &models.Workbook{
		ID:           "wb-1",
		Name:         "Sales",
		Acceleration: models.AccelerationConfig{Enabled: true, AccelerateNow: true},
		Views: []models.View{
			{ID: "v-1", Name: "Overview", Acceleration: models.AccelerationConfig{Enabled: true}},
		},
	}
	if err := c.UpdateWorkbook(context.Background(), wb); err != nil {
		t.Fatalf("UpdateWorkbook() error = %v", err)
	}

	if strings.Contains(body, "Sales") {
		t.Errorf("update must not carry the workbook name: %s", body)
	}
	for _, want := range []string{`accelerationEnabled="true"`, `accelerateNow="true"`, `<view id="v-1">`} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %s: %s", want, body)
		}
	}
}

func TestUpdateWorkbook_NoViewsWhenUnfiltered(t *testing.T) {
	var body string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
	}))
	c.BindSession("site-abc", "user-xyz", "tok")

	if err := c.UpdateWorkbook(context.Background(), &models.Workbook{ID: "wb-1"}); err != nil {
		t.Fatalf("UpdateWorkbook() error = %v", err)
	}
	if strings.Contains(body, "<views>") {
		t.Errorf("unexpected views element: %s", body)
	}
	if !strings.Contains(body, `accelerationEnabled="false"`) {
		t.Errorf("disable should be explicit: %s", body)
	}
}

func TestNew_RequiresAddress(t *testing.T) {
	if _, err := New("  ", "", zerolog.Nop()); err == nil {
		t.Fatal("expected error for empty address")
	}
}

func TestNew_BadCertificate(t *testing.T) {
	if _, err := New("https://tableau", "/does/not/exist.pem", zerolog.Nop()); err == nil {
		t.Fatal("expected error for missing certificate")
	}
}
