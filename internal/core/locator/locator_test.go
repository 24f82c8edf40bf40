package locator

import (
	"context"
	"errors"
	"testing"

	"github.com/neilberkman/wbaccel/internal/core/hierarchy"
	"github.com/neilberkman/wbaccel/internal/core/models"
	"github.com/neilberkman/wbaccel/internal/core/tableau/tableautest"
)

func newCatalog(t *testing.T) *tableautest.Fake {
	t.Helper()
	server := tableautest.NewServer("http://tableau")
	server.Projects = []models.Project{
		{ID: "p-fin", Name: "Finance"},
		{ID: "p-mkt", Name: "Marketing"},
		{ID: "p-q1", Name: "Q1", ParentID: "p-fin"},
	}
	server.Workbooks = []*models.Workbook{
		{ID: "wb-mkt-sales", Name: "Sales", ProjectID: "p-mkt"},
		{ID: "wb-fin-sales", Name: "Sales", ProjectID: "p-fin"},
		{ID: "wb-q1-sales", Name: "Sales", ProjectID: "p-q1"},
		{ID: "wb-fin-lower", Name: "sales", ProjectID: "p-fin"},
	}
	server.Views["wb-fin-sales"] = []models.View{
		{ID: "v-overview", Name: "Overview"},
		{ID: "v-detail", Name: "Detail", Acceleration: models.AccelerationConfig{Enabled: true}},
	}
	server.ValidTokens["tok"] = true

	return server.Client(models.SessionRecord{AuthToken: "tok", SiteID: "site-default", UserID: "u", ServerURL: "http://tableau"})
}

func TestParsePath(t *testing.T) {
	tests := []struct {
		raw         string
		wantProject string
		wantName    string
	}{
		{"Finance/Sales", "Finance", "Sales"},
		{"A/B/C/Report", "A/B/C", "Report"},
		{"Sales", "", "Sales"},
		{"Finance/Sales \n", "Finance", "Sales"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := ParsePath(tt.raw)
			if got.Project != tt.wantProject || got.Workbook != tt.wantName {
				t.Errorf("ParsePath(%q) = %+v", tt.raw, got)
			}
		})
	}
}

func TestLocate_DisambiguatesByProjectPath(t *testing.T) {
	tests := []struct {
		path   string
		wantID string
	}{
		{"Finance/Sales", "wb-fin-sales"},
		{"Marketing/Sales", "wb-mkt-sales"},
		{"Finance/Q1/Sales", "wb-q1-sales"},
		{"Finance/sales", "wb-fin-lower"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			res, err := Locate(context.Background(), newCatalog(t), tt.path, "", models.AccelerationConfig{Enabled: true})
			if err != nil {
				t.Fatalf("Locate() error = %v", err)
			}
			if res.Workbook.ID != tt.wantID {
				t.Errorf("Locate(%q) = %s, want %s", tt.path, res.Workbook.ID, tt.wantID)
			}
		})
	}
}

func TestLocate_NotFound(t *testing.T) {
	paths := []string{
		"NoSuchProject/Sales",
		"Sales",
		"Finance/Missing",
		"Q1/Sales",
		"",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			_, err := Locate(context.Background(), newCatalog(t), path, "", models.AccelerationConfig{})
			if !errors.Is(err, ErrWorkbookNotFound) {
				t.Errorf("Locate(%q) error = %v, want ErrWorkbookNotFound", path, err)
			}
		})
	}
}

func TestLocate_AppliesTarget(t *testing.T) {
	target := models.AccelerationConfig{Enabled: true, AccelerateNow: true}

	res, err := Locate(context.Background(), newCatalog(t), "Finance/Sales", "", target)
	if err != nil {
		t.Fatal(err)
	}
	if res.Workbook.Acceleration != target {
		t.Errorf("Acceleration = %+v, want %+v", res.Workbook.Acceleration, target)
	}
	if len(res.Workbook.Views) != 0 {
		t.Errorf("views should not be fetched without a sheet, got %d", len(res.Workbook.Views))
	}
	if res.ProjectPath != "Finance" || res.Sheet != "" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestLocate_Sheet(t *testing.T) {
	res, err := Locate(context.Background(), newCatalog(t), "Finance/Sales", "Detail", models.AccelerationConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if len(res.Workbook.Views) != 1 {
		t.Fatalf("views = %d, want 1", len(res.Workbook.Views))
	}
	view := res.Workbook.Views[0]
	if view.ID != "v-detail" || view.Acceleration.Enabled {
		t.Errorf("view = %+v, want v-detail disabled", view)
	}
	if res.Sheet != "Detail" {
		t.Errorf("Sheet = %q", res.Sheet)
	}
}

func TestLocate_SheetNotFound(t *testing.T) {
	for _, sheet := range []string{"Nope", "overview"} {
		t.Run(sheet, func(t *testing.T) {
			_, err := Locate(context.Background(), newCatalog(t), "Finance/Sales", sheet, models.AccelerationConfig{Enabled: true})
			if !errors.Is(err, ErrSheetNotFound) {
				t.Errorf("error = %v, want ErrSheetNotFound", err)
			}
		})
	}
}

func TestLocate_CorruptHierarchy(t *testing.T) {
	server := tableautest.NewServer("http://tableau")
	server.Projects = []models.Project{
		{ID: "a", Name: "A", ParentID: "b"},
		{ID: "b", Name: "B", ParentID: "a"},
	}
	server.Workbooks = []*models.Workbook{{ID: "wb", Name: "Sales", ProjectID: "a"}}
	server.ValidTokens["tok"] = true
	catalog := server.Client(models.SessionRecord{AuthToken: "tok", SiteID: "s", UserID: "u", ServerURL: "http://tableau"})

	_, err := Locate(context.Background(), catalog, "A/Sales", "", models.AccelerationConfig{})
	if !errors.Is(err, hierarchy.ErrCorruptHierarchy) {
		t.Errorf("error = %v, want ErrCorruptHierarchy", err)
	}
}

func TestLocate_ListingFailure(t *testing.T) {
	server := tableautest.NewServer("http://tableau")
	catalog := server.Client(models.SessionRecord{AuthToken: "expired", SiteID: "s", UserID: "u", ServerURL: "http://tableau"})

	_, err := Locate(context.Background(), catalog, "Finance/Sales", "", models.AccelerationConfig{})
	if err == nil || errors.Is(err, ErrWorkbookNotFound) {
		t.Errorf("error = %v, want listing failure", err)
	}
}

func TestFind_LeavesServerState(t *testing.T) {
	res, err := Find(context.Background(), newCatalog(t), "Finance/Sales", "Detail")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if res.Workbook.Acceleration.Enabled {
		t.Error("workbook acceleration should be as listed")
	}
	if len(res.Workbook.Views) != 1 || !res.Workbook.Views[0].Acceleration.Enabled {
		t.Errorf("views = %+v, want Detail still enabled", res.Workbook.Views)
	}
}
