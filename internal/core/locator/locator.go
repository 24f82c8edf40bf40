// Package locator resolves human-readable workbook paths against the
// server's project hierarchy.
package locator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neilberkman/wbaccel/internal/core/hierarchy"
	"github.com/neilberkman/wbaccel/internal/core/models"
)

var (
	// ErrWorkbookNotFound means no workbook lives at the requested path
	ErrWorkbookNotFound = errors.New("workbook not found")
	// ErrSheetNotFound means the workbook exists but has no such sheet
	ErrSheetNotFound = errors.New("sheet not found")
)

// Catalog is the read side of the server the locator needs
type Catalog interface {
	ListProjects(ctx context.Context) ([]models.Project, error)
	ListWorkbooksByName(ctx context.Context, name string) ([]*models.Workbook, error)
	ListViews(ctx context.Context, workbookID string) ([]models.View, error)
}

// Path is a parsed "project/sub/.../workbook" reference
type Path struct {
	Project  string // Empty for a workbook at root level
	Workbook string
}

// ParsePath splits raw on the separator; the last segment is the workbook
func ParsePath(raw string) Path {
	segments := strings.Split(strings.TrimSpace(raw), hierarchy.Separator)
	last := len(segments) - 1
	return Path{
		Project:  strings.Join(segments[:last], hierarchy.Separator),
		Workbook: segments[last],
	}
}

func (p Path) String() string {
	if p.Project == "" {
		return p.Workbook
	}
	return p.Project + hierarchy.Separator + p.Workbook
}

// Result is a located workbook ready to be pushed back to the server
type Result struct {
	Workbook    *models.Workbook
	ProjectPath string
	Sheet       string
}

// Locate finds the workbook at rawPath and applies target to it. When sheet
// is non-empty only that view is kept, with its enabled flag set from
// target; otherwise the views are left as listed.
func Locate(ctx context.Context, catalog Catalog, rawPath, sheet string, target models.AccelerationConfig) (*Result, error) {
	res, err := Find(ctx, catalog, rawPath, sheet)
	if err != nil {
		return nil, err
	}

	res.Workbook.Acceleration = target
	for i := range res.Workbook.Views {
		if res.Workbook.Views[i].Name == sheet {
			res.Workbook.Views[i].Acceleration.Enabled = target.Enabled
		}
	}
	return res, nil
}

// Find resolves rawPath (and sheet, when non-empty) without changing the
// acceleration settings the server reported.
func Find(ctx context.Context, catalog Catalog, rawPath, sheet string) (*Result, error) {
	path := ParsePath(rawPath)
	if path.Workbook == "" {
		return nil, fmt.Errorf("%w: %q has no workbook name", ErrWorkbookNotFound, rawPath)
	}

	projects, err := catalog.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	tree := hierarchy.Build(projects)

	candidates, err := catalog.ListWorkbooksByName(ctx, path.Workbook)
	if err != nil {
		return nil, err
	}

	wb, err := match(tree, candidates, path)
	if err != nil {
		return nil, err
	}

	if sheet == "" {
		return &Result{Workbook: wb, ProjectPath: path.Project}, nil
	}

	views, err := catalog.ListViews(ctx, wb.ID)
	if err != nil {
		return nil, err
	}
	wb.Views = nil
	for _, v := range views {
		if v.Name == sheet {
			wb.Views = append(wb.Views, v)
			break
		}
	}
	if len(wb.Views) == 0 {
		return nil, fmt.Errorf("%w: %q in %s", ErrSheetNotFound, sheet, path)
	}

	return &Result{Workbook: wb, ProjectPath: path.Project, Sheet: sheet}, nil
}

// match returns the first candidate, in listing order, whose name and
// project path are exactly the requested ones
func match(tree *hierarchy.Tree, candidates []*models.Workbook, path Path) (*models.Workbook, error) {
	for _, wb := range candidates {
		if wb.Name != path.Workbook {
			continue
		}
		projectPath, err := tree.PathOf(wb.ProjectID)
		if err != nil {
			return nil, err
		}
		if projectPath == path.Project {
			return wb, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrWorkbookNotFound, path)
}
