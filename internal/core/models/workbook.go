package models

import "time"

// DataAccelerationDisabled is the site mode that forbids workbook acceleration
const DataAccelerationDisabled = "disable"

// Project is a node of the server's project forest
type Project struct {
	ID       string
	Name     string
	ParentID string // Empty for top-level projects
}

// IsRoot reports whether the project has no parent
func (p Project) IsRoot() bool {
	return p.ParentID == ""
}

// AccelerationConfig is the workbook acceleration setting of a workbook or view
type AccelerationConfig struct {
	Enabled       bool
	AccelerateNow bool
	LastUpdatedAt *time.Time
	Status        string
}

// View is a single sheet of a workbook
type View struct {
	ID           string
	Name         string
	Acceleration AccelerationConfig
}

// Workbook is a workbook handle as returned by the server and mutated by the locator
type Workbook struct {
	ID           string
	Name         string
	ProjectID    string
	Acceleration AccelerationConfig
	Views        []View
}

// Site carries the site attributes the tool cares about
type Site struct {
	ID                   string
	Name                 string
	ContentURL           string
	DataAccelerationMode string
}

// AccelerationDisabled reports whether the site forbids workbook acceleration
func (s *Site) AccelerationDisabled() bool {
	return s.DataAccelerationMode == DataAccelerationDisabled
}
