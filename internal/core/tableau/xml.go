package tableau

import (
	"encoding/xml"
	"time"

	"github.com/neilberkman/wbaccel/internal/core/models"
)

type tsRequest struct {
	XMLName     xml.Name        `xml:"tsRequest"`
	Credentials *xmlCredentials `xml:"credentials,omitempty"`
	Workbook    *xmlWorkbook    `xml:"workbook,omitempty"`
}

type tsResponse struct {
	XMLName     xml.Name        `xml:"tsResponse"`
	Error       *xmlError       `xml:"error"`
	Pagination  *xmlPagination  `xml:"pagination"`
	Credentials *xmlCredentials `xml:"credentials"`
	Site        *xmlSite        `xml:"site"`
	Projects    []xmlProject    `xml:"projects>project"`
	Workbooks   []xmlWorkbook   `xml:"workbooks>workbook"`
	Views       []xmlView       `xml:"views>view"`
}

type xmlError struct {
	Code    string `xml:"code,attr"`
	Summary string `xml:"summary"`
	Detail  string `xml:"detail"`
}

type xmlPagination struct {
	PageNumber     int `xml:"pageNumber,attr"`
	PageSize       int `xml:"pageSize,attr"`
	TotalAvailable int `xml:"totalAvailable,attr"`
}

type xmlCredentials struct {
	Name     string   `xml:"name,attr,omitempty"`
	Password string   `xml:"password,attr,omitempty"`
	Token    string   `xml:"token,attr,omitempty"`
	Site     *xmlSite `xml:"site"`
	User     *xmlUser `xml:"user,omitempty"`
}

type xmlSite struct {
	ID                   string `xml:"id,attr,omitempty"`
	Name                 string `xml:"name,attr,omitempty"`
	ContentURL           string `xml:"contentUrl,attr"`
	DataAccelerationMode string `xml:"dataAccelerationMode,attr,omitempty"`
}

type xmlUser struct {
	ID string `xml:"id,attr"`
}

type xmlProject struct {
	ID              string `xml:"id,attr"`
	Name            string `xml:"name,attr"`
	ParentProjectID string `xml:"parentProjectId,attr"`
}

type xmlAcceleration struct {
	Enabled       bool   `xml:"accelerationEnabled,attr"`
	AccelerateNow bool   `xml:"accelerateNow,attr,omitempty"`
	LastUpdatedAt string `xml:"lastUpdatedAt,attr,omitempty"`
	Status        string `xml:"accelerationStatus,attr,omitempty"`
}

type xmlProjectRef struct {
	ID string `xml:"id,attr"`
}

// xmlWorkbook never carries the name on update: the server would treat it
// as a rename.
type xmlWorkbook struct {
	ID           string           `xml:"id,attr,omitempty"`
	Name         string           `xml:"name,attr,omitempty"`
	Project      *xmlProjectRef   `xml:"project,omitempty"`
	Acceleration *xmlAcceleration `xml:"dataAccelerationConfig,omitempty"`
	Views        *xmlViewList     `xml:"views,omitempty"`
}

type xmlViewList struct {
	Views []xmlView `xml:"view"`
}

type xmlView struct {
	ID           string           `xml:"id,attr,omitempty"`
	Name         string           `xml:"name,attr,omitempty"`
	Acceleration *xmlAcceleration `xml:"dataAccelerationConfig,omitempty"`
}

func (a *xmlAcceleration) toModel() models.AccelerationConfig {
	if a == nil {
		return models.AccelerationConfig{}
	}
	cfg := models.AccelerationConfig{
		Enabled:       a.Enabled,
		AccelerateNow: a.AccelerateNow,
		Status:        a.Status,
	}
	if a.LastUpdatedAt != "" {
		if t, err := time.Parse(time.RFC3339, a.LastUpdatedAt); err == nil {
			cfg.LastUpdatedAt = &t
		}
	}
	return cfg
}

func (s *xmlSite) toModel() *models.Site {
	return &models.Site{
		ID:                   s.ID,
		Name:                 s.Name,
		ContentURL:           s.ContentURL,
		DataAccelerationMode: s.DataAccelerationMode,
	}
}

func (w xmlWorkbook) toModel() *models.Workbook {
	wb := &models.Workbook{
		ID:           w.ID,
		Name:         w.Name,
		Acceleration: w.Acceleration.toModel(),
	}
	if w.Project != nil {
		wb.ProjectID = w.Project.ID
	}
	return wb
}

func (v xmlView) toModel() models.View {
	return models.View{
		ID:           v.ID,
		Name:         v.Name,
		Acceleration: v.Acceleration.toModel(),
	}
}

// updateRequest builds the body for an acceleration update. Views are only
// present when the locator narrowed the workbook to a single sheet.
func updateRequest(wb *models.Workbook) tsRequest {
	body := &xmlWorkbook{
		Acceleration: &xmlAcceleration{
			Enabled:       wb.Acceleration.Enabled,
			AccelerateNow: wb.Acceleration.AccelerateNow,
		},
	}
	if len(wb.Views) > 0 {
		list := &xmlViewList{}
		for _, v := range wb.Views {
			list.Views = append(list.Views, xmlView{
				ID:           v.ID,
				Acceleration: &xmlAcceleration{Enabled: v.Acceleration.Enabled},
			})
		}
		body.Views = list
	}
	return tsRequest{Workbook: body}
}
