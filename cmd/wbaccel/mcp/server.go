package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/neilberkman/wbaccel/internal/core/acceleration"
	"github.com/neilberkman/wbaccel/internal/core/db"
	"github.com/neilberkman/wbaccel/internal/core/locator"
	"github.com/neilberkman/wbaccel/internal/core/session"
	"github.com/neilberkman/wbaccel/internal/core/tableau"
	"github.com/rs/zerolog"
)

// LocateWorkbookArgs defines arguments for the locate_workbook tool
type LocateWorkbookArgs struct {
	Path  string `json:"path" jsonschema:"description=Workbook path such as Finance/Quarterly/Sales,required"`
	Sheet string `json:"sheet,omitempty" jsonschema:"description=Optional sheet (view) name"`
}

// SetAccelerationArgs defines arguments for the set_workbook_acceleration tool
type SetAccelerationArgs struct {
	Path          string `json:"path" jsonschema:"description=Workbook path such as Finance/Quarterly/Sales,required"`
	Sheet         string `json:"sheet,omitempty" jsonschema:"description=Optional sheet name; empty means every sheet"`
	Enable        *bool  `json:"enable" jsonschema:"description=true to enable, false to disable,required"`
	AccelerateNow bool   `json:"accelerate_now,omitempty" jsonschema:"description=Create acceleration views immediately"`
}

// ListChangesArgs defines arguments for the list_changes tool
type ListChangesArgs struct {
	Limit    int    `json:"limit,omitempty" jsonschema:"description=Max changes to return (default: 20)"`
	Workbook string `json:"workbook,omitempty" jsonschema:"description=Filter by workbook path substring"`
	After    string `json:"after_date,omitempty" jsonschema:"description=Only changes after this date (ISO 8601)"`
}

// WorkbookInfo is a located workbook
type WorkbookInfo struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Project      string      `json:"project"`
	Acceleration bool        `json:"acceleration_enabled"`
	Status       string      `json:"acceleration_status,omitempty"`
	Views        []SheetInfo `json:"sheets,omitempty"`
}

// SheetInfo is a located sheet
type SheetInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Acceleration bool   `json:"acceleration_enabled"`
}

// SessionInfo describes the session the server acts with
type SessionInfo struct {
	Server           string `json:"server"`
	SiteID           string `json:"site_id"`
	Site             string `json:"site"`
	AccelerationMode string `json:"acceleration_mode,omitempty"`
	State            string `json:"state"`
}

// ChangeInfo is one recorded change
type ChangeInfo struct {
	Workbook      string `json:"workbook"`
	Sheet         string `json:"sheet,omitempty"`
	Action        string `json:"action"`
	AccelerateNow bool   `json:"accelerate_now,omitempty"`
	Succeeded     bool   `json:"succeeded"`
	Error         string `json:"error,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// Resolver hands out an authenticated client
type Resolver interface {
	Resolve(ctx context.Context, req session.Request) (tableau.ServerClient, error)
	State() session.State
	UserID() string
}

// Options configures the MCP server
type Options struct {
	Sessions       Resolver
	Request        session.Request
	History        *db.DB // Optional
	ResultTemplate string
	Logger         zerolog.Logger
}

// tools holds what every handler needs. Calls are serialized: the session
// manager owns a single bound client.
type tools struct {
	mu   sync.Mutex
	opts Options
}

// StartServer starts the MCP server on stdio
func StartServer(opts Options) error {
	s := server.NewMCPServer(
		"wbaccel",
		"1.0.0",
	)
	register(s, &tools{opts: opts})
	return server.ServeStdio(s)
}

func register(s *server.MCPServer, t *tools) {
	locateTool := mcp.NewTool("locate_workbook",
		mcp.WithDescription("Resolve a workbook (and optionally one sheet) by project path and report its IDs and current Workbook Acceleration state. Changes nothing."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Workbook path: project names and the workbook name joined with '/'")),
		mcp.WithString("sheet",
			mcp.Description("Optional sheet (view) name")),
	)
	s.AddTool(locateTool, t.locateWorkbook)

	setTool := mcp.NewTool("set_workbook_acceleration",
		mcp.WithDescription("Enable or disable Workbook Acceleration for a workbook, or for one of its sheets"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Workbook path: project names and the workbook name joined with '/'")),
		mcp.WithString("sheet",
			mcp.Description("Optional sheet name; omitted means every sheet")),
		mcp.WithBoolean("enable",
			mcp.Required(),
			mcp.Description("true to enable, false to disable")),
		mcp.WithBoolean("accelerate_now",
			mcp.Description("Create acceleration views immediately (enable only)")),
	)
	s.AddTool(setTool, t.setAcceleration)

	statusTool := mcp.NewTool("session_status",
		mcp.WithDescription("Show the server and site the tools act on, and whether the site allows Workbook Acceleration"),
	)
	s.AddTool(statusTool, t.sessionStatus)

	changesTool := mcp.NewTool("list_changes",
		mcp.WithDescription("List recorded acceleration changes, newest first"),
		mcp.WithNumber("limit",
			mcp.Description("Max changes to return (default: 20)")),
		mcp.WithString("workbook",
			mcp.Description("Filter by workbook path substring")),
		mcp.WithString("after_date",
			mcp.Description("Only changes after this date (ISO 8601 format, e.g. '2026-01-01')")),
	)
	s.AddTool(changesTool, t.listChanges)
}

func decodeArgs(request mcp.CallToolRequest, v interface{}) error {
	argsBytes, _ := json.Marshal(request.Params.Arguments)
	return json.Unmarshal(argsBytes, v)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (t *tools) connect(ctx context.Context) (tableau.ServerClient, error) {
	client, err := t.opts.Sessions.Resolve(ctx, t.opts.Request)
	if errors.Is(err, session.ErrMissingCredentials) {
		return nil, fmt.Errorf("no usable session: run 'wbaccel login' first")
	}
	return client, err
}

func (t *tools) locateWorkbook(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args LocateWorkbookArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	client, err := t.connect(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := locator.Find(ctx, client, args.Path, args.Sheet)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(toWorkbookInfo(res))
}

func (t *tools) setAcceleration(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args SetAccelerationArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if args.Path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}
	// Absent must not read as false: that would silently disable
	if args.Enable == nil {
		return mcp.NewToolResultError("enable is required"), nil
	}
	enable := *args.Enable

	t.mu.Lock()
	defer t.mu.Unlock()

	client, err := t.connect(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var recorder acceleration.Recorder
	if t.opts.History != nil {
		recorder = t.opts.History
	}

	req := acceleration.Request{
		Path:          args.Path,
		Sheet:         args.Sheet,
		Enable:        enable,
		AccelerateNow: enable && args.AccelerateNow,
	}
	res, err := acceleration.NewUpdater(client, recorder, t.opts.Logger).
		WithUser(t.opts.Sessions.UserID()).
		Apply(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	msg, err := acceleration.RenderResult(t.opts.ResultTemplate, req, res)
	if err != nil {
		msg = "Workbook update succeeded."
	}
	return mcp.NewToolResultText(msg), nil
}

func (t *tools) sessionStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	client, err := t.connect(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	info := SessionInfo{
		Server: client.ServerAddress(),
		SiteID: client.SiteID(),
		State:  t.opts.Sessions.State().String(),
	}
	if site, err := client.GetSiteByID(ctx, client.SiteID()); err == nil {
		info.Site = site.ContentURL
		info.AccelerationMode = site.DataAccelerationMode
	}
	return jsonResult(info)
}

func (t *tools) listChanges(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.opts.History == nil {
		return mcp.NewToolResultError("change history is not available"), nil
	}

	var args ListChangesArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	filter := db.ChangeFilter{WorkbookPath: args.Workbook, Limit: args.Limit}
	if filter.Limit == 0 {
		filter.Limit = 20
	}
	if args.After != "" {
		after, err := parseISODate(args.After)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid after_date: %v", err)), nil
		}
		filter.Since = after
	}

	changes, err := t.opts.History.ListChanges(filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list changes: %v", err)), nil
	}

	results := []ChangeInfo{}
	for _, c := range changes {
		results = append(results, ChangeInfo{
			Workbook:      c.WorkbookPath,
			Sheet:         c.Sheet,
			Action:        c.Action,
			AccelerateNow: c.AccelerateNow,
			Succeeded:     c.Succeeded,
			Error:         c.Error,
			CreatedAt:     c.CreatedAt.Format(time.RFC3339),
		})
	}
	return jsonResult(results)
}

func parseISODate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", s, time.Local)
}

func toWorkbookInfo(res *locator.Result) WorkbookInfo {
	info := WorkbookInfo{
		ID:           res.Workbook.ID,
		Name:         res.Workbook.Name,
		Project:      res.ProjectPath,
		Acceleration: res.Workbook.Acceleration.Enabled,
		Status:       res.Workbook.Acceleration.Status,
	}
	for _, v := range res.Workbook.Views {
		info.Views = append(info.Views, SheetInfo{ID: v.ID, Name: v.Name, Acceleration: v.Acceleration.Enabled})
	}
	return info
}
