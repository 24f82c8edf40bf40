package cli

import (
	"context"
	"fmt"

	"github.com/neilberkman/wbaccel/cmd/wbaccel/mcp"
	"github.com/neilberkman/wbaccel/internal/core/credentials"
	"github.com/neilberkman/wbaccel/internal/core/db"
	"github.com/neilberkman/wbaccel/internal/core/session"
	"github.com/neilberkman/wbaccel/internal/core/tableau"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Start MCP server for agent integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio that lets an agent
locate workbooks and change their Workbook Acceleration settings.

The server never prompts: sign in with 'wbaccel login' first, or pass
--server, --site, --username and --password.

Example client configuration:
  {
    "mcpServers": {
      "wbaccel": {
        "command": "wbaccel",
        "args": ["serve-mcp"]
      }
    }
  }
`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}

	// stdio belongs to the protocol: no prompt, and no process-wide cache
	store := credentials.NewStore(e.cfg.TokenFile, &credentials.MemoryCache{}, e.logger)
	manager := session.NewManager(store, tableau.NewConnector(e.logger), nil, e.logger)

	// A login or logout in another terminal replaces the token file
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go func() {
		if err := store.Watch(ctx); err != nil {
			e.logger.Warn().Err(err).Msg("token file watcher stopped")
		}
	}()

	opts := mcp.Options{
		Sessions:       manager,
		Request:        e.request(),
		ResultTemplate: e.cfg.ResultTemplate,
		Logger:         e.logger,
	}

	history, err := db.New(e.cfg.HistoryDB)
	if err != nil {
		e.logger.Warn().Err(err).Msg("change history unavailable")
	} else {
		defer func() {
			_ = history.Close()
		}()
		opts.History = history
	}

	if err := mcp.StartServer(opts); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
