// Package server wires the session, the store and the pipeline together
// and registers every tool on the MCP server. No business logic lives
// here, only construction order: handshake first, then the socket, then
// the store, so a failed login never opens a connection it cannot use.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/hha-nguyen/huly-mcp-server/internal/auth"
	"github.com/hha-nguyen/huly-mcp-server/internal/config"
	"github.com/hha-nguyen/huly-mcp-server/internal/identity"
	"github.com/hha-nguyen/huly-mcp-server/internal/pipeline"
	"github.com/hha-nguyen/huly-mcp-server/internal/project"
	"github.com/hha-nguyen/huly-mcp-server/internal/store"
	"github.com/hha-nguyen/huly-mcp-server/internal/tools"
	"github.com/hha-nguyen/huly-mcp-server/internal/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

func noop() {}

// New builds the fully wired MCP server. The returned cleanup function
// closes the socket, the store and the optional Redis tier; it is always
// non-nil and safe to call.
func New(ctx context.Context) (*server.MCPServer, func(), error) {
	cfg := config.Load()
	if cfg.Email == "" || cfg.Password == "" {
		return nil, noop, fmt.Errorf("HULY_EMAIL and HULY_PASSWORD must be set")
	}

	creators, err := identity.ParseTable(cfg.Creators)
	if err != nil {
		return nil, noop, fmt.Errorf("HULY_CREATORS: %w", err)
	}
	assignees, err := identity.ParseTable(cfg.Assignees)
	if err != nil {
		return nil, noop, fmt.Errorf("HULY_ASSIGNEES: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.LookupTimeout}
	handshake, err := transport.Login(ctx, httpClient, cfg.AccountsURL(), transport.Credentials{
		Email:     cfg.Email,
		Password:  cfg.Password,
		Workspace: cfg.Workspace,
	})
	if err != nil {
		return nil, noop, fmt.Errorf("login: %w", err)
	}

	// The workspace uuid and the session account ride in the token; a
	// token we cannot decode is not fatal, the pipeline probes instead.
	var workspaceID, account string
	if claims, err := auth.DecodeWorkspaceToken(handshake.WorkspaceToken); err != nil {
		log.Printf("server: workspace token not decodable, will probe the store: %v", err)
	} else {
		workspaceID = claims.Workspace
		account = claims.Account
	}
	if handshake.SocialID != "" {
		account = handshake.SocialID
	}

	socketURL, err := transport.SocketURL(cfg.BaseURL, handshake.WorkspaceToken)
	if err != nil {
		return nil, noop, fmt.Errorf("socket url: %w", err)
	}
	rt, err := transport.Dial(ctx, socketURL, cfg.CallTimeout)
	if err != nil {
		return nil, noop, fmt.Errorf("dial socket: %w", err)
	}

	pg, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		rt.Close()
		return nil, noop, fmt.Errorf("open store: %w", err)
	}

	cleanup := func() {
		rt.Close()
		if err := pg.Close(); err != nil {
			log.Printf("server: closing store: %v", err)
		}
	}

	projects := project.NewCache(rt, pg)
	if cfg.RedisURL != "" {
		remote, err := project.NewRedisCache(cfg.RedisURL, 0)
		if err != nil {
			log.Printf("server: redis cache unavailable, continuing without: %v", err)
		} else {
			projects = projects.WithRemote(remote)
			base := cleanup
			cleanup = func() {
				base()
				if err := remote.Close(); err != nil {
					log.Printf("server: closing redis: %v", err)
				}
			}
		}
	}

	uploader := &transport.MarkupUploader{
		BaseURL:        cfg.BaseURL,
		WorkspaceToken: handshake.WorkspaceToken,
	}

	svc := pipeline.New(pg, projects, rt, uploader,
		identity.NewResolver(creators, assignees),
		account, cfg.FallbackPersonID, workspaceID, log.Printf)

	s := server.NewMCPServer(
		"huly-mcp-server",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	registerTools(s, svc)
	return s, cleanup, nil
}

type tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

func registerTools(s *server.MCPServer, svc tools.Pipeline) {
	for _, t := range []tool{
		tools.NewListProjectsTool(svc),
		tools.NewListIssuesTool(svc),
		tools.NewCreateIssueTool(svc),
		tools.NewUpdateIssueTool(svc),
		tools.NewDeleteIssueTool(svc),
		tools.NewAddCommentTool(svc),
		tools.NewListCommentsTool(svc),
		tools.NewDeleteCommentTool(svc),
		tools.NewCreateDocumentTool(svc),
		tools.NewCreateLabelTool(svc),
	} {
		s.AddTool(t.Definition(), t.Handle)
	}
}
