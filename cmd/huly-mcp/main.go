// huly-mcp bridges MCP tool calls onto a Huly deployment: issue and
// document mutations go straight into the backing store the way the
// platform's own transactor writes them, reads go over the realtime
// socket session.
//
// Configuration is environment-only; see internal/config. The server
// speaks MCP over stdio, so all logging goes to stderr.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	hulyserver "github.com/hha-nguyen/huly-mcp-server/internal/server"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	log.SetOutput(os.Stderr)

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("huly-mcp v%s\n", hulyserver.Version)
			return
		case "--help", "-h", "help":
			printUsage()
			return
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	s, cleanup, err := hulyserver.New(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	return server.ServeStdio(s)
}

func printUsage() {
	fmt.Println(`huly-mcp - MCP server for Huly issue tracking

Usage:
  huly-mcp            Start the MCP server (stdio transport)
  huly-mcp version    Print the version

Environment:
  HULY_URL                  Deployment front URL (default https://huly.app)
  HULY_EMAIL                Account email (required)
  HULY_PASSWORD             Account password (required)
  HULY_WORKSPACE            Workspace url segment
  HULY_DB_URL               Postgres URL of the backing store
  HULY_REDIS_URL            Optional Redis URL for the project cache
  HULY_CREATORS             JSON map of display name -> social identity id
  HULY_ASSIGNEES            JSON map of display name -> person ref
  HULY_FALLBACK_PERSON_ID   Acting identity when the handshake has none`)
}
