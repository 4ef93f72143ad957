package mcp

import (
	"context"

	"outbreak-mcp/internal/config"
	"outbreak-mcp/internal/dataset"
	"outbreak-mcp/internal/epi"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// Server exposes the association engine and the dataset store as MCP tools.
type Server struct {
	server *sdk.Server
	store  *dataset.Store
	engine *epi.Engine

	dataPath            string
	defaultYates        bool
	enableMermaidCharts bool
}

// NewServer creates a new MCP server with every tool registered.
func NewServer(cfg *config.AppConfig, store *dataset.Store, engine *epi.Engine, version string) *Server {
	s := &Server{
		server: sdk.NewServer(&sdk.Implementation{
			Name:    "outbreak-mcp",
			Version: version,
		}, nil),
		store:               store,
		engine:              engine,
		dataPath:            cfg.DataPath,
		defaultYates:        cfg.YatesCorrection,
		enableMermaidCharts: cfg.EnableMermaidCharts,
	}
	s.registerTools()
	return s
}

// Serve runs the server over stdio until the client disconnects or ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	log.Info().Msg("Serving MCP over stdio")
	return s.server.Run(ctx, &sdk.StdioTransport{})
}
