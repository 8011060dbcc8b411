package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vikashloomba/mcp-query-router/pkg/mcpmgr"
	"github.com/vikashloomba/mcp-query-router/pkg/oracle"
	"github.com/vikashloomba/mcp-query-router/pkg/router"
	"github.com/vikashloomba/mcp-query-router/pkg/settings"
)

type app struct {
	logger  *slog.Logger
	manager *mcpmgr.Manager
	router  *router.Router
}

// bootstrap resolves settings, connects every configured server and wires the
// router. A missing or malformed server configuration is logged and leaves
// the catalog empty.
func bootstrap(ctx context.Context, flags *rootFlags, logOut io.Writer) (*app, error) {
	s, err := settings.Load(flags.envFile)
	if err != nil {
		return nil, err
	}
	if flags.configPath != "" {
		s.ConfigPath = flags.configPath
	}
	logger := s.NewLogger(logOut)
	slog.SetDefault(logger)

	oracleClient, err := oracle.NewFromConfig(s.OracleConfig(logger))
	if err != nil {
		return nil, fmt.Errorf("configure oracle: %w", err)
	}

	descriptors, err := mcpmgr.LoadServerConfig(s.ConfigPath)
	if err != nil {
		logger.Error("server configuration problem", "path", s.ConfigPath, "error", err)
	}
	manager := mcpmgr.NewManager(&mcpmgr.ManagerOptions{
		Logger:     logger,
		LogJSONRPC: flags.logJSONRPC,
	})
	if err := manager.Connect(ctx, descriptors); err != nil {
		logger.Warn("some servers failed to connect", "error", err)
	}

	r, err := router.New(manager.Catalog(), oracleClient, manager, &router.Options{Logger: logger})
	if err != nil {
		_ = manager.Cleanup(context.Background())
		return nil, err
	}
	return &app{logger: logger, manager: manager, router: r}, nil
}

func (a *app) close() {
	if err := a.manager.Cleanup(context.Background()); err != nil {
		a.logger.Warn("cleanup finished with errors", "error", err)
	}
}
