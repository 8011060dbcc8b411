package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mcpgateway "github.com/vikashloomba/mcp-query-router/pkg/mcp-gateway"
)

type serveFlags struct {
	addr           string
	path           string
	allowedOrigins []string
	jsonResponse   bool
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	sf := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the router as a Streamable HTTP MCP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			gateway, err := mcpgateway.NewGateway(a.router, a.manager, sf.options(a))
			if err != nil {
				return err
			}
			if err := gateway.ListenAndServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sf.addr, "addr", ":8700", "Listen address")
	cmd.Flags().StringVar(&sf.path, "path", "/mcp", "HTTP path of the MCP endpoint")
	cmd.Flags().StringSliceVar(&sf.allowedOrigins, "allowed-origin", nil, "Origin allowed to call the endpoint from a browser (repeatable)")
	cmd.Flags().BoolVar(&sf.jsonResponse, "json-response", false, "Answer with application/json instead of event streams")
	return cmd
}

func (sf *serveFlags) options(a *app) *mcpgateway.Options {
	opts := &mcpgateway.Options{
		Addr:           sf.addr,
		Path:           sf.path,
		AllowedOrigins: sf.allowedOrigins,
		Logger:         a.logger,
	}
	opts.Streamable.JSONResponse = sf.jsonResponse
	return opts
}
