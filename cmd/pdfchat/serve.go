package main

import (
	"github.com/spf13/cobra"

	"github.com/markdave123-py/pdfchat/internal/app"
	"github.com/markdave123-py/pdfchat/internal/config"
	"github.com/markdave123-py/pdfchat/internal/pkg/logger"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and web UI",
		Long:  "Starts the session registry, the expiry sweeper and the HTTP server. Configuration is read from the environment and .env.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, port)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")
	return cmd
}

func runServe(cmd *cobra.Command, port string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if port != "" {
		cfg.Port = port
	}
	log := logger.NewZapLogger(cfg.LogFilePath, cfg.IsProduction())

	application, err := app.NewApp(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer application.Close()

	return application.Run(cmd.Context())
}
