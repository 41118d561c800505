package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Builder-Lawyers/store-builder/internal/infra/auth"
	"github.com/Builder-Lawyers/store-builder/internal/infra/config"
	"github.com/Builder-Lawyers/store-builder/internal/presentation/rest"
	"github.com/Builder-Lawyers/store-builder/internal/presentation/router"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the admin API and the generated sites",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(ctx context.Context) error {
	svc, err := wire(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	serverConfig := config.NewServerConfig()
	progressConfig := config.NewProgressConfig()
	if err = svc.collection.Progress.Start(progressConfig.Sweep); err != nil {
		return err
	}

	var middlewares []fiber.Handler
	authConfig := auth.NewConfig()
	if authConfig.Disabled {
		slog.Warn("admin api authentication is disabled")
	} else {
		verifier, err := auth.NewVerifier(ctx, *authConfig)
		if err != nil {
			return fmt.Errorf("can't set up auth, %v", err)
		}
		middlewares = append(middlewares, rest.Authenticate(verifier))
	}

	app := fiber.New(fiber.Config{
		IdleTimeout:           5 * time.Second,
		DisableStartupMessage: true,
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: serverConfig.CORSOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(router.New(config.NewRouterConfig(svc.sites)).Handler())
	rest.RegisterHandlers(app, rest.NewServer(svc.collection), middlewares...)

	listenErr := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", serverConfig.Addr)
		listenErr <- app.Listen(serverConfig.Addr)
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)

	select {
	case err = <-listenErr:
		return fmt.Errorf("server stopped, %v", err)
	case <-c:
	}
	slog.Info("gracefully shutting down")
	if err = app.ShutdownWithTimeout(serverConfig.ShutdownTimeout); err != nil {
		slog.Error("shutdown failed", "err", err)
	}
	slog.Info("server was successfully shutdown")
	return nil
}
