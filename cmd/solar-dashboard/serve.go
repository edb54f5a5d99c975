package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/solar-fits-dashboard/internal/api/http"
	"github.com/i474232898/solar-fits-dashboard/internal/scheduler"
	"github.com/i474232898/solar-fits-dashboard/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("port", "", "listen port (overrides PORT)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if p, _ := cmd.Flags().GetString("port"); p != "" {
		cfg.Port = p
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Sessions own their caches; cancelling ctx cancels every in-flight fetch.
	sessions := session.NewManager(ctx, newUpstreamClient(cfg), session.Options{
		FetchTimeout: cfg.FetchTimeout,
	})
	defer sessions.Close()

	// Scheduler that periodically evicts idle sessions.
	sched := scheduler.New(sessions, cfg.SweepInterval, cfg.SessionIdleTimeout)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "solar-fits-dashboard",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Long enough for ?wait=true on a slow fetch.
		WriteTimeout: cfg.FetchTimeout + 10*time.Second,
		ErrorHandler: httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  "solar-fits-dashboard",
			"sessions": sessions.Len(),
		})
	})

	httpapi.RegisterRoutes(app, sessions)

	go func() {
		log.Printf("INFO: listening on :%s (upstream %s)", cfg.Port, cfg.UpstreamBaseURL)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
	return nil
}
