package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"cloudweave/internal/analytics"
	"cloudweave/internal/config"
	"cloudweave/internal/handlers"
	"cloudweave/internal/pipeline"
	"cloudweave/internal/scheduler"
	"cloudweave/internal/video"
	"cloudweave/internal/wms"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := os.MkdirAll(cfg.VideosDir, 0755); err != nil {
		log.Fatalf("failed to create videos directory: %v", err)
	}

	// Upstream WMS tile source shared by all runs.
	wmsClient := wms.NewClient(cfg.WMSOptions())

	// Interpolation collaborator, or plain timelapse encoding when no
	// model is configured.
	var interp video.Interpolator
	if cfg.InterpScript != "" {
		interp = &video.RIFE{
			Python:   cfg.PythonBin,
			Script:   cfg.InterpScript,
			ModelDir: cfg.ModelDir,
			Timeout:  cfg.InterpTimeout,
		}
		log.Printf("Interpolation model: %s", cfg.InterpScript)
	} else {
		interp = video.NewTimelapse(cfg.FrameRate)
		log.Printf("No interpolation model configured, using timelapse encoder")
	}

	tracker := analytics.New(cfg.PostHogAPIKey, cfg.PostHogEndpoint)
	defer tracker.Close()

	pipe := pipeline.New(pipeline.Config{
		Fetcher:      wmsClient,
		Interpolator: interp,
		VideosDir:    cfg.VideosDir,
		Cadence:      cfg.Cadence,
		TrackEvent:   tracker.Track,
	})

	// Artifact retention sweeper.
	janitor := scheduler.New(cfg.VideosDir, cfg.VideoTTL, cfg.SweepInterval)
	if err := janitor.Start(); err != nil {
		log.Fatalf("failed to start janitor: %v", err)
	}
	defer janitor.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "cloudweave",
		DisableStartupMessage: true,
		// No WriteTimeout: progress streams stay open for the whole run.
		ReadTimeout: 10 * time.Second,
		JSONEncoder: gojson.Marshal,
		JSONDecoder: gojson.Unmarshal,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	handlers.RegisterRoutes(app, pipe, cfg)

	go func() {
		log.Printf("cloudweave listening on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
