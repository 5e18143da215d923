package bootstrap

import (
	"roomlink-backend/internal/config"
	"roomlink-backend/internal/interfaces/router"

	"github.com/gofiber/fiber/v2"
)

// New builds the app for the serverless entry point, which cannot import internal packages directly.
func New() (*fiber.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	config.SetupLogger(cfg)
	app, _, _, err := router.CreateApp(cfg)
	return app, err
}
