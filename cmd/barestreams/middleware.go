package main

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// corsMiddleware allows any Stremio client to call the manifest and
// stream endpoints cross-origin, the way the addon protocol requires.
func corsMiddleware() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET, OPTIONS",
		AllowHeaders: "Accept, Accept-Language, Accept-Encoding, Content-Type, Content-Language, Origin, X-Requested-With",
	})
}

func recoveryMiddleware() fiber.Handler {
	return recover.New()
}

// loggingMiddleware logs every handled request with its duration, the
// way the teacher's request logger does, minus the movie-name lookup
// (the stream handler itself logs the resolved title once per request).
func loggingMiddleware(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Info("handled request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Int64("durationMs", time.Since(start).Milliseconds()),
		)
		return err
	}
}
