// routes.go - route registration
package api

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/health", h.HandleHealth)

	e.GET("/api/protocols", h.HandleProtocols)

	capture := e.Group("/api/capture")
	capture.GET("", h.HandleGetCapture)
	capture.PUT("", h.HandleLoadCapture)

	decoders := e.Group("/api/decoders")
	decoders.GET("", h.HandleListDecoders)
	decoders.POST("", h.HandleCreateDecoder)
	decoders.GET("/:id", h.HandleGetDecoder)
	decoders.PUT("/:id", h.HandleUpdateDecoder)
	decoders.DELETE("/:id", h.HandleDeleteDecoder)
	decoders.GET("/:id/states", h.HandleStates)

	e.POST("/api/decode", h.HandleDecode)
}

// SetupMiddleware configures error handling, panic recovery and request
// logging through log.
func SetupMiddleware(e *echo.Echo, log zerolog.Logger) {
	e.HTTPErrorHandler = ErrorHandler
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := log.Debug()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))
}

// New builds a configured Echo instance serving h.
func New(h *Handler, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadHeaderTimeout = 10 * time.Second
	SetupMiddleware(e, log)
	RegisterRoutes(e, h)
	return e
}
