// Package router registers the HTTP routes of the booking API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/screen-seat-reservation/internal/handler"
)

// Middlewares groups the optional per-route middleware.  Nil entries are
// skipped.
type Middlewares struct {
	// WriteLimit guards the routes that change state.
	WriteLimit echo.MiddlewareFunc
	// ReadCache fronts the availability query.
	ReadCache echo.MiddlewareFunc
}

// RegisterRoutes maps every route of the API onto e.
func RegisterRoutes(e *echo.Echo, h *handler.ScreenHandler, mw Middlewares) {
	e.GET("/", handler.Welcome)
	e.GET("/healthz", handler.Health)

	e.POST("/screens", h.RegisterScreen, compact(mw.WriteLimit)...)
	e.POST("/screens/:screenName/reserve", h.ReserveSeats, compact(mw.WriteLimit)...)
	e.GET("/screens/:screenName/seats", h.AvailableSeats, compact(mw.ReadCache)...)
}

func compact(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mws))
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
