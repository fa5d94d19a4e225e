package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/screen-seat-reservation/internal/booking"
	"github.com/iliyamo/screen-seat-reservation/internal/queue"
	"github.com/iliyamo/screen-seat-reservation/internal/service"
)

// CachePurger drops cached responses of one screen.
type CachePurger interface {
	Purge(ctx context.Context, screenName string) error
}

// ScreenHandler serves screen registration, reservations and availability.
type ScreenHandler struct {
	Catalog *booking.Catalog
	Engine  *booking.Engine
	Events  service.EventPublisher
	Cache   CachePurger // optional
	Log     *zap.Logger
}

// NewScreenHandler wires the handler.  A nil publisher drops events and a
// nil logger discards logs.
func NewScreenHandler(catalog *booking.Catalog, engine *booking.Engine, events service.EventPublisher, cache CachePurger, log *zap.Logger) *ScreenHandler {
	if catalog == nil || engine == nil {
		panic("nil dependency passed to NewScreenHandler")
	}
	if events == nil {
		events = service.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ScreenHandler{Catalog: catalog, Engine: engine, Events: events, Cache: cache, Log: log}
}

type rowInfo struct {
	NumberOfSeats int `json:"numberOfSeats"`
}

type registerScreenRequest struct {
	Name     *string            `json:"name"`
	SeatInfo map[string]rowInfo `json:"seatInfo"`
}

// RegisterScreen handles POST /screens.
//
//	{"name": "inox", "seatInfo": {"A": {"numberOfSeats": 10}}}
//
// A body without name or seatInfo is a bad request.  Anything the catalog
// rejects, a duplicate name included, is reported as a failure to add.
func (h *ScreenHandler) RegisterScreen(c echo.Context) error {
	var body registerScreenRequest
	if err := c.Bind(&body); err != nil || body.Name == nil || body.SeatInfo == nil {
		return respond(c, http.StatusBadRequest, msgBadRequest)
	}
	rows := make(map[string]int, len(body.SeatInfo))
	for label, info := range body.SeatInfo {
		rows[label] = info.NumberOfSeats
	}

	ctx := c.Request().Context()
	id, err := h.Catalog.RegisterScreen(ctx, *body.Name, rows)
	if err != nil {
		if booking.IsRejection(err) {
			h.Log.Info("screen rejected", zap.String("screen", *body.Name), zap.Error(err))
			return respond(c, http.StatusBadRequest, msgScreenFailed)
		}
		h.Log.Error("register screen", zap.String("screen", *body.Name), zap.Error(err))
		return internalError(c)
	}

	h.publish(ctx, queue.NewScreenRegistered(id, *body.Name, rows))
	return respond(c, http.StatusOK, msgScreenAdded)
}

type reserveRequest struct {
	Seats map[string][]int `json:"seats"`
}

// ReserveSeats handles POST /screens/:screenName/reserve.
//
//	{"seats": {"A": [1, 2], "B": [6]}}
//
// Every seat is reserved or none is.
func (h *ScreenHandler) ReserveSeats(c echo.Context) error {
	var body reserveRequest
	if err := c.Bind(&body); err != nil || body.Seats == nil {
		return respond(c, http.StatusBadRequest, msgBadRequest)
	}
	name := c.Param("screenName")
	ctx := c.Request().Context()

	id, err := h.Catalog.ResolveScreen(ctx, name)
	if err == nil {
		err = h.Engine.Reserve(ctx, id, body.Seats)
	}
	if err != nil {
		if booking.IsRejection(err) {
			h.Log.Info("reservation rejected", zap.String("screen", name), zap.Error(err))
			return respond(c, http.StatusBadRequest, msgCannotReserve)
		}
		h.Log.Error("reserve seats", zap.String("screen", name), zap.Error(err))
		return internalError(c)
	}

	if h.Cache != nil {
		_ = h.Cache.Purge(context.WithoutCancel(ctx), name)
	}
	h.publish(ctx, queue.NewSeatsReserved(id, name, body.Seats))
	return respond(c, http.StatusOK, msgSeatsReserved)
}

// AvailableSeats handles GET /screens/:screenName/seats?status=unreserved
// and returns {"seats": {"A": [0, 3, ...]}}.  The status filter is
// mandatory and "unreserved" is the only accepted value.
func (h *ScreenHandler) AvailableSeats(c echo.Context) error {
	if c.QueryParam("status") != statusUnreservedArg {
		return respond(c, http.StatusBadRequest, msgBadStatusQuery)
	}
	name := c.Param("screenName")
	ctx := c.Request().Context()

	id, err := h.Catalog.ResolveScreen(ctx, name)
	var seats map[string][]int
	if err == nil {
		seats, err = h.Engine.GetAvailableSeats(ctx, id)
	}
	switch {
	case errors.Is(err, booking.ErrNotFound):
		return respond(c, http.StatusNotFound, msgScreenNotFound)
	case err != nil:
		h.Log.Error("available seats", zap.String("screen", name), zap.Error(err))
		return internalError(c)
	}
	return c.JSON(http.StatusOK, echo.Map{"seats": seats})
}

// publish sends ev without letting a broker problem reach the client.
func (h *ScreenHandler) publish(ctx context.Context, ev queue.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := h.Events.Publish(ctx, ev); err != nil {
		h.Log.Warn("event not published", zap.String("event_type", ev.Type), zap.String("event_id", ev.EventID), zap.Error(err))
	}
}
