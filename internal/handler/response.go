package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Response messages.  Clients match on these strings, so they must not
// change.
const (
	msgBadRequest       = "Bad Request"
	msgBadStatusQuery   = "Bad request"
	msgScreenAdded      = "Screen details successfully added"
	msgScreenFailed     = "Failure to add screen details.This may occur due to duplicate entry of screen name"
	msgSeatsReserved    = "Seats successfully reserved"
	msgCannotReserve    = "Cannot reserve specified seats!"
	msgScreenNotFound   = "Screen not found"
	msgInternalError    = "Internal Server Error"
	statusUnreservedArg = "unreserved"
)

// respond writes the {"status", "message"} body every route uses.  The
// HTTP status always equals the status field.
func respond(c echo.Context, status int, message string) error {
	return c.JSON(status, echo.Map{"status": status, "message": message})
}

func internalError(c echo.Context) error {
	return respond(c, http.StatusInternalServerError, msgInternalError)
}

// ErrorHandler replaces echo's default so that unmatched routes, panics
// caught by Recover and any error a handler returns still produce the
// status/message body.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := http.StatusInternalServerError
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
		}
		message := http.StatusText(status)
		if status >= http.StatusInternalServerError {
			log.Error("unhandled error", zap.String("uri", c.Request().RequestURI), zap.Error(err))
			message = msgInternalError
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = respond(c, status, message)
		}
		if err != nil {
			log.Warn("write error response", zap.Error(err))
		}
	}
}
