package httpserver

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/angeeinstein/web-kiosk-screen/internal/domain"
	"github.com/angeeinstein/web-kiosk-screen/internal/platform/correlation"
	apperrors "github.com/angeeinstein/web-kiosk-screen/internal/platform/errors"
	"github.com/angeeinstein/web-kiosk-screen/internal/screen"
	"github.com/labstack/echo/v4"
)

func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := correlation.FromHeader(c.Request().Header.Get(correlation.HeaderName))
		c.Response().Header().Set(correlation.HeaderName, id)
		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// ErrorHandlingMiddleware renders errors returned by handlers as structured JSON.
// echo.HTTPErrors (404 routes, 405, body limits) are left to echo's default handler.
func ErrorHandlingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				return err
			}

			structuredErr := apperrors.AsStructuredError(err)
			logError(c, structuredErr)

			if err := c.JSON(structuredErr.HTTPStatus(), structuredErr.ToResponse()); err != nil {
				return fmt.Errorf("failed to write error response: %w", err)
			}
			return nil
		}
	}
}

func logError(c echo.Context, err *apperrors.Error) {
	ctx := c.Request().Context()
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}

	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	switch err.Type {
	case apperrors.TypeValidation, apperrors.TypeNotFound, apperrors.TypeTooLarge:
		slog.InfoContext(ctx, "Client error", attrs...)
	case apperrors.TypeRateLimited:
		slog.WarnContext(ctx, "Rate limited", attrs...)
	case apperrors.TypeUnavailable:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.WarnContext(ctx, "Service unavailable", attrs...)
	default:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Internal error", attrs...)
	}
}

// screenError maps hub errors to structured API errors.
func screenError(err error, screenID string) error {
	switch {
	case errors.Is(err, domain.ErrScreenNotFound):
		return apperrors.NotFoundError("screen not found").WithField("screen_id", screenID)
	case errors.Is(err, screen.ErrHubStopped):
		return apperrors.UnavailableError("screen hub unavailable", err)
	default:
		return apperrors.InternalError("screen operation failed", err).WithField("screen_id", screenID)
	}
}
