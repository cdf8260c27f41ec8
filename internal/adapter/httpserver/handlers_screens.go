package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/angeeinstein/web-kiosk-screen/internal/domain"
	apperrors "github.com/angeeinstein/web-kiosk-screen/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

const maxLayoutBytes = 1 << 20

type renameRequest struct {
	Name *string `json:"name"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type layoutResponse struct {
	Success   bool `json:"success"`
	Delivered bool `json:"delivered"`
}

func (s *Server) registerScreenRoutes() {
	api := s.echo.Group("/api", s.apiRateLimiter())
	api.GET("/screens", s.handleListScreens)
	api.GET("/screens/:id", s.handleGetScreen)
	api.PUT("/screens/:id", s.handleUpdateScreen)
	api.DELETE("/screens/:id", s.handleDeleteScreen)
	api.GET("/screens/:id/layout", s.handleGetLayout)
	api.PUT("/screens/:id/layout", s.handlePutLayout)
}

func (s *Server) handleListScreens(c echo.Context) error {
	screens, err := s.screens.List()
	if err != nil {
		return screenError(err, "")
	}
	if err := c.JSON(http.StatusOK, screens); err != nil {
		return fmt.Errorf("failed to write screens response: %w", err)
	}
	return nil
}

func (s *Server) handleGetScreen(c echo.Context) error {
	id := c.Param("id")
	detail, err := s.screens.Get(id)
	if err != nil {
		return screenError(err, id)
	}
	if err := c.JSON(http.StatusOK, detail); err != nil {
		return fmt.Errorf("failed to write screen response: %w", err)
	}
	return nil
}

// handleUpdateScreen renames a screen. A body without "name" changes nothing.
func (s *Server) handleUpdateScreen(c echo.Context) error {
	id := c.Param("id")

	var req renameRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid JSON body")
	}

	if req.Name == nil {
		// Still a 404 for unknown screens.
		if _, err := s.screens.Get(id); err != nil {
			return screenError(err, id)
		}
		return c.JSON(http.StatusOK, successResponse{Success: true})
	}

	name := strings.TrimSpace(*req.Name)
	if name == "" {
		return apperrors.ValidationError("name must not be empty").WithField("screen_id", id)
	}

	if err := s.screens.Rename(id, name); err != nil {
		return screenError(err, id)
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleDeleteScreen(c echo.Context) error {
	id := c.Param("id")
	if err := s.screens.Remove(id); err != nil {
		return screenError(err, id)
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

// handleGetLayout returns the stored layout, or a default for unknown identities.
func (s *Server) handleGetLayout(c echo.Context) error {
	id := c.Param("id")
	layout, err := s.screens.GetLayout(id)
	if err != nil {
		return screenError(err, id)
	}
	if err := c.JSONBlob(http.StatusOK, layout); err != nil {
		return fmt.Errorf("failed to write layout response: %w", err)
	}
	return nil
}

// handlePutLayout stores the layout and pushes it if the screen is online.
// An offline screen is not an error: the layout waits for its next registration.
func (s *Server) handlePutLayout(c echo.Context) error {
	id := c.Param("id")

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxLayoutBytes+1))
	if err != nil {
		return apperrors.ValidationError("failed to read body")
	}
	if len(body) > maxLayoutBytes {
		return apperrors.TooLargeError("layout too large").WithField("limit_bytes", maxLayoutBytes)
	}
	if !domain.IsLayoutObject(body) {
		return apperrors.ValidationError("layout must be a JSON object").WithField("screen_id", id)
	}

	delivered := true
	if err := s.screens.SetLayout(id, body); err != nil {
		if !errors.Is(err, domain.ErrScreenNotConnected) {
			return screenError(err, id)
		}
		delivered = false
	}

	return c.JSON(http.StatusOK, layoutResponse{Success: true, Delivered: delivered})
}
