package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	apperrors "github.com/angeeinstein/web-kiosk-screen/internal/platform/errors"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const uploadURLPrefix = "/static/uploads/"

var allowedUploadExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".webp": {},
	".svg":  {},
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type uploadResponse struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

func (s *Server) registerUploadRoutes() {
	bodyLimit := middleware.BodyLimit(fmt.Sprintf("%dB", s.config.MaxUploadBytes))
	s.echo.POST("/api/upload", s.handleUpload, s.apiRateLimiter(), bodyLimit)
	s.echo.GET(uploadURLPrefix+":filename", s.handleUploadedFile)
}

func (s *Server) handleUpload(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		var httpErr *echo.HTTPError
		if errors.As(err, &maxBytesErr) || (errors.As(err, &httpErr) && httpErr.Code == http.StatusRequestEntityTooLarge) {
			return apperrors.TooLargeError("file too large").WithField("limit_bytes", s.config.MaxUploadBytes)
		}
		return apperrors.ValidationError("no file part")
	}

	filename := sanitizeFilename(fileHeader.Filename)
	if filename == "" {
		return apperrors.ValidationError("no selected file")
	}
	if !isAllowedUpload(filename) {
		return apperrors.ValidationError("file type not allowed").WithField("filename", filename)
	}
	if fileHeader.Size > s.config.MaxUploadBytes {
		return apperrors.TooLargeError("file too large").WithField("limit_bytes", s.config.MaxUploadBytes)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return apperrors.InternalError("failed to open upload", err)
	}
	defer src.Close()

	storedName := uniquePrefix() + "_" + filename
	if err := saveUpload(s.config.UploadDir, storedName, src); err != nil {
		return apperrors.InternalError("failed to save upload", err).WithField("filename", storedName)
	}

	return c.JSON(http.StatusOK, uploadResponse{
		Success:  true,
		Filename: storedName,
		URL:      uploadURLPrefix + storedName,
	})
}

func (s *Server) handleUploadedFile(c echo.Context) error {
	name := c.Param("filename")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return apperrors.NotFoundError("file not found")
	}

	path := filepath.Join(s.config.UploadDir, name)
	if _, err := os.Stat(path); err != nil {
		return apperrors.NotFoundError("file not found").WithField("filename", name)
	}
	return c.File(path)
}

// sanitizeFilename keeps the base name and replaces anything outside [A-Za-z0-9._-].
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(name), "_")
	name = strings.TrimLeft(name, "._")
	if name == "" || name == "." {
		return ""
	}
	return name
}

func isAllowedUpload(filename string) bool {
	_, ok := allowedUploadExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// uniquePrefix returns 8 random hex characters.
func uniquePrefix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func saveUpload(dir, name string, src io.Reader) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}

	dst, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return fmt.Errorf("write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}
