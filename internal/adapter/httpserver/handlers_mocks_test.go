package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angeeinstein/web-kiosk-screen/internal/domain"
	"github.com/angeeinstein/web-kiosk-screen/internal/platform/config"
	"github.com/labstack/echo/v4"
)

// --- Mock implementations ---

type mockScreenService struct {
	listFn      func() ([]domain.ScreenStatus, error)
	getFn       func(screenID string) (domain.ScreenDetail, error)
	renameFn    func(screenID, name string) error
	removeFn    func(screenID string) error
	getLayoutFn func(screenID string) (domain.Layout, error)
	setLayoutFn func(screenID string, layout domain.Layout) error
}

func (m *mockScreenService) List() ([]domain.ScreenStatus, error) {
	if m.listFn != nil {
		return m.listFn()
	}
	return []domain.ScreenStatus{}, nil
}

func (m *mockScreenService) Get(screenID string) (domain.ScreenDetail, error) {
	if m.getFn != nil {
		return m.getFn(screenID)
	}
	return domain.ScreenDetail{}, domain.ErrScreenNotFound
}

func (m *mockScreenService) Rename(screenID, name string) error {
	if m.renameFn != nil {
		return m.renameFn(screenID, name)
	}
	return nil
}

func (m *mockScreenService) Remove(screenID string) error {
	if m.removeFn != nil {
		return m.removeFn(screenID)
	}
	return nil
}

func (m *mockScreenService) GetLayout(screenID string) (domain.Layout, error) {
	if m.getLayoutFn != nil {
		return m.getLayoutFn(screenID)
	}
	return domain.Layout(`{"widgets":[],"background":"#1a1a2e"}`), nil
}

func (m *mockScreenService) SetLayout(screenID string, layout domain.Layout) error {
	if m.setLayoutFn != nil {
		return m.setLayoutFn(screenID, layout)
	}
	return nil
}

// --- Test helpers ---

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		AppEnv:         "test",
		Port:           "5000",
		UploadDir:      t.TempDir(),
		MaxUploadBytes: 1 << 20,
		APIRateLimit:   1000,
		APIRateBurst:   1000,
	}
}

func newTestServer(t *testing.T, screens screenService, opts ...func(*Server)) *Server {
	t.Helper()

	srv := &Server{
		echo:    echo.New(),
		config:  testConfig(t),
		screens: screens,
	}
	for _, opt := range opts {
		opt(srv)
	}
	srv.registerRoutes()
	return srv
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

func withConfig(mutate func(*config.Config)) func(*Server) {
	return func(s *Server) {
		mutate(s.config)
	}
}

// serve runs a request through the full middleware chain.
func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}
