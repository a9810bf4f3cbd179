package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"modelops/internal/artifacts"
	"modelops/internal/exporter"
	"modelops/internal/promote"
	"modelops/internal/registry"
	"modelops/pkg/types"
)

type mockService struct {
	status    types.StatusResponse
	ready     bool
	result    types.ExportResult
	exportErr error
	exportCtx context.Context
}

func (m *mockService) Status() types.StatusResponse { return m.status }
func (m *mockService) Ready() bool                  { return m.ready }
func (m *mockService) Export(ctx context.Context) (types.ExportResult, error) {
	m.exportCtx = ctx
	if m.exportErr != nil {
		return types.ExportResult{}, m.exportErr
	}
	return m.result, nil
}

type mockHTTPError struct {
	msg  string
	code int
}

func (e mockHTTPError) Error() string   { return e.msg }
func (e mockHTTPError) StatusCode() int { return e.code }

func serve(svc Service, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	NewMux(svc).ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHealthz(t *testing.T) {
	w := serve(&mockService{}, http.MethodGet, "/healthz")
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing nosniff header")
	}
}

func TestReadyz(t *testing.T) {
	w := serve(&mockService{ready: true}, http.MethodGet, "/readyz")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestReadyz_NotReadyReportsPhase(t *testing.T) {
	w := serve(&mockService{status: types.StatusResponse{Phase: "training"}}, http.MethodGet, "/readyz")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "training") {
		t.Fatalf("body=%q", w.Body.String())
	}
}

func TestStatusHandler(t *testing.T) {
	svc := &mockService{status: types.StatusResponse{
		Phase:      "serving",
		Processes:  []types.ProcessStatus{{Name: "registry", State: "ready", PID: 42}},
		LastExport: &types.ExportResult{Version: "3", Files: []string{"MLmodel"}},
	}}
	w := serve(svc, http.MethodGet, "/status")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	var body types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Phase != "serving" || len(body.Processes) != 1 || body.LastExport == nil || body.LastExport.Version != "3" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestExportOK(t *testing.T) {
	svc := &mockService{result: types.ExportResult{ModelName: "TitanicClassifier", Version: "3", Files: []string{"MLmodel", "sparkml"}}}
	w := serve(svc, http.MethodPost, "/export")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var res types.ExportResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("json: %v", err)
	}
	if res.Version != "3" || len(res.Files) != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestExportMethodNotAllowed(t *testing.T) {
	w := serve(&mockService{}, http.MethodGet, "/export")
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestExportErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"no staged version", registry.ErrNoStagedVersion("TitanicClassifier", "Staging"), http.StatusNotFound},
		{"retrieval", &artifacts.RetrievalError{RunID: "r", Path: "spark-model", Err: artifacts.ErrNotFound}, http.StatusBadGateway},
		{"retrieval canceled", &artifacts.RetrievalError{RunID: "r", Path: "spark-model", Err: context.Canceled}, http.StatusServiceUnavailable},
		{"registry api", &registry.APIError{StatusCode: 500, ErrorCode: "INTERNAL_ERROR", Message: "boom"}, http.StatusBadGateway},
		{"io", &exporter.IOError{Op: "swap", Path: "/x", Err: errors.New("read-only file system")}, http.StatusInternalServerError},
		{"in progress", promote.ErrInProgress, http.StatusConflict},
		{"wrapped in progress", fmt.Errorf("admin: %w", promote.ErrInProgress), http.StatusConflict},
		{"http error", mockHTTPError{msg: "teapot", code: http.StatusTeapot}, http.StatusTeapot},
		{"generic", errors.New("unexpected"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(&mockService{exportErr: tc.err}, http.MethodPost, "/export")
			if w.Code != tc.want {
				t.Fatalf("status=%d want %d", w.Code, tc.want)
			}
			var body types.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("json: %v", err)
			}
			if body.Code != tc.want || body.Error != tc.err.Error() {
				t.Fatalf("unexpected body: %+v", body)
			}
		})
	}
}

func TestExport_BaseContextCancelsExport(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	SetBaseContext(base)
	t.Cleanup(func() { SetBaseContext(context.Background()) })

	svc := &mockService{}
	_ = serve(svc, http.MethodPost, "/export")
	if svc.exportCtx == nil {
		t.Fatal("export not called")
	}
	// handler returned, so the joined context is already released
	if svc.exportCtx.Err() == nil {
		t.Fatal("joined context should be canceled after the handler returns")
	}
	cancel()
}

func TestExport_Timeout(t *testing.T) {
	SetExportTimeoutSeconds(30)
	t.Cleanup(func() { SetExportTimeoutSeconds(0) })
	svc := &mockService{}
	_ = serve(svc, http.MethodPost, "/export")
	if _, ok := svc.exportCtx.Deadline(); !ok {
		t.Fatal("expected export context deadline")
	}
}

func TestCORS(t *testing.T) {
	SetCORSOptions(true, []string{"http://ui.local"}, nil, nil)
	t.Cleanup(func() { SetCORSOptions(false, nil, nil, nil) })

	req := httptest.NewRequest(http.MethodOptions, "/status", nil)
	req.Header.Set("Origin", "http://ui.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://ui.local" {
		t.Fatalf("allow-origin=%q", got)
	}
}

func TestCORS_DisabledByDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Origin", "http://ui.local")
	w := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow-origin %q", got)
	}
}

func TestSwagger(t *testing.T) {
	if w := serve(&mockService{}, http.MethodGet, "/swagger/doc.json"); w.Code != http.StatusNotFound {
		t.Fatalf("swagger should be off by default, status=%d", w.Code)
	}
	SetSwaggerEnabled(true)
	t.Cleanup(func() { SetSwaggerEnabled(false) })
	w := serve(&mockService{}, http.MethodGet, "/swagger/doc.json")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"/export"`) {
		t.Fatalf("doc.json missing /export: %.200s", w.Body.String())
	}
}
