// Package fakeregistry is an in-memory stand-in for an MLflow tracking server,
// serving just the REST endpoints the registry and artifact clients use.
package fakeregistry

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path"
	"sort"
	"strings"
	"sync"

	"modelops/pkg/types"
)

// Server is a fake registry backed by httptest.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	versions  map[string][]types.ModelVersion // model name -> versions
	runs      map[string]types.RunInfo
	artifacts map[string]map[string][]byte // run id -> artifact path -> content
	requests  []string
	failures  map[string]int // url path -> status to answer with
}

// New starts a fake registry. It is closed on test cleanup by the caller.
func New() *Server {
	s := &Server{
		versions:  map[string][]types.ModelVersion{},
		runs:      map[string]types.RunInfo{},
		artifacts: map[string]map[string][]byte{},
		failures:  map[string]int{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if s.fail(w, r) {
			return
		}
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("/api/2.0/mlflow/registered-models/get-latest-versions", s.handleLatest)
	mux.HandleFunc("/api/2.0/mlflow/runs/get", s.handleRun)
	mux.HandleFunc("/api/2.0/mlflow/artifacts/list", s.handleList)
	mux.HandleFunc("/get-artifact", s.handleGet)
	s.Server = httptest.NewServer(mux)
	return s
}

// AddVersion registers a model version.
func (s *Server) AddVersion(mv types.ModelVersion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[mv.Name] = append(s.versions[mv.Name], mv)
}

// SetRun registers run metadata.
func (s *Server) SetRun(info types.RunInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[info.RunID] = info
}

// PutArtifact stores a file at artifactPath (slash separated) in run.
func (s *Server) PutArtifact(runID, artifactPath string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.artifacts[runID] == nil {
		s.artifacts[runID] = map[string][]byte{}
	}
	s.artifacts[runID][strings.Trim(artifactPath, "/")] = content
}

// FailPath makes every request to urlPath answer with status.
func (s *Server) FailPath(urlPath string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[urlPath] = status
}

// Requests returns "METHOD path?query" for every request seen.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request) bool {
	s.mu.Lock()
	entry := r.Method + " " + r.URL.Path
	if r.URL.RawQuery != "" {
		entry += "?" + r.URL.RawQuery
	}
	s.requests = append(s.requests, entry)
	status, ok := s.failures[r.URL.Path]
	s.mu.Unlock()
	if !ok {
		return false
	}
	writeError(w, status, "INTERNAL_ERROR", "injected failure")
	return true
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if s.fail(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "BAD_REQUEST", "POST required")
		return
	}
	var req struct {
		Name   string   `json:"name"`
		Stages []string `json:"stages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PARAMETER_VALUE", err.Error())
		return
	}
	s.mu.Lock()
	all, ok := s.versions[req.Name]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "RESOURCE_DOES_NOT_EXIST", "Registered Model with name="+req.Name+" not found")
		return
	}
	var out []types.ModelVersion
	for _, mv := range all {
		for _, st := range req.Stages {
			if strings.EqualFold(mv.CurrentStage, st) {
				out = append(out, mv)
			}
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if len(out) == 0 {
		// The real server omits empty repeated fields.
		_, _ = w.Write([]byte("{}"))
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"model_versions": out})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.fail(w, r) {
		return
	}
	id := r.URL.Query().Get("run_id")
	s.mu.Lock()
	info, ok := s.runs[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "RESOURCE_DOES_NOT_EXIST", "Run '"+id+"' not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"run": map[string]any{"info": info}})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if s.fail(w, r) {
		return
	}
	runID := r.URL.Query().Get("run_id")
	dir := strings.Trim(r.URL.Query().Get("path"), "/")
	s.mu.Lock()
	files := s.artifacts[runID]
	seen := map[string]types.ArtifactFile{}
	for p, content := range files {
		rel := p
		if dir != "" {
			if !strings.HasPrefix(p, dir+"/") {
				continue
			}
			rel = strings.TrimPrefix(p, dir+"/")
		}
		first, rest, nested := strings.Cut(rel, "/")
		child := path.Join(dir, first)
		if nested && rest != "" {
			seen[child] = types.ArtifactFile{Path: child, IsDir: true}
			continue
		}
		seen[child] = types.ArtifactFile{Path: child, FileSize: int64(len(content))}
	}
	s.mu.Unlock()
	out := make([]types.ArtifactFile, 0, len(seen))
	for _, f := range seen {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	w.Header().Set("Content-Type", "application/json")
	resp := map[string]any{"root_uri": "mlflow-artifacts:/" + runID + "/artifacts"}
	if len(out) > 0 {
		resp["files"] = out
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	if s.fail(w, r) {
		return
	}
	runID := r.URL.Query().Get("run_uuid")
	p := strings.Trim(r.URL.Query().Get("path"), "/")
	s.mu.Lock()
	content, ok := s.artifacts[runID][p]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "RESOURCE_DOES_NOT_EXIST", "artifact "+p+" not found")
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(content)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error_code": code, "message": msg})
}
