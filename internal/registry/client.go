// Package registry queries an MLflow-compatible model registry over its REST
// API: staged version lookup, run metadata and artifact listings.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"modelops/pkg/types"
)

const (
	pathLatestVersions = "/api/2.0/mlflow/registered-models/get-latest-versions"
	pathRunsGet        = "/api/2.0/mlflow/runs/get"
	pathArtifactsList  = "/api/2.0/mlflow/artifacts/list"
	pathGetArtifact    = "/get-artifact"
	pathHealth         = "/health"
)

// Client talks to the registry REST API. The zero value is not usable; use New.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	log     zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithRequestTimeout bounds every request; zero disables the per-request bound.
func WithRequestTimeout(d time.Duration) Option { return func(cl *Client) { cl.timeout = d } }

// WithLogger installs a structured logger.
func WithLogger(l zerolog.Logger) Option { return func(cl *Client) { cl.log = l } }

// New returns a Client for the registry at baseURL (e.g. http://127.0.0.1:5000).
func New(baseURL string, opts ...Option) *Client {
	// Timeout=0: requests carry context deadlines instead.
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 0},
		log:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type latestVersionsRequest struct {
	Name   string   `json:"name"`
	Stages []string `json:"stages,omitempty"`
}

type latestVersionsResponse struct {
	ModelVersions []types.ModelVersion `json:"model_versions"`
}

// GetLatestVersions returns the latest version of name for each of stages, in
// the registry's response order.
func (c *Client) GetLatestVersions(ctx context.Context, name string, stages []string) ([]types.ModelVersion, error) {
	var out latestVersionsResponse
	if err := c.doJSON(ctx, http.MethodPost, pathLatestVersions, nil, latestVersionsRequest{Name: name, Stages: stages}, &out); err != nil {
		return nil, err
	}
	return out.ModelVersions, nil
}

// ResolveStagedVersion returns the version of modelName currently holding
// stage. When the registry returns several, the first one is used.
func (c *Client) ResolveStagedVersion(ctx context.Context, modelName string, stage types.Stage) (types.ModelVersion, error) {
	if strings.TrimSpace(modelName) == "" {
		return types.ModelVersion{}, errors.New("model name is empty")
	}
	st, ok := types.ParseStage(string(stage))
	if !ok {
		return types.ModelVersion{}, fmt.Errorf("unknown stage %q", stage)
	}
	vers, err := c.GetLatestVersions(ctx, modelName, []string{string(st)})
	if err != nil {
		return types.ModelVersion{}, fmt.Errorf("get latest versions of %q: %w", modelName, err)
	}
	if len(vers) == 0 {
		return types.ModelVersion{}, ErrNoStagedVersion(modelName, string(st))
	}
	mv := vers[0]
	c.log.Debug().Str("model", modelName).Str("stage", string(st)).Str("version", mv.Version).Str("run_id", mv.RunID).Int("candidates", len(vers)).Msg("resolved staged version")
	return mv, nil
}

type runResponse struct {
	Run struct {
		Info types.RunInfo `json:"info"`
	} `json:"run"`
}

// GetRun returns run metadata, including its artifact root URI.
func (c *Client) GetRun(ctx context.Context, runID string) (types.RunInfo, error) {
	q := url.Values{"run_id": {runID}}
	var out runResponse
	if err := c.doJSON(ctx, http.MethodGet, pathRunsGet, q, nil, &out); err != nil {
		return types.RunInfo{}, err
	}
	if out.Run.Info.RunID == "" {
		out.Run.Info.RunID = runID
	}
	return out.Run.Info, nil
}

type listArtifactsResponse struct {
	RootURI string               `json:"root_uri"`
	Files   []types.ArtifactFile `json:"files"`
}

// ListArtifacts lists the direct children of path within a run's artifacts.
func (c *Client) ListArtifacts(ctx context.Context, runID, path string) ([]types.ArtifactFile, error) {
	q := url.Values{"run_id": {runID}}
	if path != "" {
		q.Set("path", path)
	}
	var out listArtifactsResponse
	if err := c.doJSON(ctx, http.MethodGet, pathArtifactsList, q, nil, &out); err != nil {
		return nil, err
	}
	return out.Files, nil
}

// OpenArtifact streams one artifact file. The caller closes the reader.
func (c *Client) OpenArtifact(ctx context.Context, runID, path string) (io.ReadCloser, error) {
	q := url.Values{"run_uuid": {runID}, "path": {path}}
	ctx, cancel := c.withTimeout(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathGetArtifact+"?"+q.Encode(), nil)
	if err != nil {
		cancel()
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer cancel()
		defer resp.Body.Close()
		return nil, decodeAPIError(resp)
	}
	return &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, nil
}

// Ping checks the registry health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathHealth, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	return nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) doJSON(ctx context.Context, method, path string, q url.Values, in, out any) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer resp.Body.Close()
	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Dur("dur", time.Since(start)).Msg("registry request")
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	ae := &APIError{StatusCode: resp.StatusCode}
	var payload struct {
		ErrorCode string `json:"error_code"`
		Message   string `json:"message"`
	}
	if json.Unmarshal(b, &payload) == nil && (payload.ErrorCode != "" || payload.Message != "") {
		ae.ErrorCode = payload.ErrorCode
		ae.Message = payload.Message
	} else {
		ae.Message = strings.TrimSpace(string(b))
		if ae.Message == "" {
			ae.Message = resp.Status
		}
	}
	return ae
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
