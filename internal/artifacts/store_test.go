package artifacts

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"modelops/internal/common/fsutil"
	"modelops/internal/registry"
	"modelops/internal/testutil/fakeregistry"
	"modelops/pkg/types"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

func readFile(t *testing.T, p string) string {
	t.Helper()
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read %s: %v", p, err)
	}
	return string(b)
}

func TestHTTPStore_StripsArtifactPathPrefix(t *testing.T) {
	fr := fakeregistry.New()
	defer fr.Close()
	fr.PutArtifact("abc", "spark-model/MLmodel", []byte("flavors: {}"))
	fr.PutArtifact("abc", "spark-model/sparkml/metadata/part-00000", []byte("meta"))
	fr.PutArtifact("abc", "other/ignored.txt", []byte("no"))

	s := NewHTTPStore(registry.New(fr.URL), zerolog.Nop())
	b, err := s.Download(testCtx(t), "abc", "spark-model")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer b.Cleanup()

	names, _ := fsutil.ListNames(b.Root)
	if diff := cmp.Diff([]string{"MLmodel", "sparkml"}, names); diff != "" {
		t.Fatalf("bundle root (-want +got):\n%s", diff)
	}
	if got := readFile(t, filepath.Join(b.Root, "sparkml", "metadata", "part-00000")); got != "meta" {
		t.Fatalf("nested content %q", got)
	}
	if err := b.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if fsutil.PathExists(b.Root) {
		t.Fatalf("staging root should be removed")
	}
}

func TestHTTPStore_MissingArtifact(t *testing.T) {
	fr := fakeregistry.New()
	defer fr.Close()
	s := NewHTTPStore(registry.New(fr.URL), zerolog.Nop())
	_, err := s.Download(testCtx(t), "abc", "spark-model")
	if !IsRetrievalError(err) || !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not-found retrieval error, got %v", err)
	}
}

type escapingLister struct{}

func (escapingLister) ListArtifacts(ctx context.Context, runID, p string) ([]types.ArtifactFile, error) {
	return []types.ArtifactFile{{Path: "spark-model/../../etc/passwd"}}, nil
}

func (escapingLister) OpenArtifact(ctx context.Context, runID, p string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("x")), nil
}

func TestHTTPStore_RejectsEscapingPaths(t *testing.T) {
	s := NewHTTPStore(escapingLister{}, zerolog.Nop())
	if _, err := s.Download(testCtx(t), "abc", "spark-model"); !IsRetrievalError(err) {
		t.Fatalf("expected retrieval error, got %v", err)
	}
}

func makeLocalRun(t *testing.T) (base, uri string) {
	t.Helper()
	base = t.TempDir()
	rel := filepath.Join("artifacts", "0", "abc", "artifacts")
	bundle := filepath.Join(base, rel, "spark-model")
	if err := os.MkdirAll(filepath.Join(bundle, "sparkml"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bundle, "MLmodel"), []byte("local"), 0o644); err != nil {
		t.Fatal(err)
	}
	return base, "./" + filepath.ToSlash(rel)
}

func TestLocalStore_RelativeURI(t *testing.T) {
	base, uri := makeLocalRun(t)
	fr := fakeregistry.New()
	defer fr.Close()
	fr.SetRun(types.RunInfo{RunID: "abc", ArtifactURI: uri})

	s := NewLocalStore(registry.New(fr.URL), base, zerolog.Nop())
	b, err := s.Download(testCtx(t), "abc", "spark-model")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer b.Cleanup()
	if got := readFile(t, filepath.Join(b.Root, "MLmodel")); got != "local" {
		t.Fatalf("content %q", got)
	}
}

func TestLocalStore_Errors(t *testing.T) {
	base, uri := makeLocalRun(t)
	fr := fakeregistry.New()
	defer fr.Close()
	fr.SetRun(types.RunInfo{RunID: "abc", ArtifactURI: uri})
	fr.SetRun(types.RunInfo{RunID: "remote", ArtifactURI: "s3://bucket/0/remote/artifacts"})
	s := NewLocalStore(registry.New(fr.URL), base, zerolog.Nop())

	if _, err := s.Download(testCtx(t), "abc", "missing-model"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Download(testCtx(t), "remote", "spark-model"); !IsRetrievalError(err) {
		t.Fatalf("expected retrieval error for remote uri, got %v", err)
	}
	if _, err := s.Download(testCtx(t), "unknown-run", "spark-model"); !IsRetrievalError(err) {
		t.Fatalf("expected retrieval error for unknown run, got %v", err)
	}
}

func TestAutoStore_PrefersLocalThenHTTP(t *testing.T) {
	base, uri := makeLocalRun(t)
	fr := fakeregistry.New()
	defer fr.Close()
	fr.SetRun(types.RunInfo{RunID: "abc", ArtifactURI: uri})
	fr.SetRun(types.RunInfo{RunID: "proxied", ArtifactURI: "mlflow-artifacts:/0/proxied/artifacts"})
	fr.PutArtifact("proxied", "spark-model/MLmodel", []byte("remote"))

	s := New("auto", registry.New(fr.URL), base, zerolog.Nop())

	b, err := s.Download(testCtx(t), "abc", "spark-model")
	if err != nil {
		t.Fatalf("local download: %v", err)
	}
	if got := readFile(t, filepath.Join(b.Root, "MLmodel")); got != "local" {
		t.Fatalf("expected local copy, got %q", got)
	}
	_ = b.Cleanup()

	b, err = s.Download(testCtx(t), "proxied", "spark-model")
	if err != nil {
		t.Fatalf("remote download: %v", err)
	}
	if got := readFile(t, filepath.Join(b.Root, "MLmodel")); got != "remote" {
		t.Fatalf("expected remote copy, got %q", got)
	}
	_ = b.Cleanup()
}

func TestLocalPath(t *testing.T) {
	cases := []struct {
		uri, base, want string
		ok              bool
	}{
		{"file:///srv/artifacts/1", "", "/srv/artifacts/1", true},
		{"/srv/a", "/ignored", "/srv/a", true},
		{"./artifacts/0", "/work", "/work/artifacts/0", true},
		{"s3://bucket/x", "", "", false},
		{"mlflow-artifacts:/0/r/artifacts", "", "", false},
		{"", "", "", false},
	}
	for _, c := range cases {
		got, ok := LocalPath(c.uri, c.base)
		if ok != c.ok || (ok && got != filepath.FromSlash(c.want)) {
			t.Fatalf("LocalPath(%q,%q) = %q,%v want %q,%v", c.uri, c.base, got, ok, c.want, c.ok)
		}
	}
}
