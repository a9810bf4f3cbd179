// Package fakeservice builds a small stand-in binary for the child processes
// the orchestrator supervises.
package fakeservice

import (
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
)

var (
	buildOnce sync.Once
	buildDir  string
	buildBin  string
	buildErr  error
	buildOut  []byte
)

// Build compiles testdata/fake_service.go once per test binary and returns
// its path.
func Build(t testing.TB) string {
	t.Helper()
	buildOnce.Do(func() {
		_, file, _, _ := runtime.Caller(0)
		src := filepath.Join(filepath.Dir(file), "testdata", "fake_service.go")
		buildDir, buildErr = os.MkdirTemp("", "fakeservice-*")
		if buildErr != nil {
			return
		}
		buildBin = filepath.Join(buildDir, "fake_service")
		cmd := exec.Command("go", "build", "-o", buildBin, src)
		cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
		buildOut, buildErr = cmd.CombinedOutput()
	})
	if buildErr != nil {
		t.Fatalf("build fake service: %v: %s", buildErr, string(buildOut))
	}
	return buildBin
}

// FreePort asks the kernel for an unused TCP port on 127.0.0.1.
func FreePort(t testing.TB) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
