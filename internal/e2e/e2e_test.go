package e2e

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"modelops/internal/config"
	"modelops/pkg/types"
)

func stage(e *env) {
	e.fr.AddVersion(types.ModelVersion{Name: "TitanicClassifier", Version: "3", CurrentStage: "Staging", RunID: "abc"})
	e.fr.PutArtifact("abc", "spark-model/MLmodel", []byte("flavors: {}"))
	e.fr.PutArtifact("abc", "spark-model/sparkml/metadata/part-00000", []byte("{}"))
}

func TestE2E_ExportThenStatus(t *testing.T) {
	e := newEnv(t, nil)
	stage(e)

	var res types.ExportResult
	if code := e.post(t, "/export", &res); code != http.StatusOK {
		t.Fatalf("POST /export = %d", code)
	}
	if diff := cmp.Diff([]string{"MLmodel", "sparkml"}, res.Files); diff != "" {
		t.Fatalf("files (-want +got):\n%s", diff)
	}
	if res.Version != "3" || res.RunID != "abc" || res.ExportDir != e.exportDir {
		t.Fatalf("result = %+v", res)
	}

	var st types.StatusResponse
	if code := e.get(t, "/status", &st); code != http.StatusOK {
		t.Fatalf("GET /status = %d", code)
	}
	if st.LastExport == nil || st.LastExport.Version != "3" || st.ExportsTotal != 1 || st.LastError != "" {
		t.Fatalf("status = %+v", st)
	}
	if code := e.get(t, "/readyz", nil); code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before serving = %d", code)
	}
}

func TestE2E_EmptyRegistryIs404AndLeavesExportAlone(t *testing.T) {
	e := newEnv(t, nil)
	e.fr.AddVersion(types.ModelVersion{Name: "TitanicClassifier", Version: "1", CurrentStage: "None", RunID: "r"})

	var er types.ErrorResponse
	if code := e.post(t, "/export", &er); code != http.StatusNotFound {
		t.Fatalf("POST /export = %d", code)
	}
	if er.Code != http.StatusNotFound || er.Error == "" {
		t.Fatalf("error body = %+v", er)
	}
	if _, err := os.Stat(e.exportDir); !os.IsNotExist(err) {
		t.Fatalf("export dir should not exist: %v", err)
	}
	var st types.StatusResponse
	e.get(t, "/status", &st)
	if st.LastError == "" {
		t.Fatal("status should report the failure")
	}
}

func TestE2E_RetrievalFailureIs502AndKeepsPreviousExport(t *testing.T) {
	for _, atomic := range []bool{true, false} {
		atomic := atomic
		name := "atomic"
		if !atomic {
			name = "in_place"
		}
		t.Run(name, func(t *testing.T) {
			e := newEnv(t, func(c *config.Config) { c.AtomicExport = &atomic })
			stage(e)
			if code := e.post(t, "/export", nil); code != http.StatusOK {
				t.Fatalf("first export = %d", code)
			}
			before, err := os.ReadFile(filepath.Join(e.exportDir, "MLmodel"))
			if err != nil {
				t.Fatal(err)
			}

			e.fr.FailPath("/get-artifact", http.StatusInternalServerError)
			if code := e.post(t, "/export", nil); code != http.StatusBadGateway {
				t.Fatalf("second export = %d", code)
			}
			after, err := os.ReadFile(filepath.Join(e.exportDir, "MLmodel"))
			if err != nil || string(after) != string(before) {
				t.Fatalf("previous export changed: %q %v", after, err)
			}
		})
	}
}
