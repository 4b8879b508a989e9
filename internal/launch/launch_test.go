package launch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestPathFromArg(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths")
	}
	cwd, _ := os.Getwd()
	cases := []struct{ in, want string }{
		{"/home/me/plan.excalidraw", "/home/me/plan.excalidraw"},
		{"/home/me/../me/plan.excalidraw", "/home/me/plan.excalidraw"},
		{"plan.excalidraw", filepath.Join(cwd, "plan.excalidraw")},
		{"file:///home/me/flow.mmd", "/home/me/flow.mmd"},
		{"file://localhost/home/me/flow.mmd", "/home/me/flow.mmd"},
		{"file:///home/me/My%20Plan.excalidraw", "/home/me/My Plan.excalidraw"},
		{"FILE:///tmp/x.mmd", "/tmp/x.mmd"},
		{"file://server/share/flow.mmd", "/server/share/flow.mmd"},
	}
	for _, tc := range cases {
		got, err := PathFromArg(tc.in)
		if err != nil {
			t.Errorf("PathFromArg(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("PathFromArg(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPathFromArg_Errors(t *testing.T) {
	for _, in := range []string{"", "   ", "file://"} {
		if _, err := PathFromArg(in); err == nil {
			t.Errorf("PathFromArg(%q) should fail", in)
		}
	}
}

func TestForward(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/open-file" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		var body struct {
			Path string `json:"path"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotPath = body.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := Forward(context.Background(), srv.URL, "tok", "/docs/plan.excalidraw"); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/docs/plan.excalidraw" || gotAuth != "Bearer tok" {
		t.Errorf("path = %q, auth = %q", gotPath, gotAuth)
	}
}

func TestForward_ErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
	}))
	defer srv.Close()

	err := Forward(context.Background(), srv.URL, "", "/x.mmd")
	if err == nil || !strings.Contains(err.Error(), "unauthorized") {
		t.Errorf("err = %v", err)
	}
}

func TestRunning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health/live" {
			_, _ = w.Write([]byte(`{"status":"ok"}`))
			return
		}
		http.NotFound(w, r)
	}))
	if !Running(context.Background(), srv.URL) {
		t.Error("expected running")
	}
	srv.Close()
	if Running(context.Background(), srv.URL) {
		t.Error("closed server reported running")
	}
}

func TestBaseURL(t *testing.T) {
	if got := BaseURL(7341); got != "http://127.0.0.1:7341" {
		t.Errorf("BaseURL = %q", got)
	}
}
