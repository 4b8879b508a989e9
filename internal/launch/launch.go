// Package launch handles file-association launches: turning launch
// arguments into paths and handing them to an already running instance.
package launch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// PathFromArg converts a launch argument (a path or a file:// URL) into a
// clean absolute path.
func PathFromArg(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", fmt.Errorf("launch: empty path")
	}
	if strings.HasPrefix(strings.ToLower(arg), "file:") {
		return pathFromURL(arg)
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", fmt.Errorf("launch: resolve %q: %w", arg, err)
	}
	return abs, nil
}

func pathFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("launch: parse %q: %w", raw, err)
	}
	p := u.Path
	if p == "" {
		p = u.Opaque
	}
	if p == "" {
		return "", fmt.Errorf("launch: %q has no path", raw)
	}
	if u.Host != "" && !strings.EqualFold(u.Host, "localhost") {
		// UNC share: file://server/share/doc.mmd
		p = "//" + u.Host + p
	}
	// file:///C:/dir/doc.mmd carries the drive letter after a slash.
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.Clean(filepath.FromSlash(p)), nil
}

// BaseURL is the address of the local host API on port.
func BaseURL(port int) string {
	return fmt.Sprintf("http://127.0.0.1:%d", port)
}

var client = &http.Client{Timeout: 5 * time.Second}

// Running reports whether an instance answers on baseURL.
func Running(ctx context.Context, baseURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health/live", nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Forward delivers an open-file signal for path to the instance at baseURL.
func Forward(ctx context.Context, baseURL, token, path string) error {
	body, err := json.Marshal(map[string]string{"path": path})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/open-file", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("launch: forward %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = resp.Status
		}
		return fmt.Errorf("launch: forward %s: %s", path, e.Error)
	}
	return nil
}
