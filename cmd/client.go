package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// clientAddr overrides the daemon address for the client commands.
var clientAddr string

func apiBase() string {
	addr := clientAddr
	if addr == "" {
		addr = cfg.ListenAddr
	}
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr
}

func apiClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// apiGet decodes a JSON response body into out.
func apiGet(path string, out any) error {
	resp, err := apiClient().Get(apiBase() + path)
	if err != nil {
		return fmt.Errorf("contacting daemon: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// apiPost issues a bodyless POST, decoding the response into out when
// out is non-nil.
func apiPost(path string, out any) error {
	resp, err := apiClient().Post(apiBase()+path, "application/json", nil)
	if err != nil {
		return fmt.Errorf("contacting daemon: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return apiError(resp)
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return fmt.Errorf("daemon returned %s: %s", resp.Status, body.Error)
	}
	return fmt.Errorf("daemon returned %s", resp.Status)
}
