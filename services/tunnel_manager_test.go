package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tempbot-keeper/internal/config"
	"tempbot-keeper/internal/env"
	"tempbot-keeper/internal/models"
)

// 状态缓存写到临时目录，避免污染当前用户的~/.tempbot
func useTempKeeperDir(t *testing.T) {
	t.Helper()
	orig := env.TempbotDir
	env.TempbotDir = t.TempDir()
	t.Cleanup(func() {
		env.TempbotDir = orig
	})
}

func newTestTunnelManager(apiURL string) *TunnelManager {
	cfg := &config.AppConfig{}
	cfg.Tunnel.ProcessName = "ngrok"
	cfg.Tunnel.LocalPort = 5001
	cfg.Tunnel.ApiUrl = apiURL
	cfg.Discovery.Timeout = 2 * time.Second
	cfg.Discovery.InitialInterval = 10 * time.Millisecond
	cfg.Discovery.MaxInterval = 50 * time.Millisecond
	return &TunnelManager{
		cfg:    cfg,
		client: &http.Client{Timeout: time.Second},
	}
}

/**
 * Test that discovery selects the first HTTPS record in endpoint order
 * @description
 * - The endpoint reports an http record before two https records
 * - The http record is skipped, the first https record wins
 */
func TestDiscoverPublicURLFirstHTTPS(t *testing.T) {
	useTempKeeperDir(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tunnels":[
			{"name":"command_line (http)","public_url":"http://abc123.ngrok.io","proto":"http"},
			{"name":"command_line","public_url":"https://abc123.ngrok.io","proto":"https"},
			{"name":"extra","public_url":"https://second.ngrok.io","proto":"https"}
		]}`)
	}))
	defer server.Close()

	tm := newTestTunnelManager(server.URL)
	url, err := tm.DiscoverPublicURL(context.Background())
	if err != nil {
		t.Fatalf("DiscoverPublicURL failed: %v", err)
	}
	if url != "https://abc123.ngrok.io" {
		t.Errorf("expected first https URL, got: %s", url)
	}
	if tm.State().PublicURL != url {
		t.Errorf("discovered URL not persisted in state: %+v", tm.State())
	}
}

/**
 * Test that discovery keeps polling until the tunnel registers
 * @description
 * - The endpoint reports an empty tunnel list for the first two requests
 * - The third request carries the https record and discovery succeeds
 */
func TestDiscoverPublicURLRetriesUntilRegistered(t *testing.T) {
	useTempKeeperDir(t)

	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests < 3 {
			fmt.Fprint(w, `{"tunnels":[]}`)
			return
		}
		fmt.Fprint(w, `{"tunnels":[{"public_url":"https://abc123.ngrok.io","proto":"https"}]}`)
	}))
	defer server.Close()

	tm := newTestTunnelManager(server.URL)
	url, err := tm.DiscoverPublicURL(context.Background())
	if err != nil {
		t.Fatalf("DiscoverPublicURL failed: %v", err)
	}
	if url != "https://abc123.ngrok.io" {
		t.Errorf("unexpected URL: %s", url)
	}
	if requests < 3 {
		t.Errorf("expected at least 3 polls, got %d", requests)
	}
}

// 只有http记录时，发现必须在超时后失败
func TestDiscoverPublicURLNoHTTPSTunnel(t *testing.T) {
	useTempKeeperDir(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tunnels":[{"public_url":"http://abc123.ngrok.io","proto":"http"}]}`)
	}))
	defer server.Close()

	tm := newTestTunnelManager(server.URL)
	tm.cfg.Discovery.Timeout = 200 * time.Millisecond

	if _, err := tm.DiscoverPublicURL(context.Background()); err == nil {
		t.Fatal("discovery should fail when no https tunnel is registered")
	}
}

// 控制接口完全不可达（隧道进程未启动）
func TestDiscoverPublicURLEndpointDown(t *testing.T) {
	useTempKeeperDir(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	tm := newTestTunnelManager(server.URL)
	tm.cfg.Discovery.Timeout = 200 * time.Millisecond

	if _, err := tm.DiscoverPublicURL(context.Background()); err == nil {
		t.Fatal("discovery should fail when the endpoint is unreachable")
	}
}

func TestDiscoverPublicURLContextCanceled(t *testing.T) {
	useTempKeeperDir(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tunnels":[]}`)
	}))
	defer server.Close()

	tm := newTestTunnelManager(server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := tm.DiscoverPublicURL(ctx); err == nil {
		t.Fatal("discovery should fail when the context is canceled")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("discovery did not stop on context cancel, took %v", elapsed)
	}
}

func TestListTunnels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tunnels":[
			{"name":"command_line","public_url":"https://abc123.ngrok.io","proto":"https","config":{"addr":"http://localhost:5001"}}
		]}`)
	}))
	defer server.Close()

	tm := newTestTunnelManager(server.URL)
	tunnels, err := tm.ListTunnels(context.Background())
	if err != nil {
		t.Fatalf("ListTunnels failed: %v", err)
	}
	if len(tunnels) != 1 {
		t.Fatalf("expected 1 tunnel, got %d", len(tunnels))
	}
	if tunnels[0].PublicURL != "https://abc123.ngrok.io" {
		t.Errorf("unexpected public URL: %s", tunnels[0].PublicURL)
	}
	if tunnels[0].Config.Addr != "http://localhost:5001" {
		t.Errorf("unexpected local addr: %s", tunnels[0].Config.Addr)
	}
}

func TestQueryTunnelsBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	tm := newTestTunnelManager(server.URL)
	if _, err := tm.queryTunnels(context.Background()); err == nil {
		t.Fatal("queryTunnels should fail on non-200 status")
	}
}

func TestFirstHTTPSURL(t *testing.T) {
	resp := &models.TunnelsResponse{
		Tunnels: []models.NgrokTunnel{
			{PublicURL: "http://a.example.com"},
			{PublicURL: "https://b.example.com"},
			{PublicURL: "https://c.example.com"},
		},
	}
	url, ok := firstHTTPSURL(resp)
	if !ok || url != "https://b.example.com" {
		t.Errorf("unexpected selection: %s (ok=%v)", url, ok)
	}

	if _, ok := firstHTTPSURL(&models.TunnelsResponse{}); ok {
		t.Error("empty response should not yield a URL")
	}
}
