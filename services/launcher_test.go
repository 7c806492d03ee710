package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"tempbot-keeper/internal/config"
	"tempbot-keeper/internal/models"
	"tempbot-keeper/internal/utils"
)

/**
 * Build a launcher wired to a temporary project and a fake tunnel API
 * @param {*testing.T} t - Test context
 * @param {string} apiURL - Fake tunnel control API address
 * @param {string} envContent - Initial env file content
 * @returns {(*Launcher, string)} Launcher under test and the env file path
 * @description
 * - The tunnel and bot commands are replaced with short shell commands,
 *   nothing real is started
 * - All state, pidfiles and logs land in temporary directories
 */
func newTestLauncher(t *testing.T, apiURL, envContent string) (*Launcher, string) {
	t.Helper()
	useTempKeeperDir(t)

	projectDir := t.TempDir()
	t.Setenv("TEMPBOT_PROJECT", projectDir)

	envFile := filepath.Join(projectDir, ".env")
	if err := os.WriteFile(envFile, []byte(envContent), 0644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	cfg := &config.AppConfig{}
	cfg.Tunnel.ProcessName = "ngrok"
	cfg.Tunnel.Command = "sh"
	cfg.Tunnel.Args = []string{"-c", ":"}
	cfg.Tunnel.LocalPort = 5001
	cfg.Tunnel.ApiUrl = apiURL
	cfg.Tunnel.LogPath = filepath.Join(t.TempDir(), "ngrok.log")
	cfg.Bot.ProcessName = "sh"
	cfg.Bot.Command = "sh"
	cfg.Bot.VenvDir = "venv"
	cfg.Env.File = envFile
	cfg.Env.Key = "NGROK_URL"
	cfg.Discovery.Timeout = 2 * time.Second
	cfg.Discovery.InitialInterval = 10 * time.Millisecond
	cfg.Discovery.MaxInterval = 50 * time.Millisecond
	cfg.Launch.CleanupDelay = time.Millisecond

	l := &Launcher{
		cfg: cfg,
		tm: &TunnelManager{
			cfg:    cfg,
			client: &http.Client{Timeout: time.Second},
		},
		SkipCleanup: true,
	}
	return l, envFile
}

func newTunnelAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tunnels":[{"public_url":"https://abc123.ngrok.io","proto":"https"}]}`)
	}))
	t.Cleanup(server.Close)
	return server
}

/**
 * Test the full launch sequence end to end
 * @description
 * - Tunnel start, URL discovery and env rewrite all succeed
 * - The bot exits with code 7 and the launcher forwards it unmasked
 * - Launch state is persisted and the bot pidfile is removed afterwards
 */
func TestLaunchRunForwardsExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test spawns shell commands")
	}
	server := newTunnelAPIServer(t)
	l, envFile := newTestLauncher(t, server.URL,
		"SLACK_BOT_TOKEN=xoxb-1\nNGROK_URL=https://old.example.com\nTARGET_PHONE_NUMBER=+15551234567\n")
	l.cfg.Bot.Args = []string{"-c", "exit 7"}

	code, err := l.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if code != 7 {
		t.Errorf("expected exit code 7, got %d", code)
	}

	got, _ := os.ReadFile(envFile)
	want := "SLACK_BOT_TOKEN=xoxb-1\nNGROK_URL=https://abc123.ngrok.io\nTARGET_PHONE_NUMBER=+15551234567\n"
	if string(got) != want {
		t.Errorf("env file mismatch\nwant:\n%s\ngot:\n%s", want, string(got))
	}

	state, err := LoadLaunchState()
	if err != nil {
		t.Fatalf("no launch state persisted: %v", err)
	}
	if state.LaunchId == "" {
		t.Error("launch state has no launch id")
	}
	if state.Status != models.StatusExited {
		t.Errorf("expected exited status, got %s", state.Status)
	}
	if state.PublicURL != "https://abc123.ngrok.io" {
		t.Errorf("unexpected public URL in state: %s", state.PublicURL)
	}

	if pid, _ := utils.ReadPidfile(botPidfile); pid != 0 {
		t.Errorf("bot pidfile should be removed after exit, got PID %d", pid)
	}
}

/**
 * Test that a missing env key aborts the launch before the bot starts
 */
func TestLaunchRunMissingEnvKey(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test spawns shell commands")
	}
	server := newTunnelAPIServer(t)
	content := "SLACK_BOT_TOKEN=xoxb-1\nSLACK_APP_TOKEN=xapp-1\n"
	l, envFile := newTestLauncher(t, server.URL, content)
	l.cfg.Bot.Args = []string{"-c", "exit 0"}

	code, err := l.Run(context.Background())
	if err == nil {
		t.Fatal("Run should fail when the env key is missing")
	}
	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
	if !errors.Is(err, config.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got: %v", err)
	}

	got, _ := os.ReadFile(envFile)
	if string(got) != content {
		t.Errorf("env file was modified on failed launch:\n%s", string(got))
	}
}

/**
 * Test that a failed discovery aborts the launch with the env file untouched
 */
func TestLaunchRunDiscoveryFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test spawns shell commands")
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	content := "NGROK_URL=https://old.example.com\n"
	l, envFile := newTestLauncher(t, server.URL, content)
	l.cfg.Bot.Args = []string{"-c", "exit 0"}
	l.cfg.Discovery.Timeout = 200 * time.Millisecond

	code, err := l.Run(context.Background())
	if err == nil {
		t.Fatal("Run should fail when discovery fails")
	}
	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}

	got, _ := os.ReadFile(envFile)
	if string(got) != content {
		t.Errorf("env file was modified on failed discovery:\n%s", string(got))
	}

	state, err := LoadLaunchState()
	if err != nil {
		t.Fatalf("no launch state persisted: %v", err)
	}
	if state.Status != models.StatusError {
		t.Errorf("expected error status, got %s", state.Status)
	}
}
