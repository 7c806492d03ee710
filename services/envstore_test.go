package services

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tempbot-keeper/internal/config"
	"tempbot-keeper/internal/logger"
)

/**
 * Initialize test environment
 * @description
 * - Initializes logger system for test runs
 * - Called automatically when test package is loaded
 */
func init() {
	logger.InitLogger(&config.LogConfig{Level: "error", Path: "console"}, false)
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	return path
}

/**
 * Test that Set rewrites only the target line
 * @description
 * - Builds an env file with comments, unrelated keys and the target key
 * - After Set, the target line carries the new value
 * - Every other line is byte-for-byte unchanged
 */
func TestEnvStoreSetPreservesOtherLines(t *testing.T) {
	content := "# plivo credentials\n" +
		"PLIVO_AUTH_ID=MAXXXXXXXXXXXXXXXXXX\n" +
		"NGROK_URL=https://old.example.com\n" +
		"TARGET_PHONE_NUMBER=+15551234567\n"
	path := writeEnvFile(t, content)

	store := NewEnvStore(path)
	if err := store.Set("NGROK_URL", "https://abc123.ngrok.io"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read env file: %v", err)
	}
	want := "# plivo credentials\n" +
		"PLIVO_AUTH_ID=MAXXXXXXXXXXXXXXXXXX\n" +
		"NGROK_URL=https://abc123.ngrok.io\n" +
		"TARGET_PHONE_NUMBER=+15551234567\n"
	if string(got) != want {
		t.Errorf("env file mismatch\nwant:\n%s\ngot:\n%s", want, string(got))
	}
}

/**
 * Test that a missing key is a hard error and the file stays untouched
 */
func TestEnvStoreSetMissingKey(t *testing.T) {
	content := "SLACK_BOT_TOKEN=xoxb-1\nSLACK_APP_TOKEN=xapp-1\n"
	path := writeEnvFile(t, content)

	store := NewEnvStore(path)
	err := store.Set("NGROK_URL", "https://abc123.ngrok.io")
	if err == nil {
		t.Fatal("Set should fail when the key is missing")
	}
	if !errors.Is(err, config.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got: %v", err)
	}

	got, _ := os.ReadFile(path)
	if string(got) != content {
		t.Errorf("env file was modified on failed Set:\n%s", string(got))
	}
}

// 精确前缀匹配：NGROK_URL不能命中NGROK_URL_OLD
func TestEnvStoreSetExactKeyPrefix(t *testing.T) {
	content := "NGROK_URL_OLD=https://stale.example.com\nNGROK_URL=https://old.example.com\n"
	path := writeEnvFile(t, content)

	store := NewEnvStore(path)
	if err := store.Set("NGROK_URL", "https://new.example.com"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, _ := os.ReadFile(path)
	want := "NGROK_URL_OLD=https://stale.example.com\nNGROK_URL=https://new.example.com\n"
	if string(got) != want {
		t.Errorf("env file mismatch\nwant:\n%s\ngot:\n%s", want, string(got))
	}
}

// 目标行是最后一行且没有换行符时，不得引入额外换行
func TestEnvStoreSetNoTrailingNewline(t *testing.T) {
	content := "SLACK_CHANNEL=plivo_sports_updates\nNGROK_URL=https://old.example.com"
	path := writeEnvFile(t, content)

	store := NewEnvStore(path)
	if err := store.Set("NGROK_URL", "https://new.example.com"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, _ := os.ReadFile(path)
	want := "SLACK_CHANNEL=plivo_sports_updates\nNGROK_URL=https://new.example.com"
	if string(got) != want {
		t.Errorf("env file mismatch\nwant:\n%q\ngot:\n%q", want, string(got))
	}
}

// CRLF行尾必须原样保留
func TestEnvStoreSetKeepsCRLF(t *testing.T) {
	content := "A=1\r\nNGROK_URL=https://old.example.com\r\nB=2\r\n"
	path := writeEnvFile(t, content)

	store := NewEnvStore(path)
	if err := store.Set("NGROK_URL", "https://new.example.com"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, _ := os.ReadFile(path)
	want := "A=1\r\nNGROK_URL=https://new.example.com\r\nB=2\r\n"
	if string(got) != want {
		t.Errorf("env file mismatch\nwant:\n%q\ngot:\n%q", want, string(got))
	}
}

func TestEnvStoreGet(t *testing.T) {
	path := writeEnvFile(t, "NGROK_URL=https://abc123.ngrok.io\n")

	store := NewEnvStore(path)
	value, err := store.Get("NGROK_URL")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != "https://abc123.ngrok.io" {
		t.Errorf("unexpected value: %s", value)
	}

	if _, err := store.Get("MISSING"); !errors.Is(err, config.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got: %v", err)
	}
}

func TestEnvStoreKeys(t *testing.T) {
	path := writeEnvFile(t, "# comment\nA=1\n\nB=2\nNGROK_URL=x\n")

	store := NewEnvStore(path)
	keys, err := store.Keys()
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	want := []string{"A", "B", "NGROK_URL"}
	if len(keys) != len(want) {
		t.Fatalf("unexpected keys: %v", keys)
	}
	for i, k := range want {
		if keys[i] != k {
			t.Errorf("keys[%d]: want %s, got %s", i, k, keys[i])
		}
	}
}

func TestEnvStoreEnviron(t *testing.T) {
	path := writeEnvFile(t, "SLACK_BOT_TOKEN=xoxb-1\nNGROK_URL=https://abc123.ngrok.io\n")

	store := NewEnvStore(path)
	environ, err := store.Environ()
	if err != nil {
		t.Fatalf("Environ failed: %v", err)
	}
	found := false
	for _, pair := range environ {
		if pair == "NGROK_URL=https://abc123.ngrok.io" {
			found = true
		}
	}
	if !found {
		t.Errorf("NGROK_URL pair missing from environ: %v", environ)
	}
}
