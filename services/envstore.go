package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tempbot-keeper/internal/config"

	"github.com/subosito/gotenv"
)

/**
 * EnvStore 基于KEY=VALUE文本文件的配置存储
 * @property {string} path - Env file path
 * @description
 * - The file is the inter-run state shared with the bot process, which
 *   reads it at its own startup
 * - Set rewrites exactly one line and keeps every other line
 *   byte-for-byte unchanged
 */
type EnvStore struct {
	path string
}

func NewEnvStore(path string) *EnvStore {
	return &EnvStore{path: path}
}

func (s *EnvStore) Path() string {
	return s.path
}

/**
 * Get value for a key from the env file
 * @param {string} key - Key to look up
 * @returns {(string, error)} Value and error if any
 * @description
 * - Only whole-line matches with the exact "KEY=" prefix count
 * - Returns config.ErrKeyNotFound when no line matches
 */
func (s *EnvStore) Get(key string) (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("failed to read env file '%s': %w", s.path, err)
	}
	prefix := key + "="
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.HasPrefix(line, prefix) {
			return strings.TrimPrefix(line, prefix), nil
		}
	}
	return "", fmt.Errorf("%w: '%s' in %s", config.ErrKeyNotFound, key, s.path)
}

/**
 * List all keys present in the env file
 * @returns {([]string, error)} Keys in file order and error if any
 */
func (s *EnvStore) Keys() ([]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file '%s': %w", s.path, err)
	}
	var keys []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if idx := strings.Index(line, "="); idx > 0 {
			keys = append(keys, line[:idx])
		}
	}
	return keys, nil
}

/**
 * Set rewrites the line of the given key in place
 * @param {string} key - Key whose line is replaced
 * @param {string} value - New value
 * @returns {error} Returns error if the key is missing or the write fails
 * @description
 * - Whole-line replacement of the first line with the exact "KEY=" prefix
 * - Every other line stays byte-for-byte unchanged, including the line
 *   terminator of the replaced line (\n or \r\n)
 * - Missing key is a hard error, appending would hide typos in the file
 * - Write goes to a temp file in the same directory followed by rename,
 *   an interrupted update never leaves a partial file behind
 */
func (s *EnvStore) Set(key, value string) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read env file '%s': %w", s.path, err)
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("failed to stat env file '%s': %w", s.path, err)
	}

	prefix := key + "="
	// SplitAfter保留每行的换行符，未修改的行原样写回
	lines := strings.SplitAfter(string(data), "\n")
	found := false
	for i, line := range lines {
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		terminator := ""
		if strings.HasSuffix(line, "\r\n") {
			terminator = "\r\n"
		} else if strings.HasSuffix(line, "\n") {
			terminator = "\n"
		}
		lines[i] = prefix + value + terminator
		found = true
		break
	}
	if !found {
		return fmt.Errorf("%w: '%s' in %s", config.ErrKeyNotFound, key, s.path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".env-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(strings.Join(lines, "")); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, info.Mode()); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set temp file mode: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace env file: %w", err)
	}
	return nil
}

/**
 * Environ returns the env file content as KEY=VALUE pairs
 * @returns {([]string, error)} Pairs suitable for exec.Cmd Env and error if any
 * @description
 * - Parsed with gotenv, so quoting and comments follow dotenv rules
 */
func (s *EnvStore) Environ() ([]string, error) {
	pairs, err := gotenv.Read(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse env file '%s': %w", s.path, err)
	}
	var environ []string
	for k, v := range pairs {
		environ = append(environ, k+"="+v)
	}
	return environ, nil
}
