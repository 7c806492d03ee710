package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"tempbot-keeper/internal/env"
)

/**
 * Get pidfile path for a managed process
 * @param {string} name - Process name
 * @returns {string} Returns pidfile path under the keeper run directory
 */
func PidfilePath(name string) string {
	return filepath.Join(env.TempbotDir, "run", fmt.Sprintf("%s.pid", name))
}

/**
 * Write pidfile for a managed process
 * @param {string} name - Process name
 * @param {int} pid - Process ID to record
 * @returns {error} Returns error if write fails, nil on success
 */
func WritePidfile(name string, pid int) error {
	runDir := filepath.Join(env.TempbotDir, "run")
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	if err := os.WriteFile(PidfilePath(name), []byte(strconv.Itoa(pid)), 0644); err != nil {
		return fmt.Errorf("failed to write pidfile: %w", err)
	}
	return nil
}

/**
 * Read pidfile of a managed process
 * @param {string} name - Process name
 * @returns {(int, error)} Recorded PID and error if any
 * @description
 * - Returns 0 without error when the pidfile does not exist
 */
func ReadPidfile(name string) (int, error) {
	data, err := os.ReadFile(PidfilePath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid pidfile content: %w", err)
	}
	return pid, nil
}

// RemovePidfile 删除pidfile，文件不存在时不报错
func RemovePidfile(name string) {
	os.Remove(PidfilePath(name))
}
