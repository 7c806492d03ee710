package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Path2ProcessName 从命令行路径提取进程名
func Path2ProcessName(path string) string {
	return filepath.Base(strings.TrimSpace(path))
}

/**
 * Find process object matching both PID and process name
 * @param {string} processName - Expected process name
 * @param {int} pid - Process ID to look up
 * @returns {(*os.Process, error)} Process object and error if any
 * @description
 * - Verifies the process name before returning, so a recycled PID is
 *   never mistaken for the process recorded in a pidfile
 */
func FindProcess(processName string, pid int) (*os.Process, error) {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil, err
	}

	name, err := GetProcessName(pid)
	if err != nil {
		return nil, fmt.Errorf("failed to get process name for PID %d: %v", pid, err)
	}

	// 比较进程名（不区分大小写）
	if strings.EqualFold(name, processName) {
		return proc, nil
	}
	return nil, fmt.Errorf("process name mismatch: expected '%s', got '%s'", processName, name)
}

/**
 * Kill all processes matching the given names
 * @param {[]string} targetProcesses - Process names to terminate
 * @returns {error} Returns the last error encountered, nil when all succeed
 * @description
 * - Termination is best-effort: absence of a match is not an error
 * - Each name is handled independently, one failure does not stop the rest
 */
func KillSpecifiedProcesses(targetProcesses []string) error {
	var last error
	for _, processName := range targetProcesses {
		if err := KillSpecifiedProcess(processName); err != nil {
			last = err
		}
	}
	return last
}
