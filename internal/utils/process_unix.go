//go:build !windows

package utils

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"tempbot-keeper/internal/logger"
)

// SetNewPG 设置进程属性，使子进程在父进程退出后继续运行
func SetNewPG(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// KillProcessByPID 根据PID杀死进程
func KillProcessByPID(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process with PID %d: %v", pid, err)
	}
	return killProcessGracefully(process, pid)
}

// IsProcessRunning 检查进程是否正在运行
func IsProcessRunning(pid int) (bool, error) {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false, fmt.Errorf("failed to find process with PID %d: %v", pid, err)
	}

	// 发送signal 0来检查进程是否存在
	err = process.Signal(syscall.Signal(0))
	if err != nil {
		return false, nil
	}
	return true, nil
}

/**
 * Get process name by PID
 * @param {int} pid - Process ID
 * @returns {(string, error)} Process name and error if any
 * @description
 * - Uses ps with a custom format so the same code works on Linux and Darwin
 */
func GetProcessName(pid int) (string, error) {
	cmd := exec.Command("ps", "-p", strconv.Itoa(pid), "-o", "command=")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to query process %d: %v", pid, err)
	}
	line := strings.TrimSpace(string(output))
	if line == "" {
		return "", fmt.Errorf("no process found for PID %d", pid)
	}
	fields := strings.Fields(line)
	return filepath.Base(fields[0]), nil
}

/**
 * Kill processes by name on Unix systems (Linux/macOS)
 * @param {string} processName - Name of the process to kill
 * @returns {error} Returns error if process enumeration fails, nil on success
 * @description
 * - Uses ps command to enumerate processes with compatible format for both Linux and Darwin
 * - Parses output to find target process PIDs
 * - Implements graceful termination: first SIGTERM, then SIGKILL if needed
 * - Never kills the keeper's own process
 */
func KillSpecifiedProcess(processName string) error {
	logger.Debugf("Looking for process: %s", processName)

	selfPid := os.Getpid()

	// 使用兼容Linux和Darwin的ps命令格式
	// 使用command字段替代comm字段，避免命令名被截断
	cmd := exec.Command("ps", "-e", "-o", "pid,command")
	output, err := cmd.Output()
	if err != nil {
		logger.Errorf("Failed to list processes for %s: %v", processName, err)
		return err
	}

	lines := strings.Split(string(output), "\n")
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		// 跳过标题行
		if strings.Contains(line, "PID") && strings.Contains(line, "COMMAND") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		pidStr := fields[0]
		procName := Path2ProcessName(fields[1])
		// 检查进程名是否匹配（不区分大小写）
		if !strings.EqualFold(procName, processName) {
			continue
		}
		pid, err := strconv.Atoi(pidStr)
		if err != nil {
			continue
		}
		if pid == selfPid {
			continue
		}

		process, err := os.FindProcess(pid)
		if err != nil {
			continue
		}
		if err := killProcessGracefully(process, pid); err != nil {
			logger.Warnf("Failed to kill process %s (PID: %d): %v", processName, pid, err)
		} else {
			logger.Infof("Killed process %s (PID: %d)", processName, pid)
		}
	}
	return nil
}

/**
 * Kill process gracefully with SIGTERM first, then SIGKILL if needed
 * @param {*os.Process} process - Process object
 * @param {int} pid - Process ID for logging
 * @returns {error} Returns error if process killing fails, nil on success
 */
func killProcessGracefully(process *os.Process, pid int) error {
	// 首先尝试优雅终止 (SIGTERM)
	err := process.Signal(syscall.SIGTERM)
	if err == nil {
		for i := 0; i < 10; i++ {
			if err := process.Signal(syscall.Signal(0)); err != nil {
				// 进程已退出
				return nil
			}
			time.Sleep(100 * time.Millisecond)
		}
	}

	// 如果SIGTERM失败，使用强制终止 (SIGKILL)
	if err := process.Signal(syscall.SIGKILL); err != nil {
		return fmt.Errorf("failed to kill process with PID %d: %v", pid, err)
	}
	return nil
}
