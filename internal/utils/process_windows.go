//go:build windows

package utils

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"unsafe"

	"tempbot-keeper/internal/logger"
)

// Windows API 常量和类型定义
const (
	PROCESS_QUERY_INFORMATION = 0x0400
	PROCESS_VM_READ           = 0x0010
	PROCESS_TERMINATE         = 0x0001
	STILL_ACTIVE              = 259 // 进程仍在运行的标志
)

var (
	kernel32               = syscall.NewLazyDLL("kernel32.dll")
	psapi                  = syscall.NewLazyDLL("psapi.dll")
	procOpenProcess        = kernel32.NewProc("OpenProcess")
	procCloseHandle        = kernel32.NewProc("CloseHandle")
	procEnumProcessModules = psapi.NewProc("EnumProcessModules")
	procGetModuleBaseNameW = psapi.NewProc("GetModuleBaseNameW")
	procTerminateProcess   = kernel32.NewProc("TerminateProcess")
	procGetExitCodeProcess = kernel32.NewProc("GetExitCodeProcess")
)

// SetNewPG 设置进程属性，使子进程在父进程退出后继续运行
// Windows系统实现
func SetNewPG(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

// KillProcessByPID 根据PID杀死进程
func KillProcessByPID(pid int) error {
	handle, _, err := procOpenProcess.Call(
		uintptr(PROCESS_TERMINATE),
		uintptr(0),
		uintptr(pid),
	)
	if handle == 0 {
		return fmt.Errorf("failed to open process with PID %d: %v", pid, err)
	}
	defer procCloseHandle.Call(handle)

	ret, _, err := procTerminateProcess.Call(
		handle,
		uintptr(1),
	)
	if ret == 0 {
		return fmt.Errorf("failed to terminate process with PID %d: %v", pid, err)
	}
	return nil
}

// IsProcessRunning 检查进程是否正在运行 使用 GetExitCodeProcess 检查进程是否正在运行
func IsProcessRunning(pid int) (bool, error) {
	handle, _, _ := procOpenProcess.Call(
		uintptr(PROCESS_QUERY_INFORMATION),
		uintptr(0),
		uintptr(pid),
	)
	if handle == 0 {
		// 如果无法打开进程句柄，通常表示进程不存在
		return false, nil
	}
	defer procCloseHandle.Call(handle)

	var exitCode uint32
	ret, _, err := procGetExitCodeProcess.Call(
		handle,
		uintptr(unsafe.Pointer(&exitCode)),
	)
	if ret == 0 {
		return false, fmt.Errorf("failed to get exit code for process with PID %d: %v", pid, err)
	}

	// 如果退出码是 STILL_ACTIVE，则进程仍在运行
	return exitCode == STILL_ACTIVE, nil
}

// getProcessName 根据PID获取进程名
func getProcessName(pid uint32) (string, error) {
	handle, _, _ := procOpenProcess.Call(
		uintptr(PROCESS_QUERY_INFORMATION|PROCESS_VM_READ),
		uintptr(0),
		uintptr(pid),
	)
	if handle == 0 {
		return "", fmt.Errorf("failed to open process")
	}
	defer procCloseHandle.Call(handle)

	var nameBuffer [260]uint16 // MAX_PATH
	var hModule uintptr

	var cbNeeded uint32
	ret, _, err := procEnumProcessModules.Call(
		handle,
		uintptr(unsafe.Pointer(&hModule)),
		uintptr(unsafe.Sizeof(hModule)),
		uintptr(unsafe.Pointer(&cbNeeded)),
	)
	if ret == 0 {
		return "", fmt.Errorf("failed to enumerate modules: %v", err)
	}

	ret, _, err = procGetModuleBaseNameW.Call(
		handle,
		hModule,
		uintptr(unsafe.Pointer(&nameBuffer[0])),
		uintptr(len(nameBuffer)),
	)
	if ret == 0 {
		return "", fmt.Errorf("failed to get module base name: %v", err)
	}

	processName := syscall.UTF16ToString(nameBuffer[:])
	return processName, nil
}

func GetProcessName(pid int) (string, error) {
	return getProcessName(uint32(pid))
}

/**
 * Kill processes by name on Windows
 * @param {string} processName - Name of the process to kill (without .exe)
 * @returns {error} Returns error if process enumeration fails, nil on success
 * @description
 * - Uses tasklist CSV output to enumerate processes
 * - Matches image name with and without the .exe suffix
 * - Never kills the keeper's own process
 */
func KillSpecifiedProcess(processName string) error {
	selfPid := os.Getpid()

	cmd := exec.Command("tasklist", "/FO", "CSV", "/NH")
	output, err := cmd.Output()
	if err != nil {
		logger.Errorf("Failed to list processes for %s: %v", processName, err)
		return err
	}

	lines := strings.Split(string(output), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\",\"")
		if len(fields) < 2 {
			continue
		}
		imageName := strings.Trim(fields[0], "\"")
		baseName := strings.TrimSuffix(imageName, ".exe")
		if !strings.EqualFold(imageName, processName) && !strings.EqualFold(baseName, processName) {
			continue
		}
		pid, err := strconv.Atoi(strings.Trim(fields[1], "\""))
		if err != nil {
			continue
		}
		if pid == selfPid {
			continue
		}
		if err := KillProcessByPID(pid); err != nil {
			logger.Warnf("Failed to kill process %s (PID: %d): %v", processName, pid, err)
		} else {
			logger.Infof("Killed process %s (PID: %d)", processName, pid)
		}
	}
	return nil
}
