package services

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"tempbot-keeper/internal/logger"
	"tempbot-keeper/internal/models"
	"tempbot-keeper/internal/utils"
)

/**
 * ProcessInstance 进程实例信息
 * @property {string} Title - 显示用的名字
 * @property {string} ProcessName - 进程列表显示的进程名，processName+pid可以确定一个进程身份，防误杀
 * @property {string} Command - 执行命令
 * @property {[]string} Args - 命令参数
 * @property {string} WorkDir - 工作目录
 * @property {[]string} Env - 子进程环境变量，nil表示继承
 * @property {string} LogPath - 后台进程输出重定向目标
 */
type ProcessInstance struct {
	Title          string
	ProcessName    string
	Command        string
	Args           []string
	WorkDir        string
	Env            []string
	LogPath        string
	Status         models.RunStatus
	StartTime      time.Time
	LastExitTime   time.Time
	LastExitReason string
	cmd            *exec.Cmd
	process        *os.Process
	mutex          sync.Mutex
}

/**
 * Create new process instance
 * @param {string} title - Display name, identifies the process across restarts
 * @param {string} procName - Process name as shown in the process list
 * @param {string} command - Command to execute
 * @param {[]string} args - Command arguments
 * @returns {*ProcessInstance} Returns the created process instance
 */
func NewProcessInstance(title, procName, command string, args []string) *ProcessInstance {
	return &ProcessInstance{
		Title:       title,
		ProcessName: procName,
		Command:     command,
		Args:        args,
		Status:      models.StatusExited,
	}
}

func (pi *ProcessInstance) Pid() int {
	if pi.process == nil {
		return 0
	}
	return pi.process.Pid
}

func (pi *ProcessInstance) GetDetail() models.ProcessDetail {
	return models.ProcessDetail{
		Title:          pi.Title,
		ProcessName:    pi.ProcessName,
		Command:        pi.Command,
		Args:           pi.Args,
		WorkDir:        pi.WorkDir,
		Pid:            pi.Pid(),
		Status:         pi.Status,
		StartTime:      pi.StartTime,
		LastExitTime:   pi.LastExitTime,
		LastExitReason: pi.LastExitReason,
	}
}

/**
 * StartDetached 启动后台进程
 * @param {context.Context} ctx - Context, only used for startup
 * @returns {error} 返回错误信息
 * @description
 * - 进程放入独立进程组，父进程退出后继续运行
 * - 合并的stdout/stderr重定向到LogPath，每次启动截断旧内容
 * - 不等待进程退出
 */
func (pi *ProcessInstance) StartDetached(ctx context.Context) error {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()

	if pi.Status == models.StatusRunning {
		return nil
	}
	logger.Infof("Executing command: %s %v", pi.Command, pi.Args)

	cmd := exec.Command(pi.Command, pi.Args...)
	if pi.WorkDir != "" {
		cmd.Dir = pi.WorkDir
	}
	if pi.Env != nil {
		cmd.Env = pi.Env
	}
	// 设置进程属性，使子进程在父进程退出后继续运行
	utils.SetNewPG(cmd)

	if pi.LogPath != "" {
		logFile, err := os.OpenFile(pi.LogPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			pi.Status = models.StatusError
			pi.LastExitReason = fmt.Sprintf("open log failed: %v", err)
			return fmt.Errorf("failed to open log file '%s': %w", pi.LogPath, err)
		}
		defer logFile.Close()
		cmd.Stdout = logFile
		cmd.Stderr = logFile
	}

	if err := cmd.Start(); err != nil {
		pi.Status = models.StatusError
		pi.LastExitReason = fmt.Sprintf("start failed: %v", err)
		logger.Errorf("Failed to start process '%s', error: %v", pi.Title, err)
		return err
	}

	pi.cmd = cmd
	pi.process = cmd.Process
	pi.Status = models.StatusRunning
	pi.StartTime = time.Now()

	// 后台进程不等待，由Release释放父进程侧资源
	go cmd.Wait()

	logger.Infof("Process '%s' started detached (PID: %d)", pi.Title, pi.Pid())
	return nil
}

/**
 * Start 启动前台进程
 * @param {context.Context} ctx - Context for cancellation
 * @returns {error} 返回错误信息
 * @description
 * - 子进程继承当前终端的stdin/stdout/stderr
 * - 不等待进程退出，调用方通过Wait()获取退出码
 */
func (pi *ProcessInstance) Start(ctx context.Context) error {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()

	if pi.Status == models.StatusRunning {
		return nil
	}
	logger.Infof("Executing command: %s %v", pi.Command, pi.Args)

	cmd := exec.CommandContext(ctx, pi.Command, pi.Args...)
	if pi.WorkDir != "" {
		cmd.Dir = pi.WorkDir
	}
	if pi.Env != nil {
		cmd.Env = pi.Env
	}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		pi.Status = models.StatusError
		pi.LastExitReason = fmt.Sprintf("start failed: %v", err)
		logger.Errorf("Failed to start process '%s', error: %v", pi.Title, err)
		return err
	}

	pi.cmd = cmd
	pi.process = cmd.Process
	pi.Status = models.StatusRunning
	pi.StartTime = time.Now()

	logger.Infof("Process '%s' started (PID: %d)", pi.Title, pi.Pid())
	return nil
}

/**
 * Wait 等待前台进程退出
 * @returns {(int, error)} 进程退出码和错误信息
 * @description
 * - 返回子进程的退出码，调用方将其作为自身退出码向上传递
 * - 非ExitError的失败返回-1和错误
 */
func (pi *ProcessInstance) Wait() (int, error) {
	pi.mutex.Lock()
	cmd := pi.cmd
	pi.mutex.Unlock()

	if cmd == nil {
		return -1, fmt.Errorf("process '%s' is not started", pi.Title)
	}

	err := cmd.Wait()

	pi.mutex.Lock()
	defer pi.mutex.Unlock()

	pi.LastExitTime = time.Now()
	pi.process = nil
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			pi.Status = models.StatusExited
			pi.LastExitReason = fmt.Sprintf("exited with code %d", exitErr.ExitCode())
			logger.Warnf("Process '%s' exited with code %d", pi.Title, exitErr.ExitCode())
			return exitErr.ExitCode(), nil
		}
		pi.Status = models.StatusError
		pi.LastExitReason = fmt.Sprintf("wait failed: %v", err)
		return -1, err
	}
	pi.Status = models.StatusExited
	pi.LastExitReason = "exited normally"
	logger.Infof("Process '%s' exited normally", pi.Title)
	return 0, nil
}

/**
 * AttachProcess 根据PID附加到现有进程
 * @param {int} pid - 进程ID
 * @returns {error} 返回错误信息
 * @description
 * - 根据PID查找并附加到现有进程
 * - 进程名必须与ProcessName匹配，防止PID被复用后误操作
 */
func (pi *ProcessInstance) AttachProcess(pid int) error {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()

	processObj, err := utils.FindProcess(pi.ProcessName, pid)
	if err != nil {
		logger.Warnf("Failed to find process '%s' with PID %d: %v", pi.ProcessName, pid, err)
		return err
	}

	pi.process = processObj
	pi.Status = models.StatusRunning
	pi.StartTime = time.Now()

	logger.Infof("Process '%s' attached (PID: %d, NAME: %s)", pi.Title, pid, pi.ProcessName)
	return nil
}

/**
 * StopProcess 停止进程
 * @returns {error} 返回错误信息
 */
func (pi *ProcessInstance) StopProcess() error {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()

	if pi.Status != models.StatusRunning {
		return nil
	}
	pi.Status = models.StatusStopped
	pi.LastExitTime = time.Now()
	pi.LastExitReason = "stopped by user"

	if pi.process != nil {
		pid := pi.process.Pid
		if err := utils.KillProcessByPID(pid); err != nil {
			logger.Errorf("Failed to kill process '%s' (PID: %d, NAME: %s): %v",
				pi.Title, pid, pi.ProcessName, err)
			return err
		}
		pi.process = nil
		logger.Infof("Process '%s' (PID: %d, NAME: %s) stopped", pi.Title, pid, pi.ProcessName)
	}
	return nil
}

// CheckProcess 检查进程是否仍在运行，已退出时同步状态
func (pi *ProcessInstance) CheckProcess() bool {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()

	if pi.Status != models.StatusRunning || pi.process == nil {
		return false
	}
	running, err := utils.IsProcessRunning(pi.process.Pid)
	if err != nil || !running {
		logger.Warnf("Process '%s' (PID: %d, NAME: %s) isn't running", pi.Title, pi.process.Pid, pi.ProcessName)
		pi.Status = models.StatusExited
		pi.process = nil
		return false
	}
	return true
}

type ProcessManager struct {
	instances []*ProcessInstance
	mutex     sync.Mutex
}

var processManager *ProcessManager

/**
 * Get singleton instance of ProcessManager
 * @returns {*ProcessManager} Returns the singleton ProcessManager instance
 */
func GetProcessManager() *ProcessManager {
	if processManager != nil {
		return processManager
	}
	processManager = &ProcessManager{}
	return processManager
}

func (pm *ProcessManager) Register(pi *ProcessInstance) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()
	pm.instances = append(pm.instances, pi)
}

func (pm *ProcessManager) List() []models.ProcessDetail {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	var details []models.ProcessDetail
	for _, pi := range pm.instances {
		details = append(details, pi.GetDetail())
	}
	return details
}
