package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"tempbot-keeper/internal/config"
	"tempbot-keeper/internal/env"
	"tempbot-keeper/internal/logger"
	"tempbot-keeper/internal/models"
	"tempbot-keeper/internal/utils"

	"github.com/google/uuid"
)

// botPidfile 主进程pidfile名，和隧道pidfile区分开
const botPidfile = "bot"

// BotArgs 主进程命令模板参数
type BotArgs struct {
	Python     string
	ProjectDir string
	VenvDir    string
}

/**
 * Launcher 开发环境编排器
 * @description
 * - Brings the development environment into a known-good running state:
 *   cleanup -> tunnel -> URL discovery -> env file update -> bot handoff
 * - Strictly sequential, no rollback
 * - Each run is identified by a uuid and persisted for the status command
 */
type Launcher struct {
	cfg         *config.AppConfig
	tm          *TunnelManager
	state       models.LaunchState
	SkipCleanup bool
}

func NewLauncher() *Launcher {
	return &Launcher{
		cfg: &config.Config,
		tm:  GetTunnelManager(),
	}
}

// envFilePath 相对路径基于项目目录解析，保证从任意工作目录启动行为一致
func (l *Launcher) envFilePath() string {
	p := l.cfg.Env.File
	if !filepath.IsAbs(p) {
		p = filepath.Join(env.GetProjectDir(), p)
	}
	return p
}

func launchStateFname() string {
	return filepath.Join(env.TempbotDir, "cache", "launch.json")
}

func (l *Launcher) saveState() {
	cacheDir := filepath.Join(env.TempbotDir, "cache")
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		logger.Errorf("Failed to create cache directory: %v", err)
		return
	}
	data, err := json.MarshalIndent(&l.state, "", "  ")
	if err != nil {
		logger.Errorf("Failed to serialize launch state: %v", err)
		return
	}
	if err := os.WriteFile(launchStateFname(), data, 0644); err != nil {
		logger.Errorf("Failed to write launch state file: %v", err)
	}
}

/**
 * Load the launch state persisted by the most recent run
 * @returns {(*models.LaunchState, error)} Launch state and error if any
 */
func LoadLaunchState() (*models.LaunchState, error) {
	data, err := os.ReadFile(launchStateFname())
	if err != nil {
		return nil, fmt.Errorf("no launch state recorded: %w", err)
	}
	var state models.LaunchState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse launch state: %w", err)
	}
	return &state, nil
}

func (l *Launcher) botProcessName() string {
	name := l.cfg.Bot.ProcessName
	if runtime.GOOS == "windows" {
		name = fmt.Sprintf("%s.exe", name)
	}
	return name
}

/**
 * Resolve the interpreter of the isolated dependency environment
 * @param {string} venvDir - Virtualenv directory
 * @returns {string} Interpreter path inside the venv, or the system one
 * @description
 * - venv/bin/python on Unix, venv/Scripts/python.exe on Windows
 * - Falls back to the interpreter on PATH when the venv does not exist
 */
func (l *Launcher) venvPython(venvDir string) string {
	var python string
	if runtime.GOOS == "windows" {
		python = filepath.Join(venvDir, "Scripts", "python.exe")
	} else {
		python = filepath.Join(venvDir, "bin", "python")
	}
	if _, err := os.Stat(python); err != nil {
		logger.Warnf("Venv interpreter '%s' not found, falling back to PATH", python)
		if runtime.GOOS == "windows" {
			return "python"
		}
		return "python3"
	}
	return python
}

/**
 * Create process instance for the main bot process
 * @returns {(*ProcessInstance, error)} Returns process instance and error if any
 * @description
 * - Command and args are expanded from config templates
 *   (variables: Python, ProjectDir, VenvDir)
 * - Child environment combines the current environment, the env file
 *   pairs (dotenv equivalent) and venv activation variables
 */
func (l *Launcher) createBotInstance() (*ProcessInstance, error) {
	cfg := l.cfg
	projectDir := env.GetProjectDir()
	venvDir := cfg.Bot.VenvDir
	if !filepath.IsAbs(venvDir) {
		venvDir = filepath.Join(projectDir, venvDir)
	}

	args := BotArgs{
		Python:     l.venvPython(venvDir),
		ProjectDir: projectDir,
		VenvDir:    venvDir,
	}
	command, cmdArgs, err := utils.GetCommandLine(cfg.Bot.Command, cfg.Bot.Args, args)
	if err != nil {
		logger.Errorf("Bot startup settings are incorrect, setting: %+v", cfg.Bot)
		return nil, err
	}

	store := NewEnvStore(l.envFilePath())
	pairs, err := store.Environ()
	if err != nil {
		return nil, err
	}

	proc := NewProcessInstance("bot", cfg.Bot.ProcessName, command, cmdArgs)
	proc.WorkDir = projectDir

	venvBin := filepath.Dir(args.Python)
	environ := append(os.Environ(), pairs...)
	environ = append(environ, "VIRTUAL_ENV="+venvDir)
	environ = append(environ, "PATH="+venvBin+string(os.PathListSeparator)+os.Getenv("PATH"))
	proc.Env = environ
	return proc, nil
}

/**
 * Terminate stale processes left behind by previous runs
 * @description
 * - Tunnel: pidfile read-and-signal, then process-name fallback
 * - Bot: pidfile only, the interpreter name (python) is far too generic
 *   to kill by name safely
 * - Absence of matches is not an error, every step is best-effort
 */
func (l *Launcher) Cleanup() {
	l.tm.CleanupStale()

	pid, err := utils.ReadPidfile(botPidfile)
	if err == nil && pid > 0 {
		if _, ferr := utils.FindProcess(l.botProcessName(), pid); ferr == nil {
			if kerr := utils.KillProcessByPID(pid); kerr != nil {
				logger.Warnf("Failed to kill stale bot process (PID: %d): %v", pid, kerr)
			} else {
				logger.Infof("Killed stale bot process (PID: %d)", pid)
			}
		}
	}
	utils.RemovePidfile(botPidfile)
}

/**
 * Terminate stale processes by name as well, ignoring pidfiles
 * @description
 * - Kills every process matching the tunnel and bot process names
 * - The bot interpreter name is generic (python), so name matching is
 *   reserved for this explicit opt-in path
 */
func (l *Launcher) ForceClean() {
	l.Cleanup()
	if err := utils.KillSpecifiedProcesses([]string{l.tm.processName(), l.botProcessName()}); err != nil {
		logger.Warnf("Force cleanup failed: %v", err)
	}
}

/**
 * Run the whole launch sequence
 * @param {context.Context} ctx - Context for cancellation
 * @returns {(int, error)} Exit code for the keeper process and error if any
 * @description
 * - Steps run strictly in sequence with no rollback
 * - Cleanup and tunnel start are best-effort, a failure there surfaces
 *   later as a discovery failure
 * - Discovery failure is fatal: exit code 1, env file untouched
 * - Missing env key is fatal: exit code 1 (silent no-op would leave the
 *   bot calling a dead URL)
 * - The bot's exit code is forwarded unmasked as the keeper's own
 */
func (l *Launcher) Run(ctx context.Context) (int, error) {
	cfg := l.cfg
	l.state = models.LaunchState{
		LaunchId:  uuid.NewString(),
		StartTime: time.Now(),
		Status:    models.StatusRunning,
	}
	logger.Infof("Launch %s starting", l.state.LaunchId)

	// Step 1: 清理残留进程
	if !l.SkipCleanup {
		l.Cleanup()
		// 等待操作系统释放端口
		time.Sleep(cfg.Launch.CleanupDelay)
	}

	// Step 2: 启动隧道进程
	// 失败不立即退出：隧道可能已由外部启动，发现阶段仍然可以成功
	if err := l.tm.StartTunnel(ctx); err != nil {
		logger.Warnf("Failed to start tunnel process: %v", err)
	}

	// Step 3: 发现公网地址
	publicURL, err := l.tm.DiscoverPublicURL(ctx)
	if err != nil {
		RecordLaunchResult("discovery_failed")
		PushMetrics()
		l.state.Status = models.StatusError
		l.saveState()
		return 1, fmt.Errorf("could not obtain public URL: %w", err)
	}

	// Step 4: 把公网地址写入配置文件
	store := NewEnvStore(l.envFilePath())
	if err := store.Set(cfg.Env.Key, publicURL); err != nil {
		RecordLaunchResult("env_failed")
		PushMetrics()
		l.state.Status = models.StatusError
		l.saveState()
		return 1, fmt.Errorf("could not update env file: %w", err)
	}
	logger.Infof("Persisted %s=%s into %s", cfg.Env.Key, publicURL, store.Path())

	// Step 5: 前台启动主进程并等待
	bot, err := l.createBotInstance()
	if err != nil {
		RecordLaunchResult("start_failed")
		PushMetrics()
		l.state.Status = models.StatusError
		l.saveState()
		return 1, err
	}
	if err := bot.Start(ctx); err != nil {
		RecordLaunchResult("start_failed")
		PushMetrics()
		l.state.Status = models.StatusError
		l.saveState()
		return 1, err
	}
	GetProcessManager().Register(bot)
	if err := utils.WritePidfile(botPidfile, bot.Pid()); err != nil {
		logger.Warnf("Failed to write bot pidfile: %v", err)
	}
	for _, detail := range GetProcessManager().List() {
		logger.Debugf("Supervising process '%s' (PID: %d, status: %s)",
			detail.Title, detail.Pid, detail.Status)
	}

	l.state.TunnelPid = l.tm.State().Pid
	l.state.BotPid = bot.Pid()
	l.state.PublicURL = publicURL
	l.saveState()

	RecordLaunchResult("started")
	PushMetrics()

	code, werr := bot.Wait()
	utils.RemovePidfile(botPidfile)
	l.state.Status = models.StatusExited
	l.saveState()
	if werr != nil {
		return 1, werr
	}
	return code, nil
}
