package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"tempbot-keeper/internal/config"
	"tempbot-keeper/internal/env"
	"tempbot-keeper/internal/logger"
	"tempbot-keeper/internal/models"
	"tempbot-keeper/internal/utils"

	"github.com/cenkalti/backoff/v4"
)

// TunnelArgs 隧道命令模板参数
type TunnelArgs struct {
	LocalPort   int
	ProcessName string
	ProcessPath string
}

type TunnelManager struct {
	cfg    *config.AppConfig
	proc   *ProcessInstance
	state  models.TunnelState
	client *http.Client
}

var tunnelManager *TunnelManager

/**
 * Get singleton instance of TunnelManager
 * @returns {*TunnelManager} Returns the singleton TunnelManager instance
 * @description
 * - Implements singleton pattern to ensure only one TunnelManager exists
 * - Loads persisted tunnel state on first creation
 * @example
 * tunnelMgr := GetTunnelManager()
 * err := tunnelMgr.StartTunnel(ctx)
 */
func GetTunnelManager() *TunnelManager {
	if tunnelManager != nil {
		return tunnelManager
	}
	tm := &TunnelManager{
		cfg:    &config.Config,
		client: &http.Client{Timeout: 5 * time.Second},
	}
	tm.loadState()
	tunnelManager = tm
	return tunnelManager
}

func (tm *TunnelManager) getTitle() string {
	return fmt.Sprintf("%s:%d", tm.state.Name, tm.state.LocalPort)
}

func (tm *TunnelManager) stateFname() string {
	return filepath.Join(env.TempbotDir, "cache", "tunnel.json")
}

/**
 * Save tunnel state to cache file
 * @returns {error} Returns error if save operation fails, nil on success
 */
func (tm *TunnelManager) saveState() error {
	err := func() error {
		cacheDir := filepath.Join(env.TempbotDir, "cache")
		if err := os.MkdirAll(cacheDir, 0755); err != nil {
			return fmt.Errorf("failed to create cache directory: %w", err)
		}
		data, err := json.MarshalIndent(&tm.state, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to serialize tunnel state: %w", err)
		}
		if err := os.WriteFile(tm.stateFname(), data, 0644); err != nil {
			return fmt.Errorf("failed to write tunnel state file: %w", err)
		}
		return nil
	}()
	if err != nil {
		logger.Errorf("Save tunnel state failed: %v", err)
	}
	return err
}

func (tm *TunnelManager) loadState() {
	data, err := os.ReadFile(tm.stateFname())
	if err != nil {
		return
	}
	var cached models.TunnelState
	if err := json.Unmarshal(data, &cached); err != nil {
		return
	}
	tm.state = cached
	// 校验缓存的PID是否还对应隧道进程
	if tm.state.Pid > 0 {
		if _, err := utils.FindProcess(tm.processName(), tm.state.Pid); err != nil {
			tm.state.Pid = 0
			tm.state.Status = models.StatusExited
		}
	}
	logger.Debugf("Loaded tunnel state (%s, PID:%d) from cache", tm.getTitle(), tm.state.Pid)
}

func (tm *TunnelManager) cleanState() {
	fname := tm.stateFname()
	if _, err := os.Stat(fname); err == nil {
		if err := os.Remove(fname); err != nil {
			logger.Errorf("Failed to delete tunnel state file: %v", err)
		}
	}
}

// processName 返回带平台后缀的隧道进程名
func (tm *TunnelManager) processName() string {
	name := tm.cfg.Tunnel.ProcessName
	if runtime.GOOS == "windows" {
		name = fmt.Sprintf("%s.exe", name)
	}
	return name
}

/**
 * Create process instance for tunnel execution
 * @returns {(*ProcessInstance, error)} Returns process instance and error if any
 * @description
 * - Uses text/template to expand command and arguments from config
 * - Template variables: LocalPort, ProcessName, ProcessPath
 * - Combined output is redirected to the configured tunnel log file
 */
func (tm *TunnelManager) createProcessInstance() (*ProcessInstance, error) {
	cfg := tm.cfg
	name := tm.processName()
	args := TunnelArgs{
		LocalPort:   cfg.Tunnel.LocalPort,
		ProcessName: name,
		ProcessPath: filepath.Join(env.TempbotDir, "bin", name),
	}
	command, cmdArgs, err := utils.GetCommandLine(cfg.Tunnel.Command, cfg.Tunnel.Args, args)
	if err != nil {
		logger.Errorf("Tunnel startup settings are incorrect, setting: %+v", cfg.Tunnel)
		return nil, err
	}
	proc := NewProcessInstance("tunnel "+cfg.Tunnel.ProcessName, name, command, cmdArgs)
	proc.LogPath = cfg.Tunnel.LogPath
	return proc, nil
}

/**
 * Start tunnel process detached
 * @param {context.Context} ctx - Context for startup
 * @returns {error} Returns error if start fails, nil on success
 * @description
 * - Returns immediately when the recorded tunnel process is still running,
 *   attaching to it so stop works in the same invocation
 * - Starts the tunnel in its own process group so it outlives the keeper
 * - Writes a pidfile for reliable cleanup on the next run
 * - Persists tunnel state to the cache file
 */
func (tm *TunnelManager) StartTunnel(ctx context.Context) error {
	if tm.proc != nil && tm.proc.CheckProcess() {
		logger.Infof("Tunnel (%s) already running, PID: %d", tm.getTitle(), tm.proc.Pid())
		return nil
	}
	if tm.state.Pid > 0 {
		if running, err := utils.IsProcessRunning(tm.state.Pid); err == nil && running {
			// 进程名校验由AttachProcess完成，PID被回收时附加失败并走重启路径
			if proc, cerr := tm.createProcessInstance(); cerr == nil {
				if proc.AttachProcess(tm.state.Pid) == nil {
					GetProcessManager().Register(proc)
					tm.proc = proc
					logger.Infof("Tunnel (%s) already running, PID: %d", tm.getTitle(), tm.state.Pid)
					return nil
				}
			}
		}
	}

	proc, err := tm.createProcessInstance()
	if err != nil {
		return fmt.Errorf("failed to get command info: %w", err)
	}

	tm.state = models.TunnelState{
		Name:      tm.cfg.Tunnel.ProcessName,
		LocalPort: tm.cfg.Tunnel.LocalPort,
		Status:    models.StatusError,
	}
	defer func() {
		tm.saveState()
	}()

	if err := proc.StartDetached(ctx); err != nil {
		return err
	}
	GetProcessManager().Register(proc)
	tm.proc = proc
	tm.state.Status = models.StatusRunning
	tm.state.Pid = proc.Pid()
	tm.state.CreatedTime = proc.StartTime

	if err := utils.WritePidfile(tm.cfg.Tunnel.ProcessName, proc.Pid()); err != nil {
		logger.Warnf("Failed to write tunnel pidfile: %v", err)
	}

	logger.Infof("Successfully started tunnel (%s), process: %s (PID: %d), log: %s",
		tm.getTitle(), proc.ProcessName, proc.Pid(), tm.cfg.Tunnel.LogPath)
	return nil
}

/**
 * Stop tunnel process and clean up resources
 * @returns {error} Returns error if stop fails, nil on success
 * @description
 * - Stops the attached instance when one exists in this invocation
 * - Otherwise resolves the tunnel PID from the pidfile, process-name
 *   matching is only the fallback
 * - Removes pidfile and state cache afterwards
 */
func (tm *TunnelManager) StopTunnel() error {
	name := tm.cfg.Tunnel.ProcessName
	if tm.proc != nil {
		if err := tm.proc.StopProcess(); err != nil {
			logger.Errorf("Failed to stop tunnel process: %v", err)
		}
		utils.RemovePidfile(name)
		tm.cleanState()
		tm.state.Status = models.StatusStopped
		tm.state.Pid = 0
		tm.proc = nil
		return nil
	}

	pid, err := utils.ReadPidfile(name)
	if err != nil {
		logger.Warnf("Failed to read tunnel pidfile: %v", err)
	}
	if pid > 0 {
		if _, err := utils.FindProcess(tm.processName(), pid); err == nil {
			if err := utils.KillProcessByPID(pid); err != nil {
				logger.Errorf("Failed to kill tunnel process (PID: %d): %v", pid, err)
			} else {
				logger.Infof("Stopped tunnel (%s) (PID: %d)", tm.getTitle(), pid)
			}
		}
	} else {
		// 没有pidfile，退回按进程名匹配
		if err := utils.KillSpecifiedProcess(tm.processName()); err != nil {
			logger.Warnf("Failed to kill tunnel by name '%s': %v", name, err)
		}
	}
	utils.RemovePidfile(name)
	tm.cleanState()

	tm.state.Status = models.StatusStopped
	tm.state.Pid = 0
	tm.proc = nil
	return nil
}

/**
 * Terminate stale tunnel processes left behind by previous runs
 * @description
 * - pidfile read-and-signal first (PID verified against the process name)
 * - Falls back to process-name matching when no pidfile exists
 * - Absence of a match is not an error, cleanup is best-effort
 */
func (tm *TunnelManager) CleanupStale() {
	name := tm.cfg.Tunnel.ProcessName
	pid, err := utils.ReadPidfile(name)
	if err == nil && pid > 0 {
		if _, ferr := utils.FindProcess(tm.processName(), pid); ferr == nil {
			if kerr := utils.KillProcessByPID(pid); kerr != nil {
				logger.Warnf("Failed to kill stale tunnel (PID: %d): %v", pid, kerr)
			} else {
				logger.Infof("Killed stale tunnel process (PID: %d)", pid)
			}
		}
		utils.RemovePidfile(name)
	}
	// pidfile可能丢失或过期，按进程名再清理一遍
	if err := utils.KillSpecifiedProcess(tm.processName()); err != nil {
		logger.Warnf("Cleanup by name '%s' failed: %v", name, err)
	}
	tm.state.Pid = 0
	tm.state.Status = models.StatusStopped
}

/**
 * Query the tunnel control-plane status endpoint
 * @param {context.Context} ctx - Context for request cancellation and timeout
 * @returns {(*models.TunnelsResponse, error)} Tunnel records and error if any
 */
func (tm *TunnelManager) queryTunnels(ctx context.Context) (*models.TunnelsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", tm.cfg.Tunnel.ApiUrl, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := tm.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request tunnel API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tunnel API returned error status code: %d", resp.StatusCode)
	}

	var result models.TunnelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &result, nil
}

// firstHTTPSURL 按接口返回顺序选择第一个HTTPS公网地址
func firstHTTPSURL(resp *models.TunnelsResponse) (string, bool) {
	for _, tun := range resp.Tunnels {
		if strings.HasPrefix(tun.PublicURL, "https://") {
			return tun.PublicURL, true
		}
	}
	return "", false
}

/**
 * Discover the public URL assigned by the tunnel process
 * @param {context.Context} ctx - Context bounding the whole poll
 * @returns {(string, error)} First public HTTPS URL and error if any
 * @description
 * - Polls the control API under exponential backoff instead of a fixed
 *   sleep, the tunnel registers with its local API asynchronously
 * - Connection errors and empty tunnel lists are both retried until the
 *   configured discovery timeout elapses
 * - Selection is deterministic: first HTTPS record in endpoint order
 * - Discovered URL is persisted into the tunnel state cache
 */
func (tm *TunnelManager) DiscoverPublicURL(ctx context.Context) (string, error) {
	cfg := tm.cfg.Discovery

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialInterval
	b.MaxInterval = cfg.MaxInterval
	b.MaxElapsedTime = cfg.Timeout

	var publicURL string
	operation := func() error {
		RecordDiscoveryAttempt()
		resp, err := tm.queryTunnels(ctx)
		if err != nil {
			logger.Debugf("Tunnel API not ready: %v", err)
			return err
		}
		url, ok := firstHTTPSURL(resp)
		if !ok {
			return errors.New("no https tunnel registered yet")
		}
		publicURL = url
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", fmt.Errorf("failed to discover public URL from %s: %w", tm.cfg.Tunnel.ApiUrl, err)
	}

	logger.Infof("Discovered public URL: %s", publicURL)
	tm.state.PublicURL = publicURL
	tm.saveState()
	return publicURL, nil
}

/**
 * List all tunnel records reported by the control API
 * @param {context.Context} ctx - Context for request cancellation
 * @returns {([]models.NgrokTunnel, error)} Tunnel records and error if any
 */
func (tm *TunnelManager) ListTunnels(ctx context.Context) ([]models.NgrokTunnel, error) {
	resp, err := tm.queryTunnels(ctx)
	if err != nil {
		return nil, err
	}
	return resp.Tunnels, nil
}

func (tm *TunnelManager) State() models.TunnelState {
	return tm.state
}
