package models

import "time"

/**
 * Result of a single keeper launch, persisted for the status command
 * @property {string} launchId - Unique id of this launch run
 * @property {int} tunnelPid - PID of the tunnel process started by this run
 * @property {int} botPid - PID of the foreground bot process
 * @property {string} publicUrl - Public URL written into the env file
 * @property {time.Time} startTime - When the launch sequence started
 * @property {string} status - running/exited/error
 */
type LaunchState struct {
	LaunchId  string    `json:"launchId"`
	TunnelPid int       `json:"tunnelPid"`
	BotPid    int       `json:"botPid"`
	PublicURL string    `json:"publicUrl"`
	StartTime time.Time `json:"startTime"`
	Status    RunStatus `json:"status"`
}
