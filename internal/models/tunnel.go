package models

import "time"

// NgrokTunnel is a single tunnel record returned by the ngrok local API.
type NgrokTunnel struct {
	Name      string `json:"name"`
	ID        string `json:"ID"`
	URI       string `json:"uri"`
	PublicURL string `json:"public_url"`
	Proto     string `json:"proto"`
	Config    struct {
		Addr string `json:"addr"`
	} `json:"config"`
}

// TunnelsResponse is the tunnel list response of the ngrok local API
// (GET http://localhost:4040/api/tunnels).
type TunnelsResponse struct {
	Tunnels []NgrokTunnel `json:"tunnels"`
	URI     string        `json:"uri"`
}

/**
 * Tunnel state persisted between keeper runs
 * @property {string} name - Tunnel process name
 * @property {int} localPort - Local port exposed through the tunnel
 * @property {string} publicUrl - Last discovered public URL
 * @property {int} pid - Tunnel process PID
 * @property {string} status - running/exited/stopped/error
 * @property {time.Time} createdTime - Tunnel start time
 */
type TunnelState struct {
	Name        string    `json:"name"`
	LocalPort   int       `json:"localPort"`
	PublicURL   string    `json:"publicUrl"`
	Pid         int       `json:"pid"`
	Status      RunStatus `json:"status"`
	CreatedTime time.Time `json:"createdTime"`
}
