package utils

import (
	"fmt"
	"net"
	"time"
)

/**
 * Check whether something is listening on a localhost port
 * @param {int} port - Port number to probe
 * @returns {bool} Returns true when a connection succeeds
 */
func IsPortOpen(port int) bool {
	timeout := time.Second
	conn, err := net.DialTimeout("tcp", net.JoinHostPort("localhost", fmt.Sprintf("%d", port)), timeout)
	if err != nil {
		return false
	}
	if conn != nil {
		conn.Close()
		return true
	}
	return false
}
