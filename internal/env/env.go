package env

import (
	"os"
	"path/filepath"
)

// (default: %USERPROFILE%/.tempbot on Windows, $HOME/.tempbot on Linux)
var TempbotDir string = GetTempbotDir()

/**
 * Get tempbot keeper directory path
 * @returns {string} Returns tempbot directory path
 */
func GetTempbotDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".tempbot")
}

/**
 * Resolve the bot project directory
 * @returns {string} Returns the project directory path
 * @description
 * - TEMPBOT_PROJECT environment variable takes precedence
 * - Otherwise the directory containing the keeper executable is used,
 *   so the keeper can be invoked from any working directory
 * - Falls back to the current working directory
 */
func GetProjectDir() string {
	if dir := os.Getenv("TEMPBOT_PROJECT"); dir != "" {
		return dir
	}
	if exe, err := os.Executable(); err == nil {
		return filepath.Dir(exe)
	}
	dir, _ := os.Getwd()
	return dir
}
