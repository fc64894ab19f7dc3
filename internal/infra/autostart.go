package infra

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

// LaunchAgent plist template (runs as user at login).
const launchAgentTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>

    <key>ProgramArguments</key>
    <array>
        <string>{{.ExecutablePath}}</string>
        <string>start</string>
    </array>

    <key>RunAtLoad</key>
    <true/>

    <key>KeepAlive</key>
    <dict>
        <key>Crashed</key>
        <true/>
    </dict>

    <key>StandardOutPath</key>
    <string>{{.LogPath}}</string>

    <key>StandardErrorPath</key>
    <string>{{.ErrorLogPath}}</string>

    <key>ProcessType</key>
    <string>Background</string>

    <key>ThrottleInterval</key>
    <integer>10</integer>
</dict>
</plist>`

// LaunchdLabel identifies the login item.
const LaunchdLabel = "com.focusd.siteblock"

type plistConfig struct {
	Label          string
	ExecutablePath string
	LogPath        string
	ErrorLogPath   string
}

// AutostartManager installs the daemon as a macOS LaunchAgent so it
// survives logout and reboot. On other platforms Install returns an
// error and the user wires their own service manager.
type AutostartManager struct {
	plistDir  string
	plistPath string
	logDir    string
	cmd       CommandRunner
}

// NewAutostartManager creates a manager writing under the user's
// LaunchAgents directory, with daemon logs under logDir.
func NewAutostartManager(logDir string) *AutostartManager {
	home, _ := os.UserHomeDir()
	plistDir := filepath.Join(home, "Library/LaunchAgents")
	return &AutostartManager{
		plistDir:  plistDir,
		plistPath: filepath.Join(plistDir, LaunchdLabel+".plist"),
		logDir:    logDir,
		cmd:       &RealCommandRunner{},
	}
}

// NewAutostartManagerWithDeps creates a manager with injectable paths
// and command runner (for testing).
func NewAutostartManagerWithDeps(plistDir, logDir string, cmd CommandRunner) *AutostartManager {
	return &AutostartManager{
		plistDir:  plistDir,
		plistPath: filepath.Join(plistDir, LaunchdLabel+".plist"),
		logDir:    logDir,
		cmd:       cmd,
	}
}

func (m *AutostartManager) generatePlistContent(execPath string) ([]byte, error) {
	cfg := plistConfig{
		Label:          LaunchdLabel,
		ExecutablePath: execPath,
		LogPath:        filepath.Join(m.logDir, "siteblock.log"),
		ErrorLogPath:   filepath.Join(m.logDir, "siteblock.error.log"),
	}

	tmpl, err := template.New("plist").Parse(launchAgentTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse plist template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, cfg); err != nil {
		return nil, fmt.Errorf("failed to execute plist template: %w", err)
	}
	return buf.Bytes(), nil
}

// Install writes and loads the plist.
func (m *AutostartManager) Install(execPath string) error {
	if err := os.MkdirAll(m.plistDir, 0o755); err != nil {
		return err
	}

	content, err := m.generatePlistContent(execPath)
	if err != nil {
		return err
	}
	if err := os.WriteFile(m.plistPath, content, 0o644); err != nil {
		return err
	}
	return m.load()
}

// Uninstall unloads and removes the plist.
func (m *AutostartManager) Uninstall() error {
	_ = m.unload() // may not be loaded
	err := os.Remove(m.plistPath)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// IsInstalled reports whether the plist is present.
func (m *AutostartManager) IsInstalled() bool {
	_, err := os.Stat(m.plistPath)
	return err == nil
}

// NeedsUpdate reports whether the installed plist differs from what
// Install would write now (e.g. the binary moved).
func (m *AutostartManager) NeedsUpdate(execPath string) bool {
	if !m.IsInstalled() {
		return false
	}
	current, err := os.ReadFile(m.plistPath)
	if err != nil {
		return true
	}
	expected, err := m.generatePlistContent(execPath)
	if err != nil {
		return true
	}
	return !bytes.Equal(current, expected)
}

// PlistPath returns the plist file path.
func (m *AutostartManager) PlistPath() string {
	return m.plistPath
}

// load loads the plist using launchctl. `launchctl load` is deprecated
// but still works; `bootstrap` would be the modern spelling.
func (m *AutostartManager) load() error {
	return m.cmd.Run(context.Background(), "launchctl", "load", m.plistPath)
}

func (m *AutostartManager) unload() error {
	return m.cmd.Run(context.Background(), "launchctl", "unload", m.plistPath)
}
