package infra

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAutostart(t *testing.T) (*AutostartManager, *recordingRunner) {
	t.Helper()
	rec := &recordingRunner{}
	m := NewAutostartManagerWithDeps(t.TempDir(), "/var/tmp", rec)
	return m, rec
}

func TestAutostartManager_InstallWritesAndLoadsPlist(t *testing.T) {
	m, rec := newTestAutostart(t)

	require.NoError(t, m.Install("/usr/local/bin/siteblock"))

	content, err := os.ReadFile(m.PlistPath())
	require.NoError(t, err)
	assert.Contains(t, string(content), "<string>"+LaunchdLabel+"</string>")
	assert.Contains(t, string(content), "<string>/usr/local/bin/siteblock</string>")
	assert.Contains(t, string(content), "<string>start</string>")

	require.Len(t, rec.names, 1)
	assert.Equal(t, "launchctl", rec.names[0])
	assert.Equal(t, []string{"load", m.PlistPath()}, rec.args[0])
}

func TestAutostartManager_IsInstalled(t *testing.T) {
	m, _ := newTestAutostart(t)
	assert.False(t, m.IsInstalled())

	require.NoError(t, m.Install("/usr/local/bin/siteblock"))
	assert.True(t, m.IsInstalled())
}

func TestAutostartManager_UninstallRemovesPlist(t *testing.T) {
	m, rec := newTestAutostart(t)
	require.NoError(t, m.Install("/usr/local/bin/siteblock"))

	require.NoError(t, m.Uninstall())
	assert.False(t, m.IsInstalled())

	// load then unload
	require.Len(t, rec.names, 2)
	assert.Equal(t, []string{"unload", m.PlistPath()}, rec.args[1])

	// Uninstalling twice is not an error.
	assert.NoError(t, m.Uninstall())
}

func TestAutostartManager_NeedsUpdate(t *testing.T) {
	m, _ := newTestAutostart(t)

	assert.False(t, m.NeedsUpdate("/usr/local/bin/siteblock"))

	require.NoError(t, m.Install("/usr/local/bin/siteblock"))
	assert.False(t, m.NeedsUpdate("/usr/local/bin/siteblock"))
	assert.True(t, m.NeedsUpdate("/opt/siteblock/bin/siteblock"))
}
