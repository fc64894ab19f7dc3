package infra

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/site_block/internal/domain"
)

// DefaultMarker tags every hosts line owned by this tool. Lines are
// matched by exact substring, not regex, so the marker must never appear
// in user-managed lines.
const DefaultMarker = "# focusd siteblock"

// DefaultHostsPath is the system host-resolution table.
const DefaultHostsPath = "/etc/hosts"

// HostsMutatorImpl implements domain.HostsMutator. Every rewrite strips
// all tagged lines first and, for apply, appends one tagged line per
// blocked site. The new content is staged in a scratch file and copied
// over the system path with elevated privileges. The hosts file is
// machine-wide shared state with no locking protocol: a concurrent
// external editor wins or loses on a last-writer-wins basis.
type HostsMutatorImpl struct {
	hostsPath  string
	backupPath string
	scratchDir string
	marker     string
	elevator   Elevator
	cmd        CommandRunner
	logger     *zap.Logger
}

// NewHostsMutator creates a mutator for the real system hosts file.
// backupPath receives a verbatim copy of the pristine file before the
// first-ever mutation and is never overwritten afterwards.
func NewHostsMutator(hostsPath, backupPath, scratchDir string, elevator Elevator, logger *zap.Logger) *HostsMutatorImpl {
	return &HostsMutatorImpl{
		hostsPath:  hostsPath,
		backupPath: backupPath,
		scratchDir: scratchDir,
		marker:     DefaultMarker,
		elevator:   elevator,
		cmd:        &RealCommandRunner{},
		logger:     logger,
	}
}

// NewHostsMutatorWithDeps creates a mutator with injectable command
// runner and marker (for testing).
func NewHostsMutatorWithDeps(hostsPath, backupPath, scratchDir, marker string, elevator Elevator, cmd CommandRunner, logger *zap.Logger) *HostsMutatorImpl {
	return &HostsMutatorImpl{
		hostsPath:  hostsPath,
		backupPath: backupPath,
		scratchDir: scratchDir,
		marker:     marker,
		elevator:   elevator,
		cmd:        cmd,
		logger:     logger,
	}
}

// Apply rewrites the hosts file with one tagged 127.0.0.1 line per site.
// Stripping before appending makes a double apply indistinguishable from
// a single one.
func (m *HostsMutatorImpl) Apply(ctx context.Context, sites []string) error {
	if err := m.rewrite(ctx, "apply", sites); err != nil {
		return err
	}
	m.flushDNSCache(ctx)
	return nil
}

// Revert removes every tagged line and leaves all other lines untouched.
func (m *HostsMutatorImpl) Revert(ctx context.Context) error {
	return m.rewrite(ctx, "revert", nil)
}

// BackupPath returns the pristine-copy location.
func (m *HostsMutatorImpl) BackupPath() string {
	return m.backupPath
}

// rewrite performs the read-strip-append-stage-copy sequence shared by
// Apply and Revert. The scratch file is removed on every exit path.
func (m *HostsMutatorImpl) rewrite(ctx context.Context, op string, sites []string) error {
	data, err := os.ReadFile(m.hostsPath)
	if err != nil {
		return domain.NewIOError(op, fmt.Errorf("read %s: %w", m.hostsPath, err))
	}

	if err := m.ensureBackup(data); err != nil {
		return domain.NewIOError(op, err)
	}

	content := m.stripTagged(data)
	if len(sites) > 0 {
		if len(content) > 0 && content[len(content)-1] != '\n' {
			content = append(content, '\n')
		}
		var block strings.Builder
		for _, site := range sites {
			fmt.Fprintf(&block, "127.0.0.1 %s %s\n", site, m.marker)
		}
		content = append(content, block.String()...)
	}

	tmp, err := os.CreateTemp(m.scratchDir, ".siteblock-hosts-*")
	if err != nil {
		return domain.NewIOError(op, fmt.Errorf("create scratch file: %w", err))
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return domain.NewIOError(op, fmt.Errorf("write scratch file: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return domain.NewIOError(op, fmt.Errorf("sync scratch file: %w", err))
	}
	tmp.Close()

	copyCmd := fmt.Sprintf("cp %q %q", tmpPath, m.hostsPath)
	if err := m.elevator.RunAsRoot(ctx, copyCmd); err != nil {
		if PromptDismissed(err) {
			return domain.NewPermissionError(op, err)
		}
		return domain.NewIOError(op, fmt.Errorf("privileged copy: %w", err))
	}

	if m.logger != nil {
		m.logger.Info("hosts file rewritten",
			zap.String("op", op),
			zap.Int("tagged_lines", len(sites)))
	}
	return nil
}

// stripTagged removes whole tagged lines, terminator included, so that
// untagged content survives byte-for-byte across apply/revert cycles.
func (m *HostsMutatorImpl) stripTagged(data []byte) []byte {
	lines := strings.SplitAfter(string(data), "\n")
	var out strings.Builder
	out.Grow(len(data))
	for _, line := range lines {
		if strings.Contains(line, m.marker) {
			continue
		}
		out.WriteString(line)
	}
	return []byte(out.String())
}

// ensureBackup copies the current hosts content to the backup location
// before the first mutation. One-time and idempotent: an existing backup
// is never overwritten, even across restarts.
func (m *HostsMutatorImpl) ensureBackup(data []byte) error {
	if _, err := os.Stat(m.backupPath); err == nil {
		return nil
	}
	if err := os.WriteFile(m.backupPath, data, 0o644); err != nil {
		return fmt.Errorf("write hosts backup: %w", err)
	}
	if m.logger != nil {
		m.logger.Info("hosts backup created", zap.String("path", m.backupPath))
	}
	return nil
}

// flushDNSCache invalidates the OS resolver cache after an apply.
// Best-effort: a failed flush only delays the block until cached entries
// expire, so it is logged and swallowed.
func (m *HostsMutatorImpl) flushDNSCache(ctx context.Context) {
	var err error
	if runtime.GOOS == "darwin" {
		err = m.elevator.RunAsRoot(ctx, "dscacheutil -flushcache; killall -HUP mDNSResponder")
	} else {
		err = m.cmd.Run(ctx, "resolvectl", "flush-caches")
	}
	if err != nil && m.logger != nil {
		m.logger.Warn("dns cache flush failed", zap.Error(err))
	}
}

// Ensure HostsMutatorImpl implements domain.HostsMutator.
var _ domain.HostsMutator = (*HostsMutatorImpl)(nil)
