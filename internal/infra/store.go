package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/site_block/internal/domain"
)

const (
	configFileName = "config.json"
	statsFileName  = "stats.json"
)

// FileStore persists config and stats as human-readable JSON files under
// a single data directory. Loads never fail: a missing or corrupt file
// falls back to defaults so the tool always starts.
type FileStore struct {
	dataDir string
	logger  *zap.Logger
}

// NewFileStore creates a store rooted at dataDir, creating the directory
// if needed.
func NewFileStore(dataDir string, logger *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dataDir, err)
	}
	return &FileStore{dataDir: dataDir, logger: logger}, nil
}

// LoadConfig reads config.json, substituting defaults for a missing or
// unreadable file and for absent fields.
func (s *FileStore) LoadConfig() *domain.Config {
	path := filepath.Join(s.dataDir, configFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) && s.logger != nil {
			s.logger.Warn("config unreadable, using defaults", zap.Error(err))
		}
		return domain.DefaultConfig()
	}

	var cfg domain.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		if s.logger != nil {
			s.logger.Warn("config corrupt, using defaults", zap.Error(err))
		}
		return domain.DefaultConfig()
	}
	if cfg.BlockedSites == nil {
		cfg.BlockedSites = domain.DefaultBlockedSites()
	}
	if cfg.Schedules == nil {
		cfg.Schedules = []domain.Schedule{}
	}
	return &cfg
}

// SaveConfig writes config.json atomically.
func (s *FileStore) SaveConfig(cfg *domain.Config) error {
	return s.saveJSON(configFileName, cfg)
}

// LoadStats reads stats.json with the same fallback policy as
// LoadConfig.
func (s *FileStore) LoadStats() *domain.Stats {
	path := filepath.Join(s.dataDir, statsFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) && s.logger != nil {
			s.logger.Warn("stats unreadable, using defaults", zap.Error(err))
		}
		return domain.DefaultStats()
	}

	var stats domain.Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		if s.logger != nil {
			s.logger.Warn("stats corrupt, using defaults", zap.Error(err))
		}
		return domain.DefaultStats()
	}
	if stats.Activity == nil {
		stats.Activity = map[string]int{}
	}
	return &stats
}

// SaveStats writes stats.json atomically.
func (s *FileStore) SaveStats(stats *domain.Stats) error {
	return s.saveJSON(statsFileName, stats)
}

func (s *FileStore) saveJSON(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	return atomicWrite(filepath.Join(s.dataDir, name), data, 0o644)
}

// atomicWrite stages data in a sibling temp file, syncs it, then renames
// over the target so readers never observe a partial write. Rename on
// the same filesystem is atomic on POSIX.
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	tmpPath := fmt.Sprintf("%s.%d.tmp", path, time.Now().UnixNano())
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

var (
	_ domain.ConfigStore = (*FileStore)(nil)
	_ domain.StatsStore  = (*FileStore)(nil)
)
