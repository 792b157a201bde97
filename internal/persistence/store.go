// Package persistence implements durable per-guild queue snapshots. Writes
// go through a sibling temp file with fsync-before-rename (via renameio) so
// a crash mid-write can never leave a half-written snapshot at the
// canonical path. Corrupt or schema-mismatched snapshots are logged and
// reported as absent rather than failing the caller — the engine starts
// that guild empty instead of refusing to start.
package persistence

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"github.com/sonanterra/queueengine/internal/errkind"
	"github.com/sonanterra/queueengine/internal/fsutil"
	"github.com/sonanterra/queueengine/internal/log"
	"github.com/sonanterra/queueengine/internal/metrics"
)

// Store is the persistence contract consumed by the Queue Manager and the
// Engine Facade.
type Store interface {
	Save(guildID string, snap Snapshot) error
	Load(guildID string) (*Snapshot, bool, error)
	ListGuilds() ([]string, error)
	Clear(guildID string) error
}

// FileStore persists one JSON document per guild under
// <dataDir>/queues/<guild_id>.json.
type FileStore struct {
	dataDir string
}

// NewFileStore creates a FileStore rooted at dataDir, creating the queues
// subdirectory if necessary.
func NewFileStore(dataDir string) (*FileStore, error) {
	queuesDir := filepath.Join(dataDir, "queues")
	if err := os.MkdirAll(queuesDir, 0o750); err != nil {
		return nil, errkind.Wrap(errkind.CorruptSnapshot, "create queues dir", err)
	}
	return &FileStore{dataDir: dataDir}, nil
}

func (s *FileStore) path(guildID string) (string, error) {
	return fsutil.ConfineRelPath(filepath.Join(s.dataDir, "queues"), guildID+".json")
}

// Save atomically writes snap to guildID's file, replacing any prior
// content. Crash-safety is provided by renameio: write to a sibling temp
// file, fsync, then atomic rename over the canonical path.
func (s *FileStore) Save(guildID string, snap Snapshot) error {
	start := time.Now()
	err := s.save(guildID, snap)
	metrics.PersistenceSaveDurationSeconds.WithLabelValues("save").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RecordPersistenceSaveFailure("save")
	}
	return err
}

func (s *FileStore) save(guildID string, snap Snapshot) error {
	snap.GuildID = guildID
	if snap.Schema == 0 {
		snap.Schema = CurrentSchema
	}

	path, err := s.pathForWrite(guildID)
	if err != nil {
		return err
	}

	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return errkind.Wrap(errkind.CorruptSnapshot, "create pending snapshot file", err)
	}
	defer func() {
		if cerr := pending.Cleanup(); cerr != nil {
			logger := log.WithComponent("persistence")
			logger.Debug().Err(cerr).Str(log.FieldGuildID, guildID).Msg("cleanup pending snapshot file")
		}
	}()

	enc := json.NewEncoder(pending)
	if err := enc.Encode(snap); err != nil {
		return errkind.Wrap(errkind.CorruptSnapshot, "encode snapshot", err)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return errkind.Wrap(errkind.CorruptSnapshot, "atomically replace snapshot file", err)
	}
	return nil
}

// pathForWrite resolves the target path without requiring the file to
// already exist (ConfineRelPath only needs the parent directory present,
// which NewFileStore guarantees).
func (s *FileStore) pathForWrite(guildID string) (string, error) {
	return s.path(guildID)
}

// Load reads guildID's snapshot. A missing file returns (nil, false, nil).
// A corrupt or schema-mismatched file is logged and reported as absent,
// never as an error the caller must handle specially.
func (s *FileStore) Load(guildID string) (*Snapshot, bool, error) {
	path, err := s.path(guildID)
	if err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, errkind.Wrap(errkind.CorruptSnapshot, "read snapshot", err)
	}

	logger := log.WithComponent("persistence")
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		logger.Warn().Err(err).Str(log.FieldGuildID, guildID).Msg("corrupt snapshot, starting guild empty")
		return nil, false, nil
	}
	if snap.Schema != CurrentSchema {
		logger.Warn().Int("schema", snap.Schema).Str(log.FieldGuildID, guildID).Msg("unknown snapshot schema, starting guild empty")
		return nil, false, nil
	}

	return &snap, true, nil
}

// ListGuilds returns the guild ids with a persisted snapshot file.
func (s *FileStore) ListGuilds() ([]string, error) {
	queuesDir := filepath.Join(s.dataDir, "queues")
	entries, err := os.ReadDir(queuesDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	guilds := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".json") && !strings.HasSuffix(name, ".json.tmp") {
			guilds = append(guilds, strings.TrimSuffix(name, ".json"))
		}
	}
	sort.Strings(guilds)
	return guilds, nil
}

// Clear removes guildID's snapshot file, if any.
func (s *FileStore) Clear(guildID string) error {
	path, err := s.path(guildID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
