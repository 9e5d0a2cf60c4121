package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bnema/locus-sync/internal/domain"
	"github.com/bnema/locus-sync/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	snapshotFileMode = 0o600
	snapshotDirMode  = 0o700
	tempFilePattern  = ".sessions-*.toml.tmp"
)

// Repository persists the latest registry snapshot as a single TOML file.
type Repository struct {
	path string
	mu   *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.SnapshotRepository = (*Repository)(nil)

func NewRepository(path string) (*Repository, error) {
	if path == "" {
		return nil, errors.New("snapshot path is empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve snapshot path: %w", err)
	}
	absPath = filepath.Clean(absPath)

	return &Repository{path: absPath, mu: lockForPath(absPath)}, nil
}

func (r *Repository) Path() string {
	return r.path
}

func (r *Repository) Save(ctx context.Context, snapshot domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	file := toSchema(snapshot)

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.writeSchema(file)
}

// Load returns domain.ErrSnapshotNotFound when nothing was saved yet.
func (r *Repository) Load(ctx context.Context) (domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Snapshot{}, domain.ErrSnapshotNotFound
		}
		return domain.Snapshot{}, fmt.Errorf("read snapshot file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode snapshot file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return domain.Snapshot{}, err
	}

	return fromSchema(file), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, snapshotDirMode); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode snapshot file: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp snapshot file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp snapshot file: %w", err)
	}
	if err := tempFile.Chmod(snapshotFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp snapshot file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp snapshot file: %w", err)
	}
	if err := os.Rename(tempName, r.path); err != nil {
		return fmt.Errorf("replace snapshot file: %w", err)
	}
	cleanup = false

	return nil
}

func toSchema(snapshot domain.Snapshot) fileSchema {
	file := fileSchema{
		Version:  currentSchemaVersion,
		TakenAt:  formatTime(snapshot.TakenAt),
		Sessions: make([]sessionSchema, 0, len(snapshot.Sessions)),
	}

	for _, summary := range snapshot.Sessions {
		entry := sessionSchema{
			ID:              summary.ID,
			Type:            string(summary.Type),
			LocusURL:        summary.LocusURL,
			SipURI:          summary.SipURI,
			ConversationURL: summary.ConversationURL,
			MeetingNumber:   summary.MeetingNumber,
			CorrelationID:   summary.CorrelationID,
			SelfState:       summary.SelfState,
			Scheduled:       summary.Scheduled,
			CreatedAt:       formatTime(summary.CreatedAt),
		}
		if summary.BreakoutURL != "" {
			entry.Breakout = &breakoutSchema{URL: summary.BreakoutURL, Active: summary.ActiveBreakout}
		}
		file.Sessions = append(file.Sessions, entry)
	}

	return file
}

func fromSchema(file fileSchema) domain.Snapshot {
	snapshot := domain.Snapshot{
		TakenAt:  parseTime(file.TakenAt),
		Sessions: make([]domain.SessionSummary, 0, len(file.Sessions)),
	}

	for _, entry := range file.Sessions {
		summary := domain.SessionSummary{
			ID:              entry.ID,
			Type:            domain.DestinationType(entry.Type),
			LocusURL:        entry.LocusURL,
			SipURI:          entry.SipURI,
			ConversationURL: entry.ConversationURL,
			MeetingNumber:   entry.MeetingNumber,
			CorrelationID:   entry.CorrelationID,
			SelfState:       entry.SelfState,
			Scheduled:       entry.Scheduled,
			CreatedAt:       parseTime(entry.CreatedAt),
		}
		if entry.Breakout != nil {
			summary.BreakoutURL = entry.Breakout.URL
			summary.ActiveBreakout = entry.Breakout.Active
		}
		snapshot.Sessions = append(snapshot.Sessions, summary)
	}

	return snapshot
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339Nano)
}
