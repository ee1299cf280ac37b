package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/m3rciful/exambot/core/logger"
	"github.com/m3rciful/exambot/internal/registration"
)

// dataset is the persisted document. Every field may be absent on disk.
type dataset struct {
	Registrations          []registration.Registration `json:"registrations"`
	Settings               map[string]string          `json:"settings"`
	NextID                 int64                      `json:"nextId"`
	PendingRemovalRequests map[string][]int64         `json:"pendingRemovalRequests"`
	AuditLog               []registration.AuditEntry  `json:"auditLog"`
}

func emptyDataset() *dataset {
	return &dataset{
		Registrations:          []registration.Registration{},
		Settings:               map[string]string{},
		NextID:                 1,
		PendingRemovalRequests: map[string][]int64{},
		AuditLog:               []registration.AuditEntry{},
	}
}

func (d *dataset) fillDefaults() {
	if d.Registrations == nil {
		d.Registrations = []registration.Registration{}
	}
	if d.Settings == nil {
		d.Settings = map[string]string{}
	}
	if d.PendingRemovalRequests == nil {
		d.PendingRemovalRequests = map[string][]int64{}
	}
	if d.AuditLog == nil {
		d.AuditLog = []registration.AuditEntry{}
	}
	if d.NextID < 1 {
		d.NextID = 1
		for _, r := range d.Registrations {
			if r.ID >= d.NextID {
				d.NextID = r.ID + 1
			}
		}
	}
}

func (d *dataset) find(id int64) int {
	return slices.IndexFunc(d.Registrations, func(r registration.Registration) bool { return r.ID == id })
}

// FileStore keeps the whole dataset in one JSON file. Every mutation is a
// full load, mutate and save under a mutex; saves replace the file atomically.
// An unreadable or corrupt file is treated as an empty dataset and is moved
// aside to <path>.corrupt before it is first overwritten.
type FileStore struct {
	mu      sync.Mutex
	path    string
	now     func() time.Time
	corrupt bool
}

// OpenFile prepares the data file at path, creating it when absent.
func OpenFile(ctx context.Context, path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("store: data file path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create data dir: %w", err)
		}
	}
	s := &FileStore{path: path, now: time.Now}
	if err := s.update(ctx, func(*dataset) (bool, error) { return true, nil }); err != nil {
		return nil, err
	}
	logger.Info(ctx, "store", "open",
		slog.String("driver", "file"),
		slog.String("path", path),
	)
	return s, nil
}

// Path returns the data file location.
func (s *FileStore) Path() string { return s.path }

// Close is a no-op; the file is not held open between operations.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) load(ctx context.Context) *dataset {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn(ctx, "store", "load.fallback", slog.String("path", s.path), logger.Err(err))
			s.corrupt = true
		}
		return emptyDataset()
	}
	d := emptyDataset()
	d.NextID = 0
	if err := json.Unmarshal(raw, d); err != nil {
		logger.Warn(ctx, "store", "load.corrupt", slog.String("path", s.path), logger.Err(err))
		s.corrupt = true
		return emptyDataset()
	}
	d.fillDefaults()
	return d
}

func (s *FileStore) save(d *dataset) error {
	raw, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}
	if s.corrupt {
		if err := os.Rename(s.path, s.path+".corrupt"); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("store: keep corrupt file: %w", err)
		}
		s.corrupt = false
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("store: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("store: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("store: replace data file: %w", err)
	}
	return nil
}

func (s *FileStore) view(ctx context.Context, fn func(*dataset)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.load(ctx))
	return nil
}

// update runs fn on a freshly loaded dataset and saves it when fn reports a change.
func (s *FileStore) update(ctx context.Context, fn func(*dataset) (bool, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.load(ctx)
	changed, err := fn(d)
	if err != nil || !changed {
		return err
	}
	if err := s.save(d); err != nil {
		logger.Error(ctx, "store", "save.fail", slog.String("path", s.path), logger.Err(err))
		return err
	}
	return nil
}

func (s *FileStore) AddRegistration(ctx context.Context, chatID int64, fullName, phone string, attempt int) (registration.Registration, error) {
	reg, err := registration.New(chatID, fullName, phone, attempt, s.now())
	if err != nil {
		return registration.Registration{}, err
	}
	err = s.update(ctx, func(d *dataset) (bool, error) {
		reg.ID = d.NextID
		d.NextID++
		d.Registrations = append(d.Registrations, reg)
		return true, nil
	})
	if err != nil {
		return registration.Registration{}, err
	}
	return reg, nil
}

func (s *FileStore) ListRegistrations(ctx context.Context) ([]registration.Registration, error) {
	var out []registration.Registration
	err := s.view(ctx, func(d *dataset) {
		out = make([]registration.Registration, 0, len(d.Registrations))
		for _, r := range d.Registrations {
			out = append(out, r.Clone())
		}
	})
	return out, err
}

func (s *FileStore) RegistrationByID(ctx context.Context, id int64) (registration.Registration, bool, error) {
	var (
		out   registration.Registration
		found bool
	)
	err := s.view(ctx, func(d *dataset) {
		if i := d.find(id); i >= 0 {
			out, found = d.Registrations[i].Clone(), true
		}
	})
	return out, found, err
}

func (s *FileStore) RegistrationsByIDs(ctx context.Context, ids []int64) ([]registration.Registration, error) {
	want := idSet(ids)
	out := []registration.Registration{}
	err := s.view(ctx, func(d *dataset) {
		for _, r := range d.Registrations {
			if _, ok := want[r.ID]; ok {
				out = append(out, r.Clone())
			}
		}
	})
	return out, err
}

func (s *FileStore) MarkInvited(ctx context.Context, id int64) (bool, error) {
	var found bool
	err := s.update(ctx, func(d *dataset) (bool, error) {
		i := d.find(id)
		if i < 0 {
			return false, nil
		}
		found = true
		return d.Registrations[i].MarkInvited(), nil
	})
	return found, err
}

func (s *FileStore) MarkConfirmed(ctx context.Context, id int64, at time.Time) (bool, error) {
	var changed bool
	err := s.update(ctx, func(d *dataset) (bool, error) {
		i := d.find(id)
		if i < 0 {
			return false, nil
		}
		var err error
		changed, err = d.Registrations[i].Confirm(at)
		return changed, err
	})
	return changed, err
}

func (s *FileStore) RemoveRegistration(ctx context.Context, id int64) (bool, error) {
	var removed bool
	err := s.update(ctx, func(d *dataset) (bool, error) {
		i := d.find(id)
		if i < 0 {
			return false, nil
		}
		d.Registrations = slices.Delete(d.Registrations, i, i+1)
		removed = true
		return true, nil
	})
	return removed, err
}

func (s *FileStore) RemoveInvitedOnce(ctx context.Context, examAt string) ([]int64, bool, error) {
	removed := []int64{}
	var ran bool
	err := s.update(ctx, func(d *dataset) (bool, error) {
		if d.Settings[registration.SettingLastCleanupExam] == examAt {
			return false, nil
		}
		d.Registrations = slices.DeleteFunc(d.Registrations, func(r registration.Registration) bool {
			if r.Invited {
				removed = append(removed, r.ID)
			}
			return r.Invited
		})
		d.Settings[registration.SettingLastCleanupExam] = examAt
		ran = true
		return true, nil
	})
	if err != nil {
		return nil, false, err
	}
	return removed, ran, nil
}

func (s *FileStore) ClearAll(ctx context.Context) error {
	return s.update(ctx, func(d *dataset) (bool, error) {
		d.Registrations = []registration.Registration{}
		d.NextID = 1
		return true, nil
	})
}

func (s *FileStore) Setting(ctx context.Context, key string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := s.view(ctx, func(d *dataset) {
		value, ok = d.Settings[key]
	})
	return value, ok, err
}

func (s *FileStore) SetSetting(ctx context.Context, key, value string) error {
	return s.update(ctx, func(d *dataset) (bool, error) {
		d.Settings[key] = value
		return true, nil
	})
}

func (s *FileStore) SetPendingRemoval(ctx context.Context, adminID int64, ids []int64) error {
	return s.update(ctx, func(d *dataset) (bool, error) {
		d.PendingRemovalRequests[adminKey(adminID)] = cloneIDs(ids)
		return true, nil
	})
}

func (s *FileStore) PendingRemoval(ctx context.Context, adminID int64) ([]int64, error) {
	var ids []int64
	err := s.view(ctx, func(d *dataset) {
		ids = cloneIDs(d.PendingRemovalRequests[adminKey(adminID)])
	})
	return ids, err
}

func (s *FileStore) ClearPendingRemoval(ctx context.Context, adminID int64) error {
	return s.update(ctx, func(d *dataset) (bool, error) {
		key := adminKey(adminID)
		if _, ok := d.PendingRemovalRequests[key]; !ok {
			return false, nil
		}
		delete(d.PendingRemovalRequests, key)
		return true, nil
	})
}

func (s *FileStore) AppendAudit(ctx context.Context, entry registration.AuditEntry) error {
	entry.Stamp(s.now())
	return s.update(ctx, func(d *dataset) (bool, error) {
		d.AuditLog = append(d.AuditLog, entry.Clone())
		if n := len(d.AuditLog); n > registration.AuditLimit {
			d.AuditLog = slices.Clone(d.AuditLog[n-registration.AuditLimit:])
		}
		return true, nil
	})
}

func (s *FileStore) AuditLog(ctx context.Context) ([]registration.AuditEntry, error) {
	var out []registration.AuditEntry
	err := s.view(ctx, func(d *dataset) {
		out = make([]registration.AuditEntry, 0, len(d.AuditLog))
		for _, e := range d.AuditLog {
			out = append(out, e.Clone())
		}
	})
	return out, err
}

func adminKey(adminID int64) string {
	return strconv.FormatInt(adminID, 10)
}
