package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// fileRecord is the on-disk JSON shape of one identity.
type fileRecord struct {
	ID             string `json:"id"`
	Handle         string `json:"handle"`
	CredentialHash string `json:"credential_hash"`
	Role           string `json:"role"`
	Active         *bool  `json:"active,omitempty"`
}

// FileDirectory serves identities from a JSON file (an array of records).
// Records without "active" are treated as active.
type FileDirectory struct {
	path string

	mu       sync.RWMutex
	byHandle map[string]Identity
	byID     map[string]Identity
}

// LoadFileDirectory reads path and returns a ready directory.
func LoadFileDirectory(path string) (*FileDirectory, error) {
	d := &FileDirectory{path: path}
	if err := d.Reload(); err != nil {
		return nil, err
	}
	return d, nil
}

// Reload re-reads the backing file. On error the previous contents stay in effect.
func (d *FileDirectory) Reload() error {
	raw, err := os.ReadFile(d.path)
	if err != nil {
		return fmt.Errorf("identity: read %s: %w", d.path, err)
	}

	var recs []fileRecord
	if err := json.Unmarshal(raw, &recs); err != nil {
		return fmt.Errorf("identity: parse %s: %w", d.path, err)
	}

	byHandle := make(map[string]Identity, len(recs))
	byID := make(map[string]Identity, len(recs))
	for i, r := range recs {
		id := strings.TrimSpace(r.ID)
		norm := NormalizeHandle(r.Handle)
		if id == "" || norm == "" {
			return fmt.Errorf("identity: %s: record %d: id and handle are required", d.path, i)
		}
		if _, dup := byHandle[norm]; dup {
			return fmt.Errorf("identity: %s: duplicate handle %q", d.path, norm)
		}
		if _, dup := byID[id]; dup {
			return fmt.Errorf("identity: %s: duplicate id %q", d.path, id)
		}
		ident := Identity{
			ID:             id,
			Handle:         strings.TrimSpace(r.Handle),
			CredentialHash: r.CredentialHash,
			Role:           r.Role,
			Active:         r.Active == nil || *r.Active,
		}
		byHandle[norm] = ident
		byID[id] = ident
	}

	d.mu.Lock()
	d.byHandle = byHandle
	d.byID = byID
	d.mu.Unlock()
	return nil
}

// LookupHandle implements Directory.
func (d *FileDirectory) LookupHandle(ctx context.Context, handle string) (Identity, error) {
	const op = "identity.LookupHandle"
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}
	norm := NormalizeHandle(handle)
	if norm == "" {
		return Identity{}, invalid(op, "empty handle")
	}

	d.mu.RLock()
	ident, ok := d.byHandle[norm]
	d.mu.RUnlock()
	if !ok {
		return Identity{}, notFound(op)
	}
	return ident, nil
}

// LookupID implements Directory.
func (d *FileDirectory) LookupID(ctx context.Context, id string) (Identity, error) {
	const op = "identity.LookupID"
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}

	d.mu.RLock()
	ident, ok := d.byID[strings.TrimSpace(id)]
	d.mu.RUnlock()
	if !ok {
		return Identity{}, notFound(op)
	}
	return ident, nil
}

// reloadDebounce coalesces bursts of editor writes into one reload.
const reloadDebounce = 500 * time.Millisecond

// Watch reloads the directory whenever the backing file changes, until ctx is done.
// The parent directory is watched so atomic renames are picked up.
func (d *FileDirectory) Watch(ctx context.Context, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(d.path)); err != nil {
		_ = w.Close()
		return err
	}

	target := filepath.Clean(d.path)
	go func() {
		defer func() { _ = w.Close() }()

		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return

			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(reloadDebounce)
				} else {
					timer.Reset(reloadDebounce)
				}
				fire = timer.C

			case <-fire:
				fire = nil
				timer = nil
				if err := d.Reload(); err != nil {
					log.Warn("identity.reload.fail", "path", d.path, "err", err)
					continue
				}
				log.Info("identity.reload.ok", "path", d.path)

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("identity.watch.error", "err", err)
			}
		}
	}()
	return nil
}
