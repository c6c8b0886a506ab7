// Package entries maintains the durable records of configured vehicles. Each
// entry binds a managed vehicle's VIN to a stable ID; re-authentication
// updates an existing entry in place instead of creating a second record.
package entries

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// entriesFileName is the entry registry file under the auth directory.
const entriesFileName = "lynkco.entries.json"

// Entry is a configured vehicle record.
type Entry struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	VIN       string `json:"vin"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Registry persists entries as a JSON file and notifies a reload hook when an
// existing entry is updated in place.
type Registry struct {
	path     string
	mu       sync.Mutex
	onReload func(Entry)
}

// NewRegistry creates a Registry rooted at the given auth directory.
func NewRegistry(authDir string) *Registry {
	return &Registry{path: filepath.Join(authDir, entriesFileName)}
}

// SetReloadHook registers a callback fired after an in-place entry update, so
// dependent state can be rebuilt against the new VIN.
func (r *Registry) SetReloadHook(fn func(Entry)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onReload = fn
}

// List returns all entries. A missing file yields an empty list.
func (r *Registry) List() ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readLocked()
}

// Get returns the entry with the given ID.
func (r *Registry) Get(id string) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.readLocked()
	if err != nil {
		return nil, err
	}
	for i := range existing {
		if existing[i].ID == id {
			entry := existing[i]
			return &entry, nil
		}
	}
	return nil, fmt.Errorf("entry %s not found", id)
}

// Create appends a new entry for the given vehicle and persists the registry.
func (r *Registry) Create(title, vin string) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.readLocked()
	if err != nil {
		return nil, err
	}

	now := time.Now().Format(time.RFC3339)
	entry := Entry{
		ID:        uuid.NewString(),
		Title:     title,
		VIN:       vin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	existing = append(existing, entry)

	if err = r.writeLocked(existing); err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpdateVIN replaces the VIN of an existing entry in place and fires the
// reload hook. The entry keeps its ID and creation timestamp.
func (r *Registry) UpdateVIN(id, vin string) (*Entry, error) {
	r.mu.Lock()
	existing, err := r.readLocked()
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}

	var updated *Entry
	for i := range existing {
		if existing[i].ID == id {
			existing[i].VIN = vin
			existing[i].UpdatedAt = time.Now().Format(time.RFC3339)
			entry := existing[i]
			updated = &entry
			break
		}
	}
	if updated == nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("entry %s not found", id)
	}

	if err = r.writeLocked(existing); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	hook := r.onReload
	r.mu.Unlock()

	if hook != nil {
		log.WithFields(log.Fields{"entry": updated.ID, "vin": updated.VIN}).Debug("reloading updated entry")
		hook(*updated)
	}
	return updated, nil
}

func (r *Registry) readLocked() ([]Entry, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read entry registry: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var entries []Entry
	if err = json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse entry registry: %w", err)
	}
	return entries, nil
}

func (r *Registry) writeLocked(entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return fmt.Errorf("failed to create auth directory: %w", err)
	}

	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode entry registry: %w", err)
	}

	tmp := r.path + ".tmp"
	if err = os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write entry registry: %w", err)
	}
	if err = os.Rename(tmp, r.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace entry registry: %w", err)
	}
	return nil
}
