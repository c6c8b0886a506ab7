package entries

import (
	"testing"
)

func TestRegistry_CreateAndList(t *testing.T) {
	registry := NewRegistry(t.TempDir())

	entry, err := registry.Create("Lynk & Co", "VIN0001")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if entry.ID == "" {
		t.Error("Create() returned entry without ID")
	}
	if entry.VIN != "VIN0001" {
		t.Errorf("VIN = %q, want VIN0001", entry.VIN)
	}

	all, err := registry.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("List() returned %d entries, want 1", len(all))
	}
	if all[0].ID != entry.ID {
		t.Errorf("listed entry ID = %q, want %q", all[0].ID, entry.ID)
	}
}

func TestRegistry_ListEmpty(t *testing.T) {
	registry := NewRegistry(t.TempDir())

	all, err := registry.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 0 {
		t.Errorf("List() = %v, want empty", all)
	}
}

func TestRegistry_UpdateVINInPlace(t *testing.T) {
	registry := NewRegistry(t.TempDir())

	created, err := registry.Create("Lynk & Co", "VIN0001")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	var reloaded []Entry
	registry.SetReloadHook(func(entry Entry) {
		reloaded = append(reloaded, entry)
	})

	updated, err := registry.UpdateVIN(created.ID, "VIN0002")
	if err != nil {
		t.Fatalf("UpdateVIN() error = %v", err)
	}
	if updated.ID != created.ID {
		t.Errorf("updated entry ID = %q, want the original %q", updated.ID, created.ID)
	}
	if updated.VIN != "VIN0002" {
		t.Errorf("updated VIN = %q, want VIN0002", updated.VIN)
	}
	if updated.CreatedAt != created.CreatedAt {
		t.Errorf("CreatedAt changed on update: %q -> %q", created.CreatedAt, updated.CreatedAt)
	}

	// In-place update: still exactly one record.
	all, err := registry.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("List() returned %d entries after update, want 1", len(all))
	}

	if len(reloaded) != 1 || reloaded[0].VIN != "VIN0002" {
		t.Errorf("reload hook fired with %v, want one reload for VIN0002", reloaded)
	}
}

func TestRegistry_UpdateVIN_UnknownEntry(t *testing.T) {
	registry := NewRegistry(t.TempDir())

	if _, err := registry.UpdateVIN("missing-id", "VIN0002"); err == nil {
		t.Error("UpdateVIN() expected error for unknown entry")
	}
}

func TestRegistry_Get(t *testing.T) {
	registry := NewRegistry(t.TempDir())

	created, err := registry.Create("Lynk & Co", "VIN0001")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := registry.Get(created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.VIN != "VIN0001" {
		t.Errorf("Get().VIN = %q, want VIN0001", got.VIN)
	}

	if _, err = registry.Get("nope"); err == nil {
		t.Error("Get() expected error for unknown entry")
	}
}
