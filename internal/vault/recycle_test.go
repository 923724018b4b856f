package vault_test

import (
	"errors"
	"testing"
	"time"

	"pv-go/internal/keyvalue"
	"pv-go/internal/model"
	"pv-go/internal/testutil"
	"pv-go/internal/vault"
)

func testBin(t *testing.T, retentionDays int) (*vault.RecycleBin, *testutil.StubClock) {
	t.Helper()
	clock := testutil.FixedClock()
	bin := vault.NewRecycleBin(keyvalue.NewMemoryStore(), clock, vault.NewNopLogger(), vault.NewLifecycle(), retentionDays)
	return bin, clock
}

func binFile(id string) model.VaultFile {
	return model.VaultFile{ID: id, Name: id + ".txt", Type: model.FileTypeOther, FolderID: "folder-1"}
}

func TestRecycleBin(t *testing.T) {
	t.Run("add and list", func(t *testing.T) {
		bin, _ := testBin(t, 7)

		if err := bin.Add(binFile("f1")); err != nil {
			t.Fatalf("Add() error = %v", err)
		}

		entries, err := bin.List()
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("List() = %d entries, want 1", len(entries))
		}
		if entries[0].OriginalFolderID != "folder-1" {
			t.Errorf("OriginalFolderID = %q, want folder-1", entries[0].OriginalFolderID)
		}
		if entries[0].DaysRemaining != 7 {
			t.Errorf("DaysRemaining = %d, want 7", entries[0].DaysRemaining)
		}
	})

	t.Run("days remaining rounds up", func(t *testing.T) {
		bin, clock := testBin(t, 7)

		if err := bin.Add(binFile("f1")); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		clock.Advance(6*24*time.Hour + time.Hour)

		entries, err := bin.List()
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		// 23 hours left still displays as one day.
		if entries[0].DaysRemaining != 1 {
			t.Errorf("DaysRemaining = %d, want 1", entries[0].DaysRemaining)
		}
	})

	t.Run("entries expire after the retention window", func(t *testing.T) {
		bin, clock := testBin(t, 7)

		if err := bin.Add(binFile("old")); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		clock.Advance(3 * 24 * time.Hour)
		if err := bin.Add(binFile("fresh")); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		clock.Advance(4 * 24 * time.Hour)

		entries, err := bin.List()
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(entries) != 1 || entries[0].File.ID != "fresh" {
			t.Errorf("List() = %+v, want only the fresh entry", entries)
		}
	})

	t.Run("expired entries cannot be restored", func(t *testing.T) {
		bin, clock := testBin(t, 7)

		if err := bin.Add(binFile("f1")); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		clock.Advance(8 * 24 * time.Hour)

		_, err := bin.Restore("f1")
		if !errors.Is(err, vault.ErrNotFound) {
			t.Errorf("Restore() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("restore removes the entry", func(t *testing.T) {
		bin, _ := testBin(t, 7)

		if err := bin.Add(binFile("f1")); err != nil {
			t.Fatalf("Add() error = %v", err)
		}

		deleted, err := bin.Restore("f1")
		if err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if deleted.File.ID != "f1" {
			t.Errorf("Restore() = %+v, want f1", deleted.File)
		}

		entries, err := bin.List()
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("List() = %d entries after restore, want 0", len(entries))
		}
	})

	t.Run("restore of an unknown id is ErrNotFound", func(t *testing.T) {
		bin, _ := testBin(t, 7)

		_, err := bin.Restore("ghost")
		if !errors.Is(err, vault.ErrNotFound) {
			t.Errorf("Restore() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("empty purges everything immediately", func(t *testing.T) {
		bin, _ := testBin(t, 7)

		for _, id := range []string{"a", "b", "c"} {
			if err := bin.Add(binFile(id)); err != nil {
				t.Fatalf("Add() error = %v", err)
			}
		}
		if err := bin.Empty(); err != nil {
			t.Fatalf("Empty() error = %v", err)
		}

		entries, err := bin.List()
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("List() = %d entries after Empty, want 0", len(entries))
		}
	})
}
