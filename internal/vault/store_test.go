package vault_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"pv-go/internal/capacity"
	"pv-go/internal/crypto"
	"pv-go/internal/keyvalue"
	"pv-go/internal/model"
	"pv-go/internal/testutil"
	"pv-go/internal/vault"
)

// testStore wires a VaultStore over in-memory backends with stubbed clock
// and IDs. The returned bin shares the same key-value store.
func testStore(t *testing.T) (*vault.VaultStore, *vault.RecycleBin, *testutil.StubClock) {
	t.Helper()

	kv := keyvalue.NewMemoryStore()
	clock := testutil.FixedClock()
	life := vault.NewLifecycle()
	logger := vault.NewNopLogger()

	key, err := crypto.NewMasterKey()
	if err != nil {
		t.Fatalf("NewMasterKey() error = %v", err)
	}

	bin := vault.NewRecycleBin(kv, clock, logger, life, 0)
	store := vault.NewVaultStore(kv, crypto.NewGCMCipher(key), bin, capacity.NewFixedProvider(1000, 800), logger, clock, testutil.NewStubIDGenerator(), life)
	return store, bin, clock
}

func TestVaultStore_AddFile(t *testing.T) {
	t.Run("round trips content through encryption", func(t *testing.T) {
		store, _, _ := testStore(t)

		content := []byte("very private document")
		file, err := store.AddFile(content, "doc.txt", model.FileTypeDocument, "")
		if err != nil {
			t.Fatalf("AddFile() error = %v", err)
		}
		if file.Size != int64(len(content)) {
			t.Errorf("Size = %d, want %d", file.Size, len(content))
		}
		if bytes.Contains(file.Payload, content) {
			t.Error("payload contains plaintext")
		}

		got, err := store.GetFileContent(file.ID)
		if err != nil {
			t.Fatalf("GetFileContent() error = %v", err)
		}
		if !bytes.Equal(got, content) {
			t.Errorf("GetFileContent() = %q, want %q", got, content)
		}
	})

	t.Run("rejects unknown folder", func(t *testing.T) {
		store, _, _ := testStore(t)

		_, err := store.AddFile([]byte("x"), "a.txt", model.FileTypeOther, "no-such-folder")
		if !errors.Is(err, vault.ErrNotFound) {
			t.Errorf("AddFile() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("stamps added and modified dates equally", func(t *testing.T) {
		store, _, clock := testStore(t)

		file, err := store.AddFile([]byte("x"), "a.txt", model.FileTypeOther, "")
		if err != nil {
			t.Fatalf("AddFile() error = %v", err)
		}
		if !file.DateAdded.Equal(clock.Now()) || !file.DateModified.Equal(clock.Now()) {
			t.Errorf("dates = %v/%v, want both %v", file.DateAdded, file.DateModified, clock.Now())
		}
	})
}

func TestVaultStore_DeleteFile(t *testing.T) {
	t.Run("soft delete moves the file to the recycle bin", func(t *testing.T) {
		store, bin, _ := testStore(t)

		file, err := store.AddFile([]byte("x"), "a.txt", model.FileTypeOther, "")
		if err != nil {
			t.Fatalf("AddFile() error = %v", err)
		}
		if err := store.DeleteFile(file.ID, false); err != nil {
			t.Fatalf("DeleteFile() error = %v", err)
		}

		files, err := store.ListFiles()
		if err != nil {
			t.Fatalf("ListFiles() error = %v", err)
		}
		if len(files) != 0 {
			t.Errorf("ListFiles() = %d files, want 0", len(files))
		}

		entries, err := bin.List()
		if err != nil {
			t.Fatalf("bin.List() error = %v", err)
		}
		if len(entries) != 1 || entries[0].File.ID != file.ID {
			t.Errorf("bin entries = %+v, want the deleted file", entries)
		}
	})

	t.Run("permanent delete bypasses the recycle bin", func(t *testing.T) {
		store, bin, _ := testStore(t)

		file, err := store.AddFile([]byte("x"), "a.txt", model.FileTypeOther, "")
		if err != nil {
			t.Fatalf("AddFile() error = %v", err)
		}
		if err := store.DeleteFile(file.ID, true); err != nil {
			t.Fatalf("DeleteFile() error = %v", err)
		}

		entries, err := bin.List()
		if err != nil {
			t.Fatalf("bin.List() error = %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("bin has %d entries, want 0", len(entries))
		}
	})

	t.Run("deleting a nonexistent id is a no-op", func(t *testing.T) {
		store, _, _ := testStore(t)

		if err := store.DeleteFile("ghost", false); err != nil {
			t.Errorf("DeleteFile() error = %v, want nil", err)
		}
	})
}

func TestVaultStore_RestoreFromBin(t *testing.T) {
	t.Run("restores into the original folder", func(t *testing.T) {
		store, _, _ := testStore(t)

		folder, err := store.AddFolder("docs", "")
		if err != nil {
			t.Fatalf("AddFolder() error = %v", err)
		}
		file, err := store.AddFile([]byte("x"), "a.txt", model.FileTypeOther, folder.ID)
		if err != nil {
			t.Fatalf("AddFile() error = %v", err)
		}
		if err := store.DeleteFile(file.ID, false); err != nil {
			t.Fatalf("DeleteFile() error = %v", err)
		}

		restored, err := store.RestoreFromBin(file.ID)
		if err != nil {
			t.Fatalf("RestoreFromBin() error = %v", err)
		}
		if restored.FolderID != folder.ID {
			t.Errorf("FolderID = %q, want %q", restored.FolderID, folder.ID)
		}
	})

	t.Run("re-roots when the original folder is gone", func(t *testing.T) {
		store, _, _ := testStore(t)

		folder, err := store.AddFolder("docs", "")
		if err != nil {
			t.Fatalf("AddFolder() error = %v", err)
		}
		file, err := store.AddFile([]byte("x"), "a.txt", model.FileTypeOther, folder.ID)
		if err != nil {
			t.Fatalf("AddFile() error = %v", err)
		}
		if err := store.DeleteFile(file.ID, false); err != nil {
			t.Fatalf("DeleteFile() error = %v", err)
		}
		if err := store.DeleteFolder(folder.ID); err != nil {
			t.Fatalf("DeleteFolder() error = %v", err)
		}

		restored, err := store.RestoreFromBin(file.ID)
		if err != nil {
			t.Fatalf("RestoreFromBin() error = %v", err)
		}
		if restored.FolderID != "" {
			t.Errorf("FolderID = %q, want root", restored.FolderID)
		}
	})

	t.Run("keeps a single record when the file is still live", func(t *testing.T) {
		store, bin, _ := testStore(t)

		file, err := store.AddFile([]byte("x"), "a.txt", model.FileTypeOther, "")
		if err != nil {
			t.Fatalf("AddFile() error = %v", err)
		}
		// A delete interrupted between the bin write and the catalog write
		// leaves the record in both places.
		if err := bin.Add(*file); err != nil {
			t.Fatalf("bin.Add() error = %v", err)
		}

		restored, err := store.RestoreFromBin(file.ID)
		if err != nil {
			t.Fatalf("RestoreFromBin() error = %v", err)
		}
		if restored.ID != file.ID {
			t.Errorf("restored ID = %q, want %q", restored.ID, file.ID)
		}

		files, err := store.ListFiles()
		if err != nil {
			t.Fatalf("ListFiles() error = %v", err)
		}
		count := 0
		for _, f := range files {
			if f.ID == file.ID {
				count++
			}
		}
		if count != 1 {
			t.Errorf("catalog has %d records for %s, want 1", count, file.ID)
		}

		entries, err := bin.List()
		if err != nil {
			t.Fatalf("bin.List() error = %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("bin entries = %d, want 0", len(entries))
		}
	})
}

func TestVaultStore_Metadata(t *testing.T) {
	t.Run("move does not bump the modified date", func(t *testing.T) {
		store, _, clock := testStore(t)

		folder, err := store.AddFolder("docs", "")
		if err != nil {
			t.Fatalf("AddFolder() error = %v", err)
		}
		file, err := store.AddFile([]byte("x"), "a.txt", model.FileTypeOther, "")
		if err != nil {
			t.Fatalf("AddFile() error = %v", err)
		}

		clock.Advance(time.Hour)
		if err := store.MoveFile(file.ID, folder.ID); err != nil {
			t.Fatalf("MoveFile() error = %v", err)
		}

		files, err := store.ListFiles()
		if err != nil {
			t.Fatalf("ListFiles() error = %v", err)
		}
		if !files[0].DateModified.Equal(file.DateModified) {
			t.Errorf("DateModified = %v, want unchanged %v", files[0].DateModified, file.DateModified)
		}
		if files[0].FolderID != folder.ID {
			t.Errorf("FolderID = %q, want %q", files[0].FolderID, folder.ID)
		}
	})

	t.Run("rename bumps the modified date", func(t *testing.T) {
		store, _, clock := testStore(t)

		file, err := store.AddFile([]byte("x"), "a.txt", model.FileTypeOther, "")
		if err != nil {
			t.Fatalf("AddFile() error = %v", err)
		}

		clock.Advance(time.Hour)
		if err := store.RenameFile(file.ID, "b.txt"); err != nil {
			t.Fatalf("RenameFile() error = %v", err)
		}

		files, err := store.ListFiles()
		if err != nil {
			t.Fatalf("ListFiles() error = %v", err)
		}
		if files[0].Name != "b.txt" {
			t.Errorf("Name = %q, want b.txt", files[0].Name)
		}
		if !files[0].DateModified.Equal(clock.Now()) {
			t.Errorf("DateModified = %v, want %v", files[0].DateModified, clock.Now())
		}
	})

	t.Run("adding a duplicate tag is a no-op", func(t *testing.T) {
		store, _, _ := testStore(t)

		file, err := store.AddFile([]byte("x"), "a.txt", model.FileTypeOther, "")
		if err != nil {
			t.Fatalf("AddFile() error = %v", err)
		}
		if err := store.AddTag(file.ID, "work"); err != nil {
			t.Fatalf("AddTag() error = %v", err)
		}
		if err := store.AddTag(file.ID, "work"); err != nil {
			t.Fatalf("AddTag() error = %v", err)
		}

		files, err := store.ListFiles()
		if err != nil {
			t.Fatalf("ListFiles() error = %v", err)
		}
		if len(files[0].Tags) != 1 {
			t.Errorf("Tags = %v, want exactly one", files[0].Tags)
		}
	})

	t.Run("removing an absent tag is a no-op", func(t *testing.T) {
		store, _, _ := testStore(t)

		file, err := store.AddFile([]byte("x"), "a.txt", model.FileTypeOther, "")
		if err != nil {
			t.Fatalf("AddFile() error = %v", err)
		}
		if err := store.RemoveTag(file.ID, "nope"); err != nil {
			t.Errorf("RemoveTag() error = %v, want nil", err)
		}
	})

	t.Run("favorite toggles back and forth", func(t *testing.T) {
		store, _, _ := testStore(t)

		file, err := store.AddFile([]byte("x"), "a.txt", model.FileTypeOther, "")
		if err != nil {
			t.Fatalf("AddFile() error = %v", err)
		}

		fav, err := store.ToggleFavorite(file.ID)
		if err != nil {
			t.Fatalf("ToggleFavorite() error = %v", err)
		}
		if !fav {
			t.Error("ToggleFavorite() = false, want true")
		}
		fav, err = store.ToggleFavorite(file.ID)
		if err != nil {
			t.Fatalf("ToggleFavorite() error = %v", err)
		}
		if fav {
			t.Error("ToggleFavorite() = true, want false")
		}
	})

	t.Run("mutating a missing file is ErrNotFound", func(t *testing.T) {
		store, _, _ := testStore(t)

		if err := store.RenameFile("ghost", "x"); !errors.Is(err, vault.ErrNotFound) {
			t.Errorf("RenameFile() error = %v, want ErrNotFound", err)
		}
	})
}

func TestVaultStore_DeleteFolder(t *testing.T) {
	t.Run("permanently destroys direct files", func(t *testing.T) {
		store, bin, _ := testStore(t)

		folder, err := store.AddFolder("docs", "")
		if err != nil {
			t.Fatalf("AddFolder() error = %v", err)
		}
		if _, err := store.AddFile([]byte("x"), "a.txt", model.FileTypeOther, folder.ID); err != nil {
			t.Fatalf("AddFile() error = %v", err)
		}
		outside, err := store.AddFile([]byte("y"), "b.txt", model.FileTypeOther, "")
		if err != nil {
			t.Fatalf("AddFile() error = %v", err)
		}

		if err := store.DeleteFolder(folder.ID); err != nil {
			t.Fatalf("DeleteFolder() error = %v", err)
		}

		files, err := store.ListFiles()
		if err != nil {
			t.Fatalf("ListFiles() error = %v", err)
		}
		if len(files) != 1 || files[0].ID != outside.ID {
			t.Errorf("ListFiles() = %+v, want only the file outside the folder", files)
		}

		// Folder deletion is destructive: nothing lands in the bin.
		entries, err := bin.List()
		if err != nil {
			t.Fatalf("bin.List() error = %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("bin has %d entries, want 0", len(entries))
		}
	})

	t.Run("re-roots subfolders of a deleted parent", func(t *testing.T) {
		store, _, _ := testStore(t)

		parent, err := store.AddFolder("parent", "")
		if err != nil {
			t.Fatalf("AddFolder() error = %v", err)
		}
		child, err := store.AddFolder("child", parent.ID)
		if err != nil {
			t.Fatalf("AddFolder() error = %v", err)
		}

		if err := store.DeleteFolder(parent.ID); err != nil {
			t.Fatalf("DeleteFolder() error = %v", err)
		}

		folders, err := store.ListFolders()
		if err != nil {
			t.Fatalf("ListFolders() error = %v", err)
		}
		if len(folders) != 1 || folders[0].ID != child.ID {
			t.Fatalf("ListFolders() = %+v, want only the child", folders)
		}
		if folders[0].ParentID != "" {
			t.Errorf("child ParentID = %q, want root", folders[0].ParentID)
		}
	})

	t.Run("deleting a missing folder is ErrNotFound", func(t *testing.T) {
		store, _, _ := testStore(t)

		if err := store.DeleteFolder("ghost"); !errors.Is(err, vault.ErrNotFound) {
			t.Errorf("DeleteFolder() error = %v, want ErrNotFound", err)
		}
	})
}

func TestVaultStore_SearchFiles(t *testing.T) {
	t.Run("matches name and tags case-insensitively", func(t *testing.T) {
		store, _, _ := testStore(t)

		taxes, err := store.AddFile([]byte("1"), "Taxes-2023.pdf", model.FileTypeDocument, "")
		if err != nil {
			t.Fatalf("AddFile() error = %v", err)
		}
		photo, err := store.AddFile([]byte("2"), "beach.jpg", model.FileTypeImage, "")
		if err != nil {
			t.Fatalf("AddFile() error = %v", err)
		}
		if err := store.AddTag(photo.ID, "Vacation"); err != nil {
			t.Fatalf("AddTag() error = %v", err)
		}

		results, err := store.SearchFiles("taxes")
		if err != nil {
			t.Fatalf("SearchFiles() error = %v", err)
		}
		var ids []string
		for f := range results {
			ids = append(ids, f.ID)
		}
		if len(ids) != 1 || ids[0] != taxes.ID {
			t.Errorf("search(taxes) = %v, want [%s]", ids, taxes.ID)
		}

		results, err = store.SearchFiles("vacation")
		if err != nil {
			t.Fatalf("SearchFiles() error = %v", err)
		}
		ids = nil
		for f := range results {
			ids = append(ids, f.ID)
		}
		if len(ids) != 1 || ids[0] != photo.ID {
			t.Errorf("search(vacation) = %v, want [%s]", ids, photo.ID)
		}
	})

	t.Run("sequence is restartable", func(t *testing.T) {
		store, _, _ := testStore(t)

		for _, name := range []string{"a.txt", "ab.txt", "abc.txt"} {
			if _, err := store.AddFile([]byte("x"), name, model.FileTypeOther, ""); err != nil {
				t.Fatalf("AddFile() error = %v", err)
			}
		}

		results, err := store.SearchFiles("a")
		if err != nil {
			t.Fatalf("SearchFiles() error = %v", err)
		}

		first := 0
		for range results {
			first++
			if first == 1 {
				break
			}
		}
		second := 0
		for range results {
			second++
		}
		if second != 3 {
			t.Errorf("second iteration yielded %d, want 3", second)
		}
	})
}

func TestVaultStore_StorageUsage(t *testing.T) {
	store, _, _ := testStore(t)

	if _, err := store.AddFile(make([]byte, 100), "a.bin", model.FileTypeOther, ""); err != nil {
		t.Fatalf("AddFile() error = %v", err)
	}
	if _, err := store.AddFile(make([]byte, 150), "b.bin", model.FileTypeOther, ""); err != nil {
		t.Fatalf("AddFile() error = %v", err)
	}

	usage, err := store.StorageUsage()
	if err != nil {
		t.Fatalf("StorageUsage() error = %v", err)
	}
	if usage.UsedBytes != 250 {
		t.Errorf("UsedBytes = %d, want 250", usage.UsedBytes)
	}
	if usage.TotalBytes != 1000 || usage.AvailableBytes != 800 {
		t.Errorf("device = %d/%d, want 1000/800", usage.TotalBytes, usage.AvailableBytes)
	}
	if usage.UsedPercent != 25.0 {
		t.Errorf("UsedPercent = %v, want 25", usage.UsedPercent)
	}
}

func TestVaultStore_FolderCounts(t *testing.T) {
	store, _, _ := testStore(t)

	folder, err := store.AddFolder("docs", "")
	if err != nil {
		t.Fatalf("AddFolder() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := store.AddFile([]byte("x"), "f.txt", model.FileTypeOther, folder.ID); err != nil {
			t.Fatalf("AddFile() error = %v", err)
		}
	}

	folders, err := store.ListFolders()
	if err != nil {
		t.Fatalf("ListFolders() error = %v", err)
	}
	if folders[0].FileCount != 3 {
		t.Errorf("FileCount = %d, want 3", folders[0].FileCount)
	}
}
