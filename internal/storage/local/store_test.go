package local

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestNewStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	newDir := filepath.Join(tmpDir, "subdir", "nested")

	store, err := NewStore(newDir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if store.basePath != newDir {
		t.Errorf("basePath = %v, want %v", store.basePath, newDir)
	}

	info, err := os.Stat(newDir)
	if err != nil {
		t.Fatalf("directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected directory, got file")
	}
}

func TestStore_Save_Load(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	type testData struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	}
	original := testData{Name: "test", Value: 42}

	if err := store.Save("collection", "item1", original); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	var loaded testData
	if err := store.Load("collection", "item1", &loaded); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded != original {
		t.Errorf("Load() = %+v, want %+v", loaded, original)
	}
}

func TestStore_RootCollection(t *testing.T) {
	tmpDir := t.TempDir()
	store, _ := NewStore(tmpDir)

	if err := store.Save("", "auth", map[string]string{"token": "abc"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "auth.json")); err != nil {
		t.Errorf("auth.json not written at base path: %v", err)
	}
}

func TestStore_FileMode(t *testing.T) {
	tmpDir := t.TempDir()
	store, _ := NewStore(tmpDir, WithFileMode(0600))

	if err := store.Save("", "secret", "value"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	info, err := os.Stat(filepath.Join(tmpDir, "secret.json"))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("perm = %o, want 600", perm)
	}
}

func TestStore_Load_NotFound(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	var data struct{}
	if err := store.Load("collection", "nonexistent", &data); err != ErrNotFound {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestStore_Delete(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	data := map[string]string{"key": "value"}

	store.Save("collection", "to-delete", data)
	if err := store.Delete("collection", "to-delete"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Load("collection", "to-delete", &data); err != ErrNotFound {
		t.Error("Load() should return ErrNotFound after deletion")
	}
	if err := store.Delete("collection", "to-delete"); err != ErrNotFound {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestStore_List(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	for _, id := range []string{"c", "a", "b"} {
		store.Save("pending", id, id)
	}

	ids, err := store.List("pending")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"a", "b", "c"}
	if fmt.Sprint(ids) != fmt.Sprint(want) {
		t.Errorf("List() = %v, want %v", ids, want)
	}

	empty, err := store.List("missing")
	if err != nil || len(empty) != 0 {
		t.Errorf("List(missing) = %v, %v", empty, err)
	}
}

func TestStore_Exists(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	if store.Exists("c", "x") {
		t.Error("Exists() = true before Save")
	}
	store.Save("c", "x", 1)
	if !store.Exists("c", "x") {
		t.Error("Exists() = false after Save")
	}
}

func TestStore_Overwrite(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	store.Save("c", "x", map[string]int{"v": 1})
	store.Save("c", "x", map[string]int{"v": 2})

	var got map[string]int
	store.Load("c", "x", &got)
	if got["v"] != 2 {
		t.Errorf("v = %d, want 2", got["v"])
	}
}

func TestStore_Concurrency(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("item-%d", n)
			if err := store.Save("c", id, n); err != nil {
				t.Errorf("Save(%s) error = %v", id, err)
			}
			var v int
			if err := store.Load("c", id, &v); err != nil || v != n {
				t.Errorf("Load(%s) = %d, %v", id, v, err)
			}
		}(i)
	}
	wg.Wait()

	ids, _ := store.List("c")
	if len(ids) != 20 {
		t.Errorf("List() returned %d ids, want 20", len(ids))
	}
}
