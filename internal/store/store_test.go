package store

import (
	"errors"
	"sync"
	"testing"
)

func TestTablePutGetDelete(t *testing.T) {
	tbl := NewTable[string]()

	if err := tbl.Put("a", "alpha"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := tbl.Put("a", "again"); !errors.Is(err, ErrExists) {
		t.Errorf("duplicate Put error = %v, want ErrExists", err)
	}

	v, err := tbl.Get("a")
	if err != nil || v != "alpha" {
		t.Errorf("Get = %q, %v", v, err)
	}

	if _, err := tbl.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing error = %v, want ErrNotFound", err)
	}

	if err := tbl.Delete("a"); err != nil {
		t.Errorf("Delete: %v", err)
	}
	if err := tbl.Delete("a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}
}

func TestTableReplace(t *testing.T) {
	tbl := NewTable[int]()
	if err := tbl.Replace("x", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Replace missing error = %v, want ErrNotFound", err)
	}
	tbl.Upsert("x", 1)
	if err := tbl.Replace("x", 2); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	v, _ := tbl.Get("x")
	if v != 2 {
		t.Errorf("Get = %d, want 2", v)
	}
}

func TestTableSnapshotIsCopy(t *testing.T) {
	tbl := NewTable[int]()
	tbl.Upsert("a", 1)
	tbl.Upsert("b", 2)

	snap := tbl.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot len = %d, want 2", len(snap))
	}

	tbl.Delete("a")
	tbl.Delete("b")
	if len(snap) != 2 {
		t.Errorf("snapshot mutated by table writes")
	}
}

func TestTableFind(t *testing.T) {
	tbl := NewTable[int]()
	tbl.Upsert("a", 10)
	tbl.Upsert("b", 20)

	v, ok := tbl.Find(func(n int) bool { return n > 15 })
	if !ok || v != 20 {
		t.Errorf("Find = %d, %v", v, ok)
	}
	if tbl.Any(func(n int) bool { return n > 100 }) {
		t.Error("Any reported a match for impossible predicate")
	}
}

func TestTableConcurrentAccess(t *testing.T) {
	tbl := NewTable[int]()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			tbl.Upsert("k", n)
		}(i)
		go func() {
			defer wg.Done()
			tbl.Snapshot()
			tbl.Len()
		}()
	}
	wg.Wait()
}
