package varstore

import (
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
)

func openTestDB(t *testing.T, path string) *DB {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := OpenDB(path, logger)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDB_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vars.db")

	db := openTestDB(t, path)
	if err := db.SaveValue("/CONSUMPTION/L1/V", Float(119.497)); err != nil {
		t.Fatalf("SaveValue failed: %v", err)
	}
	if err := db.SaveValue("/CONSUMPTION/L1/ENERGY_IMP", Uint64(100227460449)); err != nil {
		t.Fatalf("SaveValue failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("closing database: %v", err)
	}

	// a fresh open against the same file must see the writes
	db2 := openTestDB(t, path)
	reg := NewRegistry()
	if err := DeclareAll(reg, ConsumptionDeclarations("/CONSUMPTION")); err != nil {
		t.Fatalf("declaring variables: %v", err)
	}

	restored, err := db2.LoadInto(reg)
	if err != nil {
		t.Fatalf("LoadInto failed: %v", err)
	}
	if restored != 2 {
		t.Errorf("restored %d variables, want 2", restored)
	}

	h, err := reg.FindByName("/CONSUMPTION/L1/ENERGY_IMP")
	if err != nil {
		t.Fatalf("FindByName failed: %v", err)
	}
	v, err := reg.Get(h)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v != Uint64(100227460449) {
		t.Errorf("restored value = %v, want 100227460449", v)
	}
}

func TestDB_SaveValueUpserts(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "vars.db"))

	for i := 0; i < 3; i++ {
		if err := db.SaveValue("/CONSUMPTION/L1/P", Uint16(uint16(300+i))); err != nil {
			t.Fatalf("SaveValue %d failed: %v", i, err)
		}
	}

	var records []VariableRecord
	if err := db.db.Find(&records).Error; err != nil {
		t.Fatalf("reading records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Value != "302" {
		t.Errorf("record value = %q, want \"302\"", records[0].Value)
	}
}

// TestDB_SaveValueConcurrent verifies that simultaneous first writes to one
// name cannot race the unique index: every write succeeds and exactly one
// record remains.
func TestDB_SaveValueConcurrent(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "vars.db"))

	const writers = 8
	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs <- db.SaveValue("/CONSUMPTION/TOTAL/P", Uint16(uint16(600+n)))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("concurrent SaveValue failed: %v", err)
		}
	}

	var records []VariableRecord
	if err := db.db.Find(&records).Error; err != nil {
		t.Fatalf("reading records: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records for one name, want 1", len(records))
	}
}

func TestDB_LoadIntoSkipsUndeclared(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "vars.db"))

	if err := db.SaveValue("/RETIRED/VAR", Uint16(1)); err != nil {
		t.Fatalf("SaveValue failed: %v", err)
	}
	if err := db.SaveValue("/CONSUMPTION/L1/P", Uint16(359)); err != nil {
		t.Fatalf("SaveValue failed: %v", err)
	}

	reg := NewRegistry()
	if _, err := reg.Declare("/CONSUMPTION/L1/P", KindUint16, Value{}); err != nil {
		t.Fatalf("Declare failed: %v", err)
	}

	restored, err := db.LoadInto(reg)
	if err != nil {
		t.Fatalf("LoadInto failed: %v", err)
	}
	if restored != 1 {
		t.Errorf("restored %d variables, want 1", restored)
	}
}

// TestDB_LoadIntoSkipsKindChange covers a redeclared variable whose kind no
// longer matches the persisted record.
func TestDB_LoadIntoSkipsKindChange(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "vars.db"))

	if err := db.SaveValue("/CONSUMPTION/L1/Q", Int16(-117)); err != nil {
		t.Fatalf("SaveValue failed: %v", err)
	}

	reg := NewRegistry()
	if _, err := reg.Declare("/CONSUMPTION/L1/Q", KindFloat, Value{}); err != nil {
		t.Fatalf("Declare failed: %v", err)
	}

	restored, err := db.LoadInto(reg)
	if err != nil {
		t.Fatalf("LoadInto failed: %v", err)
	}
	if restored != 0 {
		t.Errorf("restored %d variables, want 0", restored)
	}

	h, err := reg.FindByName("/CONSUMPTION/L1/Q")
	if err != nil {
		t.Fatalf("FindByName failed: %v", err)
	}
	v, err := reg.Get(h)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v != Float(0) {
		t.Errorf("value after skipped restore = %v, want the float zero", v)
	}
}
