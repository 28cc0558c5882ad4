package dbase

import (
	"path/filepath"
	"testing"
)

func TestVacuumDropsTombstones(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.dbf")
	table, err := Create(&Config{Filename: path})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := table.AddColumn("ID", Numeric, 5, 0); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	for i := int64(0); i < 4; i++ {
		if err := table.Insert([]interface{}{i}); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}
	if _, err := table.Delete(1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := table.Vacuum(); err != nil {
		t.Fatalf("Vacuum: %v", err)
	}
	if table.RecordCount() != 3 {
		t.Fatalf("RecordCount after vacuum = %d, want 3", table.RecordCount())
	}
	rows, err := table.GetAllData()
	if err != nil {
		t.Fatalf("GetAllData: %v", err)
	}
	want := []int64{0, 2, 3}
	if len(rows) != len(want) {
		t.Fatalf("len(rows) = %d, want %d", len(rows), len(want))
	}
	for i, row := range rows {
		if row[0] != want[i] {
			t.Errorf("rows[%d] = %v, want %v", i, row[0], want[i])
		}
	}
	if err := table.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
