package sqlite

import "testing"

func TestDriverSelection(t *testing.T) {
	name := DriverName()
	if name != "sqlite" && name != "sqlite3" {
		t.Errorf("DriverName() = %q, want sqlite or sqlite3", name)
	}
	typ := DriverType()
	if typ != "purego" && typ != "cgo" {
		t.Errorf("DriverType() = %q", typ)
	}
	if (typ == "cgo") != (name == "sqlite3") {
		t.Error("DriverType disagrees with DriverName")
	}
}

func TestOpenInMemory(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec("CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)"); err != nil {
		t.Fatalf("CREATE TABLE failed: %v", err)
	}
	if _, err := db.Exec("INSERT INTO t (v) VALUES (?)", "x"); err != nil {
		t.Fatalf("INSERT failed: %v", err)
	}
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM t").Scan(&n); err != nil || n != 1 {
		t.Fatalf("COUNT = %d, err = %v", n, err)
	}
}
