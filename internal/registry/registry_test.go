package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInstallCopiesAndRecords(t *testing.T) {
	root := t.TempDir()
	pkg := filepath.Join(t.TempDir(), "mypkg")
	if err := os.MkdirAll(pkg, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pkg, "Lib.sag"), []byte("pub fun one(): number {\n\treturn 1\n}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	reg, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	defer reg.Close()

	rec, err := reg.Install(pkg)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Name != "mypkg" || rec.ID == "" {
		t.Fatalf("unexpected record %+v", rec)
	}

	if _, err := os.Stat(filepath.Join(root, "mypkg", "Lib.sag")); err != nil {
		t.Fatalf("package file was not copied: %v", err)
	}

	records, err := reg.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Name != "mypkg" {
		t.Fatalf("unexpected records %+v", records)
	}
}

func TestInstallRejectsFiles(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(t.TempDir(), "not-a-dir.sag")
	if err := os.WriteFile(file, []byte("1"), 0o644); err != nil {
		t.Fatal(err)
	}

	reg, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	defer reg.Close()

	if _, err := reg.Install(file); err == nil {
		t.Fatal("expected an error for a non-directory")
	}
}
