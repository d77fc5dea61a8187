package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDir_Produce_loops_in_name_order(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.aac", "bee")
	writeFile(t, dir, "a.aac", "ay")
	writeFile(t, dir, "notes.txt", "skip me")
	if err := os.Mkdir(filepath.Join(dir, "sub.aac"), 0o755); err != nil {
		t.Fatal(err)
	}

	d, err := NewDir(dir, ".aac")
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	if d.Len() != 2 {
		t.Fatalf("Len = %d, want 2", d.Len())
	}

	for i, want := range []string{"ay", "bee", "ay"} {
		got, err := d.Produce(context.Background())
		if err != nil {
			t.Fatalf("Produce %d: %v", i, err)
		}
		if string(got) != want {
			t.Errorf("Produce %d = %q, want %q", i, got, want)
		}
	}
}

func TestDir_empty_extension_matches_all(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.aac", "a")
	writeFile(t, dir, "b.mp3", "b")

	d, err := NewDir(dir, "")
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	if d.Len() != 2 {
		t.Errorf("Len = %d, want 2", d.Len())
	}
}

func TestNewDir_no_files(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.mp3", "a")

	if _, err := NewDir(dir, ".aac"); !errors.Is(err, ErrNoFiles) {
		t.Errorf("expected ErrNoFiles, got %v", err)
	}
	if _, err := NewDir(filepath.Join(dir, "missing"), ".aac"); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestDir_Produce_cancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.aac", "a")
	d, err := NewDir(dir, ".aac")
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Produce(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDir_Produce_file_removed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.aac", "a")
	d, err := NewDir(dir, ".aac")
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, "a.aac")); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Produce(context.Background()); err == nil {
		t.Error("expected error reading removed file")
	}
}

func TestSilence_Produce(t *testing.T) {
	got, err := Silence{}.Produce(context.Background())
	if err != nil || len(got) != 0 {
		t.Errorf("Produce = %q, %v; want empty, nil", got, err)
	}
}
