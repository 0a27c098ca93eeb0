package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"normal name", "normal name"},
		{`bad<>:"/\|?*chars`, "badchars"},
		{"trailing dots...", "trailing dots"},
		{"trailing space ", "trailing space"},
	}
	for _, c := range cases {
		if got := Sanitize(c.in); got != c.want {
			t.Errorf("Sanitize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestASCIIFilename(t *testing.T) {
	cases := []struct {
		title    string
		fallback string
		want     string
	}{
		{"Plain Title", "video", "Plain Title"},
		{"日本語タイトル", "video", "video"},
		{"Mixed 日本語 Title", "video", "Mixed  Title"},
		{"", "job-1", "job-1"},
	}
	for _, c := range cases {
		if got := ASCIIFilename(c.title, c.fallback); got != c.want {
			t.Errorf("ASCIIFilename(%q) = %q, want %q", c.title, got, c.want)
		}
	}
}

func TestCleanupDirIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "job-xyz")
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "partial.mp4"), []byte("data"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if err := CleanupDir(dir); err != nil {
		t.Errorf("First cleanup failed: %v", err)
	}
	if err := CleanupDir(dir); err != nil {
		t.Errorf("Second cleanup failed: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("Expected directory to be gone")
	}
}

func TestFindOutputFile(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "video.mp4.part"), make([]byte, 100), 0644)
	os.WriteFile(filepath.Join(dir, "video.mp4"), make([]byte, 50), 0644)
	os.WriteFile(filepath.Join(dir, "thumb.jpg"), make([]byte, 10), 0644)

	path, err := FindOutputFile(dir)
	if err != nil {
		t.Fatalf("FindOutputFile failed: %v", err)
	}
	if filepath.Base(path) != "video.mp4" {
		t.Errorf("Expected video.mp4, got %s", filepath.Base(path))
	}
}

func TestFindOutputFileEmpty(t *testing.T) {
	if _, err := FindOutputFile(t.TempDir()); err == nil {
		t.Error("Expected error for empty directory")
	}
}
