package uploads

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestSaveAndOpen(t *testing.T) {
	saver, err := NewSaver(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create saver: %v", err)
	}

	ref, err := saver.Save("plan.pdf", bytes.NewReader([]byte("content")))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !strings.HasSuffix(ref, "_plan.pdf") {
		t.Errorf("Reference should keep the original name, got %s", ref)
	}

	f, err := saver.Open(ref)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(data) != "content" {
		t.Errorf("Round-trip mismatch: %q", data)
	}
}

func TestSanitizeStripsPaths(t *testing.T) {
	cases := map[string]string{
		"../../etc/passwd": "passwd",
		"dir/file.txt":     "file.txt",
		"..":               "upload",
	}
	for in, want := range cases {
		if got := sanitize(in); got != want {
			t.Errorf("sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}
