package lfs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCreateLfsPointerRoundTrip(t *testing.T) {
	content := []byte("some large binary content")
	pointer := CreateLfsPointer(content)

	if !IsLfsPointer([]byte(pointer)) {
		t.Fatal("created pointer should be recognized as a pointer")
	}

	p, err := ParseLfsPointer([]byte(pointer))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Size != int64(len(content)) {
		t.Errorf("size = %d, want %d", p.Size, len(content))
	}
	if len(p.OID) != 64 {
		t.Errorf("oid length = %d, want 64 (hex sha256)", len(p.OID))
	}
}

func TestCreateLfsPointerDeterministic(t *testing.T) {
	content := []byte("identical content")
	if CreateLfsPointer(content) != CreateLfsPointer(content) {
		t.Error("same content should yield the same pointer")
	}
}

func TestIsLfsPointerRejectsRegularContent(t *testing.T) {
	if IsLfsPointer([]byte("package main\n\nfunc main() {}\n")) {
		t.Error("regular source text should not be a pointer")
	}
}

func TestIsLfsPointerRejectsOversizedContent(t *testing.T) {
	big := make([]byte, maxPointerSize+1)
	for i := range big {
		big[i] = 'a'
	}
	if IsLfsPointer(big) {
		t.Error("content over the size cap should not be a pointer")
	}
}

func TestIsLfsPointerRejectsInvalidUTF8(t *testing.T) {
	invalid := []byte{0xff, 0xfe, 0xfd}
	if IsLfsPointer(invalid) {
		t.Error("invalid UTF-8 should not be a pointer")
	}
}

func TestIsLfsPointerRejectsEmptyContent(t *testing.T) {
	if IsLfsPointer(nil) {
		t.Error("empty content should not be a pointer")
	}
}

func TestParseLfsPointerMissingOid(t *testing.T) {
	content := []byte(pointerPrefix + "size 100\n")
	if _, err := ParseLfsPointer(content); err == nil {
		t.Error("expected error for missing oid line")
	}
}

func TestParseLfsPointerMissingSize(t *testing.T) {
	content := []byte(pointerPrefix + "oid sha256:" + "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcd" + "\n")
	if _, err := ParseLfsPointer(content); err == nil {
		t.Error("expected error for missing size line")
	}
}

func TestParseLfsPointerNotAPointer(t *testing.T) {
	if _, err := ParseLfsPointer([]byte("not a pointer")); err == nil {
		t.Error("expected error for non-pointer content")
	}
}

func TestPatternForPathWithExtension(t *testing.T) {
	if got := PatternForPath("assets/images/logo.png"); got != "*.png" {
		t.Errorf("got %q, want *.png", got)
	}
}

func TestPatternForPathWithoutExtension(t *testing.T) {
	if got := PatternForPath("assets/Makefile"); got != "assets/Makefile" {
		t.Errorf("got %q, want literal path", got)
	}
}

func TestEnsureLfsTrackedCreatesFile(t *testing.T) {
	dir := t.TempDir()
	if err := EnsureLfsTracked(dir, "*.bin"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, ".gitattributes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "*.bin filter=lfs diff=lfs merge=lfs -text\n"
	if string(data) != want {
		t.Errorf("got %q, want %q", data, want)
	}
}

func TestEnsureLfsTrackedIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	if err := EnsureLfsTracked(dir, "*.bin"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := EnsureLfsTracked(dir, "*.bin"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, ".gitattributes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "*.bin filter=lfs diff=lfs merge=lfs -text\n"
	if string(data) != want {
		t.Errorf("got %q, want no duplicate line", data)
	}
}

func TestEnsureLfsTrackedAppendsNewPattern(t *testing.T) {
	dir := t.TempDir()
	if err := EnsureLfsTracked(dir, "*.bin"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := EnsureLfsTracked(dir, "*.psd"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, ".gitattributes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "*.bin filter=lfs diff=lfs merge=lfs -text\n*.psd filter=lfs diff=lfs merge=lfs -text\n"
	if string(data) != want {
		t.Errorf("got %q, want %q", data, want)
	}
}
