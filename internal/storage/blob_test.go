package storage

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestFileBlobStore_SaveAndRead(t *testing.T) {
	store, err := NewFileBlobStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBlobStore failed: %v", err)
	}
	ctx := context.Background()

	content := []byte("<html>lease</html>")
	url, err := store.Save(ctx, "lease/l1/abc123.html", content)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !strings.HasPrefix(url, "file://") {
		t.Errorf("url = %q, want file:// scheme", url)
	}

	read, err := store.Read(ctx, "lease/l1/abc123.html")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(read, content) {
		t.Error("read content differs from saved content")
	}
}

func TestFileBlobStore_NeverOverwrites(t *testing.T) {
	store, err := NewFileBlobStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBlobStore failed: %v", err)
	}
	ctx := context.Background()

	original := []byte("original")
	if _, err := store.Save(ctx, "lease/l1/h1.html", original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Keys are content-addressed, so a second save of the same key is a
	// no-op and the stored bytes stay untouched
	url, err := store.Save(ctx, "lease/l1/h1.html", []byte("other"))
	if err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	if url == "" {
		t.Error("second Save returned empty url")
	}

	read, err := store.Read(ctx, "lease/l1/h1.html")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(read, original) {
		t.Error("stored artifact was overwritten")
	}
}

func TestFileBlobStore_RejectsTraversal(t *testing.T) {
	store, err := NewFileBlobStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBlobStore failed: %v", err)
	}

	if _, err := store.Save(context.Background(), "../outside.html", []byte("x")); err == nil {
		t.Error("traversal key accepted")
	}
	if _, err := store.Read(context.Background(), "../../etc/passwd"); err == nil {
		t.Error("traversal read accepted")
	}
}
