package storage_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/unimart/unimart-api/internal/pkg/storage"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, err := storage.New(storage.Config{Driver: "local", LocalPath: t.TempDir(), LocalURL: "http://localhost:8080/media/"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	key := "receipts/order-1/item-1.jpg"
	if ok, _ := st.Exists(ctx, key); ok {
		t.Fatal("object must not exist yet")
	}
	if err := st.Put(ctx, key, strings.NewReader("jpeg-bytes"), "image/jpeg"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if ok, err := st.Exists(ctx, key); err != nil || !ok {
		t.Fatalf("expected object to exist, got %v %v", ok, err)
	}

	rc, err := st.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "jpeg-bytes" {
		t.Fatalf("unexpected content %q", data)
	}

	if got := st.GetURL(key); got != "http://localhost:8080/media/"+key {
		t.Fatalf("unexpected url %s", got)
	}

	if err := st.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := st.Delete(ctx, key); err != nil {
		t.Fatalf("second delete must be a no-op: %v", err)
	}
	if _, err := st.Get(ctx, key); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLocalStorageRejectsEscapingKeys(t *testing.T) {
	st, _ := storage.NewLocalStorage(t.TempDir(), "http://localhost")
	if err := st.Put(context.Background(), "../outside.txt", strings.NewReader("x"), "text/plain"); err == nil {
		t.Fatal("expected path escape to be rejected")
	}
}

func TestNewUnknownDriver(t *testing.T) {
	if _, err := storage.New(storage.Config{Driver: "ftp"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
