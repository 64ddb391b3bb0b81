package persist

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

func TestObjectStoreRoundTrip(t *testing.T) {
	endpoint := strings.TrimSpace(os.Getenv("SHEET_TEST_S3_ENDPOINT"))
	if endpoint == "" {
		t.Skip("SHEET_TEST_S3_ENDPOINT is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := NewObjectStore(ctx, ObjectStoreOptions{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("SHEET_TEST_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("SHEET_TEST_S3_SECRET_KEY"),
		Bucket:    "sheet-test",
	})
	if err != nil {
		t.Fatalf("NewObjectStore() error = %v", err)
	}
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	key := "roundtrip-" + time.Now().Format("20060102150405.000000")
	if _, err := store.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() before put error = %v, want ErrNotFound", err)
	}
	if err := store.Put(ctx, key, []byte(`["x"]`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err := store.Get(ctx, key)
	if err != nil || string(got) != `["x"]` {
		t.Fatalf("Get() = %s, %v", got, err)
	}
}
