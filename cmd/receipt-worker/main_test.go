package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/unimart/unimart-api/internal/domain/order"
	"github.com/unimart/unimart-api/internal/pkg/imaging"
	"github.com/unimart/unimart-api/internal/pkg/storage"
)

type fakeQueue struct {
	mu     sync.Mutex
	jobs   []*order.ImageJob
	done   map[uuid.UUID]string
	failed map[uuid.UUID]string
}

func (q *fakeQueue) ClaimImageJob(context.Context) (*order.ImageJob, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return nil, false, nil
	}
	j := q.jobs[0]
	q.jobs = q.jobs[1:]
	return j, true, nil
}

func (q *fakeQueue) MarkImageDone(_ context.Context, id uuid.UUID, key string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.done[id] = key
	return nil
}

func (q *fakeQueue) MarkImageFailed(_ context.Context, id uuid.UUID, msg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failed[id] = msg
	return nil
}

func TestWorkerSnapshotsReceiptImages(t *testing.T) {
	ctx := context.Background()
	st, err := storage.NewLocalStorage(t.TempDir(), "http://localhost/media")
	if err != nil {
		t.Fatalf("storage: %v", err)
	}

	var buf bytes.Buffer
	png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1200, 600)))
	st.Put(ctx, "products/p1.png", &buf, "image/png")

	good := &order.ImageJob{ItemID: uuid.New(), OrderID: uuid.New(), ImageKey: "products/p1.png"}
	missing := &order.ImageJob{ItemID: uuid.New(), OrderID: uuid.New(), ImageKey: "products/gone.png"}
	q := &fakeQueue{jobs: []*order.ImageJob{good, missing}, done: map[uuid.UUID]string{}, failed: map[uuid.UUID]string{}}

	w := &worker{queue: q, store: st, proc: imaging.NewProcessor(imaging.DefaultConfig())}
	for {
		processed, err := w.step(ctx)
		if err != nil {
			t.Fatalf("step: %v", err)
		}
		if !processed {
			break
		}
	}

	if q.done[good.ItemID] != good.SnapshotKey() {
		t.Fatalf("expected snapshot key %s, got %q", good.SnapshotKey(), q.done[good.ItemID])
	}
	if ok, _ := st.Exists(ctx, good.SnapshotKey()); !ok {
		t.Fatal("snapshot was not written")
	}
	if q.failed[missing.ItemID] == "" {
		t.Fatal("missing source image must mark the item failed")
	}
}
