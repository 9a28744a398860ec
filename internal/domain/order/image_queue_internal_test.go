package order

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
)

func TestClaimNextRetriesLostRace(t *testing.T) {
	first, second := &ImageJob{ItemID: uuid.New()}, &ImageJob{ItemID: uuid.New()}
	candidates := []*ImageJob{first, second}
	var claims []uuid.UUID

	next := func(context.Context) (*ImageJob, bool, error) {
		if len(candidates) == 0 {
			return nil, false, nil
		}
		j := candidates[0]
		candidates = candidates[1:]
		return j, true, nil
	}
	// another worker takes the first candidate between select and update
	claim := func(_ context.Context, id uuid.UUID) (bool, error) {
		claims = append(claims, id)
		return id == second.ItemID, nil
	}

	j, ok, err := claimNext(context.Background(), next, claim)
	if err != nil || !ok {
		t.Fatalf("expected a claimed job, got ok=%v err=%v", ok, err)
	}
	if j != second || len(claims) != 2 {
		t.Fatalf("expected the second candidate after one lost race, got %v (claims %v)", j.ItemID, claims)
	}
}

func TestClaimNextEmptyAndErrors(t *testing.T) {
	empty := func(context.Context) (*ImageJob, bool, error) { return nil, false, nil }
	never := func(context.Context, uuid.UUID) (bool, error) {
		t.Fatal("claim must not run without a candidate")
		return false, nil
	}
	if _, ok, err := claimNext(context.Background(), empty, never); ok || err != nil {
		t.Fatalf("expected an empty queue, got ok=%v err=%v", ok, err)
	}

	boom := errors.New("connection reset")
	one := func(context.Context) (*ImageJob, bool, error) { return &ImageJob{ItemID: uuid.New()}, true, nil }
	failing := func(context.Context, uuid.UUID) (bool, error) { return false, boom }
	if _, _, err := claimNext(context.Background(), one, failing); !errors.Is(err, boom) {
		t.Fatalf("expected claim error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	lost := func(context.Context, uuid.UUID) (bool, error) { return false, nil }
	if _, ok, err := claimNext(ctx, one, lost); ok || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation to end the retries, got ok=%v err=%v", ok, err)
	}
}

func TestImageErrorText(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"short ascii", "download: not found"},
		{"multibyte at the cut", strings.Repeat("a", maxImageErrorBytes-1) + "é" + "tail"},
		{"long multibyte", strings.Repeat("图", 1000)},
		{"invalid utf8", "bad \xff\xfe bytes"},
		{"nul byte", "decode\x00failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := imageErrorText(tt.in)
			if !utf8.ValidString(got) {
				t.Fatalf("result is not valid UTF-8: %q", got)
			}
			if len(got) > maxImageErrorBytes {
				t.Fatalf("result is %d bytes", len(got))
			}
			if strings.ContainsRune(got, 0) {
				t.Fatalf("result keeps a NUL byte: %q", got)
			}
		})
	}

	if got := imageErrorText(strings.Repeat("a", maxImageErrorBytes-1) + "é"); got != strings.Repeat("a", maxImageErrorBytes-1) {
		t.Fatalf("expected the split rune to be dropped, got %d bytes", len(got))
	}
}
