package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// MaxImageAttempts bounds how often a receipt image is retried.
const MaxImageAttempts = 3

const (
	// imageClaimLease is how long a worker may hold an item in processing.
	imageClaimLease    = 10 * time.Minute
	maxImageErrorBytes = 2000
)

// ImageJob is an order item whose product image still has to be copied
// into the receipt.
type ImageJob struct {
	ItemID   uuid.UUID `db:"id"`
	OrderID  uuid.UUID `db:"order_id"`
	ImageKey string    `db:"image_key"`
}

// SnapshotKey is where the receipt copy of the image is stored.
func (j *ImageJob) SnapshotKey() string {
	return fmt.Sprintf("receipts/%s/%s.jpg", j.OrderID, j.ItemID)
}

// ImageQueue hands receipt image work to the receipt worker.
type ImageQueue interface {
	ClaimImageJob(ctx context.Context) (*ImageJob, bool, error)
	MarkImageDone(ctx context.Context, itemID uuid.UUID, snapshotKey string) error
	MarkImageFailed(ctx context.Context, itemID uuid.UUID, msg string) error
}

func NewImageQueue(db *sqlx.DB) ImageQueue {
	return &repository{db: db}
}

// ClaimImageJob picks the oldest pending or failed item and claims it with
// a conditional update, so concurrent workers never process the same row.
// Items left in processing past imageClaimLease are first returned to
// failed, keeping the attempt they used.
func (r *repository) ClaimImageJob(ctx context.Context) (*ImageJob, bool, error) {
	if err := r.expireImageClaims(ctx); err != nil {
		return nil, false, err
	}
	return claimNext(ctx, r.nextImageCandidate, r.claimImageItem)
}

// claimNext retries when another worker claims the candidate first, since
// a lost race says nothing about whether more work is queued.
func claimNext(
	ctx context.Context,
	next func(context.Context) (*ImageJob, bool, error),
	claim func(context.Context, uuid.UUID) (bool, error),
) (*ImageJob, bool, error) {
	for ctx.Err() == nil {
		j, found, err := next(ctx)
		if err != nil || !found {
			return nil, false, err
		}
		won, err := claim(ctx, j.ItemID)
		if err != nil {
			return nil, false, err
		}
		if won {
			return j, true, nil
		}
	}
	return nil, false, ctx.Err()
}

func (r *repository) expireImageClaims(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE order_items
		SET image_status = 'failed', image_error = 'claim lease expired'
		WHERE image_status = 'processing'
		  AND image_claimed_at < NOW() - make_interval(secs => $1)
	`, imageClaimLease.Seconds())
	if err != nil {
		return fmt.Errorf("order image queue expire claims: %w", err)
	}
	return nil
}

func (r *repository) nextImageCandidate(ctx context.Context) (*ImageJob, bool, error) {
	var j ImageJob
	err := r.db.GetContext(ctx, &j, `
		SELECT id, order_id, image_key
		FROM order_items
		WHERE image_status IN ('pending', 'failed')
		  AND image_key <> ''
		  AND image_attempts < $1
		ORDER BY created_at ASC
		LIMIT 1
	`, MaxImageAttempts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("order image queue select: %w", err)
	}
	return &j, true, nil
}

func (r *repository) claimImageItem(ctx context.Context, itemID uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE order_items
		SET image_status = 'processing',
		    image_attempts = image_attempts + 1,
		    image_error = NULL,
		    image_claimed_at = NOW()
		WHERE id = $1
		  AND image_status IN ('pending', 'failed')
		  AND image_attempts < $2
	`, itemID, MaxImageAttempts)
	if err != nil {
		return false, fmt.Errorf("order image queue claim: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("order image queue claim: %w", err)
	}
	return n == 1, nil
}

func (r *repository) MarkImageDone(ctx context.Context, itemID uuid.UUID, snapshotKey string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE order_items
		SET image_status = 'done', snapshot_image_key = $2, image_error = NULL
		WHERE id = $1
	`, itemID, snapshotKey)
	return err
}

// MarkImageFailed keeps the attempt counted by the claim.
func (r *repository) MarkImageFailed(ctx context.Context, itemID uuid.UUID, msg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE order_items
		SET image_status = 'failed', image_error = $2
		WHERE id = $1
	`, itemID, imageErrorText(msg))
	if err != nil {
		return fmt.Errorf("order image queue mark failed: %w", err)
	}
	return nil
}

// imageErrorText makes msg storable as TEXT: valid UTF-8, no NUL bytes, and
// at most maxImageErrorBytes long without splitting a rune.
func imageErrorText(msg string) string {
	msg = strings.ToValidUTF8(msg, "\uFFFD")
	msg = strings.ReplaceAll(msg, "\x00", "")
	if len(msg) <= maxImageErrorBytes {
		return msg
	}
	cut := maxImageErrorBytes
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
