package inmemory

import (
	"context"
	"slices"
	"time"

	"todoTracker/internal/models/idempotency"
	repo "todoTracker/internal/repository"
)

type idempotencyRepo struct {
	uow *unitOfWork
}

func (r *idempotencyRepo) Lookup(ctx context.Context, userID int64, key string, now time.Time) (*idempotency.Record, error) {
	rec, ok := r.uow.st.idem[idemKey{userID: userID, key: key}]
	if !ok || rec.Expired(now) {
		return nil, repo.ErrNotFound
	}
	return copyRecord(rec), nil
}

func (r *idempotencyRepo) PurgeExpired(ctx context.Context, userID int64, now time.Time) (int64, error) {
	var n int64
	for k, rec := range r.uow.st.idem {
		if k.userID == userID && rec.Expired(now) {
			delete(r.uow.st.idem, k)
			n++
		}
	}
	return n, nil
}

func (r *idempotencyRepo) Insert(ctx context.Context, rec *idempotency.Record) (*idempotency.Record, error) {
	st := r.uow.st
	k := idemKey{userID: rec.UserID, key: rec.Key}
	if existing, ok := st.idem[k]; ok && !existing.Expired(r.uow.now()) {
		return copyRecord(existing), nil
	}

	st.idemSeq++
	stored := copyRecord(rec)
	stored.ID = st.idemSeq
	stored.CreatedAt = r.uow.now()
	st.idem[k] = stored
	return copyRecord(stored), nil
}

func (r *idempotencyRepo) DeleteExpired(ctx context.Context, now time.Time, limit int) (int64, error) {
	var n int64
	for k, rec := range r.uow.st.idem {
		if limit > 0 && n >= int64(limit) {
			break
		}
		if rec.Expired(now) {
			delete(r.uow.st.idem, k)
			n++
		}
	}
	return n, nil
}

func copyRecord(rec *idempotency.Record) *idempotency.Record {
	cp := *rec
	cp.ResponseBody = slices.Clone(rec.ResponseBody)
	return &cp
}
