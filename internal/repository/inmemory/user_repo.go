package inmemory

import (
	"context"
	"time"

	"todoTracker/internal/models/user"
	repo "todoTracker/internal/repository"
)

type userRepo struct {
	uow *unitOfWork
}

func (r *userRepo) Create(ctx context.Context, u *user.User) (*user.User, error) {
	st := r.uow.st
	for _, existing := range st.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return nil, repo.ErrDuplicate
		}
	}
	now := r.uow.now()
	st.userSeq++
	stored := *u
	stored.ID = st.userSeq
	stored.CreatedAt = now
	stored.UpdatedAt = now
	st.users[stored.ID] = &stored
	cp := stored
	return &cp, nil
}

func (r *userRepo) find(match func(u *user.User) bool) (*user.User, error) {
	for _, u := range r.uow.st.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return r.find(func(u *user.User) bool { return u.ID == id })
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.find(func(u *user.User) bool { return u.Email == email })
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.find(func(u *user.User) bool { return u.Username == username })
}

type tokenRepo struct {
	uow *unitOfWork
}

func (r *tokenRepo) Create(ctx context.Context, t *user.RefreshToken) (*user.RefreshToken, error) {
	st := r.uow.st
	for _, existing := range st.tokens {
		if existing.TokenHash == t.TokenHash {
			return nil, repo.ErrDuplicate
		}
	}
	st.tokenSeq++
	stored := *t
	stored.ID = st.tokenSeq
	stored.CreatedAt = r.uow.now()
	st.tokens[stored.ID] = &stored
	cp := stored
	return &cp, nil
}

func (r *tokenRepo) GetByHash(ctx context.Context, hash string) (*user.RefreshToken, error) {
	for _, t := range r.uow.st.tokens {
		if t.TokenHash == hash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *tokenRepo) Revoke(ctx context.Context, id int64, at time.Time) error {
	t, ok := r.uow.st.tokens[id]
	if !ok {
		return repo.ErrNotFound
	}
	if t.RevokedAt != nil {
		return nil
	}
	cp := *t
	cp.RevokedAt = &at
	r.uow.st.tokens[id] = &cp
	return nil
}

func (r *tokenRepo) RevokeAllForUser(ctx context.Context, userID int64, at time.Time) error {
	for id, t := range r.uow.st.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			cp := *t
			cp.RevokedAt = &at
			r.uow.st.tokens[id] = &cp
		}
	}
	return nil
}
