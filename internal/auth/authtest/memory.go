// Package authtest provides an in-memory credential store for tests.
package authtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/airportops/assetapi/internal/auth"
	"github.com/airportops/assetapi/internal/platform/httpx"
	"github.com/airportops/assetapi/internal/rbac"
)

// Repository is a goroutine-safe auth.Repository backed by a map.
type Repository struct {
	mu         sync.Mutex
	nextID     int64
	principals map[int64]auth.Principal
	lookups    int
	// Err, when set, is returned by every method.
	Err error
}

// NewRepository returns an empty store.
func NewRepository() *Repository {
	return &Repository{nextID: 1, principals: make(map[int64]auth.Principal)}
}

// Lookups reports how many FindByUsername calls were made.
func (r *Repository) Lookups() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookups
}

// Put stores p as-is, assigning an id when p.ID is zero.
func (r *Repository) Put(p auth.Principal) auth.Principal {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == 0 {
		p.ID = r.nextID
	}
	if p.ID >= r.nextID {
		r.nextID = p.ID + 1
	}
	r.principals[p.ID] = p
	return p
}

func (r *Repository) FindByUsername(_ context.Context, username string) (auth.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	if r.Err != nil {
		return auth.Principal{}, r.Err
	}
	for _, p := range r.principals {
		if p.Username == username {
			return p, nil
		}
	}
	return auth.Principal{}, httpx.ErrNotFound
}

func (r *Repository) FindByID(_ context.Context, id int64) (auth.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return auth.Principal{}, r.Err
	}
	p, ok := r.principals[id]
	if !ok {
		return auth.Principal{}, httpx.ErrNotFound
	}
	return p, nil
}

func (r *Repository) Create(_ context.Context, in auth.NewPrincipal) (auth.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return auth.Principal{}, r.Err
	}
	for _, p := range r.principals {
		if p.Username == in.Username {
			return auth.Principal{}, fmt.Errorf("username %q already registered: %w", in.Username, httpx.ErrDuplicate)
		}
	}
	now := time.Now().UTC()
	p := auth.Principal{
		ID:           r.nextID,
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
		IsActive:     in.IsActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.nextID++
	r.principals[p.ID] = p
	return p, nil
}

func (r *Repository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.principals[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(r.principals, id)
	return nil
}

func (r *Repository) List(_ context.Context) ([]auth.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	out := make([]auth.Principal, 0, len(r.principals))
	for _, p := range r.principals {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Repository) CountByRole(_ context.Context, role rbac.Role) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return 0, r.Err
	}
	n := 0
	for _, p := range r.principals {
		if p.Role == role {
			n++
		}
	}
	return n, nil
}

func (r *Repository) RecordLogin(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	p, ok := r.principals[id]
	if !ok {
		return httpx.ErrNotFound
	}
	p.LastLoginAt = &at
	r.principals[id] = p
	return nil
}

var _ auth.Repository = (*Repository)(nil)
