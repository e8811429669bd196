package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	identitydomain "social-auth/backend/internal/identity/domain"
	identityrepo "social-auth/backend/internal/identity/repository"
	sessiondomain "social-auth/backend/internal/session/domain"
	sessionrepo "social-auth/backend/internal/session/repository"
	userdomain "social-auth/backend/internal/user/domain"
	userrepo "social-auth/backend/internal/user/repository"
)

type memUserRepo struct {
	mu     sync.Mutex
	users  map[string]*userdomain.User
	addErr error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]*userdomain.User{}}
}

func (r *memUserRepo) GetByUsername(ctx context.Context, username string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) Exists(ctx context.Context, username, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Username, username) || strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memUserRepo) Add(ctx context.Context, u *userdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.addErr != nil {
		return r.addErr
	}
	for _, existing := range r.users {
		if strings.EqualFold(existing.Username, u.Username) || strings.EqualFold(existing.Email, u.Email) {
			return userrepo.ErrDuplicateUser
		}
	}
	r.users[u.ID] = u
	return nil
}

func (r *memUserRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

func (r *memUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

type memIdentityRepo struct {
	mu         sync.Mutex
	identities map[string]*identitydomain.Identity
	roles      map[string]map[string]bool
	deleteErr  error
}

func newMemIdentityRepo() *memIdentityRepo {
	return &memIdentityRepo{identities: map[string]*identitydomain.Identity{}, roles: map[string]map[string]bool{}}
}

func (r *memIdentityRepo) GetByID(ctx context.Context, id string) (*identitydomain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.identities[id]
	if i == nil {
		return nil, nil
	}
	cp := *i
	return &cp, nil
}

func (r *memIdentityRepo) Create(ctx context.Context, i *identitydomain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.identities {
		if existing.ID == i.ID || strings.EqualFold(existing.UserName, i.UserName) {
			return identityrepo.ErrDuplicateIdentity
		}
	}
	cp := *i
	r.identities[i.ID] = &cp
	return nil
}

func (r *memIdentityRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.identities, id)
	delete(r.roles, id)
	return nil
}

func (r *memIdentityRepo) GetRoles(ctx context.Context, id string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []string{}
	for role := range r.roles[id] {
		out = append(out, role)
	}
	sort.Strings(out)
	return out, nil
}

func (r *memIdentityRepo) AddRole(ctx context.Context, id, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.roles[id] == nil {
		r.roles[id] = map[string]bool{}
	}
	r.roles[id][role] = true
	return nil
}

func (r *memIdentityRepo) RemoveRoles(ctx context.Context, id string, roles []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, role := range roles {
		if r.roles[id][role] {
			delete(r.roles[id], role)
			n++
		}
	}
	return n, nil
}

func (r *memIdentityRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.identities)
}

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*sessiondomain.Session
	addErr   error
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: map[string]*sessiondomain.Session{}}
}

func cloneSession(s *sessiondomain.Session) *sessiondomain.Session {
	return sessiondomain.Restore(s.ID(), s.UserID(), s.JtiHash(), s.RefreshTokenHash(), s.IsLongSession(),
		s.ExpiresAt(), s.MaxExpiry(), s.LastSeenAt(), s.CreatedAt())
}

func (r *memSessionRepo) GetByID(ctx context.Context, id string) (*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[id]
	if s == nil {
		return nil, nil
	}
	return cloneSession(s), nil
}

func (r *memSessionRepo) Add(ctx context.Context, s *sessiondomain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.addErr != nil {
		return r.addErr
	}
	if _, ok := r.sessions[s.ID()]; ok {
		return errors.New("duplicate session")
	}
	r.sessions[s.ID()] = cloneSession(s)
	return nil
}

func (r *memSessionRepo) Update(ctx context.Context, s *sessiondomain.Session, expectedRefreshTokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.sessions[s.ID()]
	if cur == nil || cur.RefreshTokenHash() != expectedRefreshTokenHash {
		return sessionrepo.ErrStaleSession
	}
	r.sessions[s.ID()] = cloneSession(s)
	return nil
}

func (r *memSessionRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *memSessionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *memSessionRepo) has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id] != nil
}
