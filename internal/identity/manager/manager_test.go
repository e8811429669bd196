package manager

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"social-auth/backend/internal/identity/domain"
	"social-auth/backend/internal/identity/repository"
	"social-auth/backend/internal/security"
)

type memIdentityRepo struct {
	mu         sync.Mutex
	identities map[string]*domain.Identity
	roles      map[string]map[string]bool
	createErr  error
}

func newMemIdentityRepo() *memIdentityRepo {
	return &memIdentityRepo{identities: map[string]*domain.Identity{}, roles: map[string]map[string]bool{}}
}

func (r *memIdentityRepo) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.identities[id]
	if i == nil {
		return nil, nil
	}
	cp := *i
	return &cp, nil
}

func (r *memIdentityRepo) Create(ctx context.Context, i *domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.identities {
		if existing.ID == i.ID || existing.UserName == i.UserName {
			return repository.ErrDuplicateIdentity
		}
	}
	cp := *i
	r.identities[i.ID] = &cp
	return nil
}

func (r *memIdentityRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
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

func newTestManager() (*Manager, *memIdentityRepo) {
	repo := newMemIdentityRepo()
	return New(repo, security.NewHasher(4)), repo
}

func TestCreate_HashesPassword(t *testing.T) {
	m, repo := newTestManager()
	ctx := context.Background()
	i := &domain.Identity{ID: "id-1", UserName: "alice", Email: "alice@example.com"}

	res, err := m.Create(ctx, i, "Secret-Pass1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !res.Succeeded {
		t.Fatalf("Create result = %v", res)
	}
	stored := repo.identities["id-1"]
	if stored == nil {
		t.Fatal("identity not persisted")
	}
	if stored.PasswordHash == "" || stored.PasswordHash == "Secret-Pass1" {
		t.Errorf("PasswordHash = %q, want bcrypt hash", stored.PasswordHash)
	}
	if stored.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
	ok, err := m.CheckPassword(ctx, stored, "Secret-Pass1")
	if err != nil || !ok {
		t.Errorf("CheckPassword(correct) = %v, %v", ok, err)
	}
	ok, err = m.CheckPassword(ctx, stored, "Secret-Pass2")
	if err != nil || ok {
		t.Errorf("CheckPassword(wrong) = %v, %v", ok, err)
	}
}

func TestCreate_PasswordPolicy(t *testing.T) {
	testCases := []struct {
		password string
		want     []string
	}{
		{"short1A", []string{CodePasswordTooShort}},
		{"alllowercase1", []string{CodePasswordNoUpper}},
		{"ALLUPPERCASE1", []string{CodePasswordNoLower}},
		{"NoDigitsHere", []string{CodePasswordNoDigit}},
		{"", []string{CodePasswordTooShort, CodePasswordNoUpper, CodePasswordNoLower, CodePasswordNoDigit}},
	}
	for _, tc := range testCases {
		t.Run(tc.password, func(t *testing.T) {
			m, repo := newTestManager()
			res, err := m.Create(context.Background(), &domain.Identity{ID: "id-1", UserName: "alice"}, tc.password)
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if res.Succeeded {
				t.Fatal("Create should fail policy")
			}
			if len(res.Errors) != len(tc.want) {
				t.Fatalf("Errors = %v, want codes %v", res.Errors, tc.want)
			}
			for i, code := range tc.want {
				if res.Errors[i].Code != code {
					t.Errorf("Errors[%d].Code = %q, want %q", i, res.Errors[i].Code, code)
				}
			}
			if len(repo.identities) != 0 {
				t.Error("identity must not be persisted when policy fails")
			}
		})
	}
}

func TestCreate_DuplicateUserName(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()
	if res, _ := m.Create(ctx, &domain.Identity{ID: "id-1", UserName: "alice"}, "Secret-Pass1"); !res.Succeeded {
		t.Fatalf("first Create = %v", res)
	}
	res, err := m.Create(ctx, &domain.Identity{ID: "id-2", UserName: "alice"}, "Secret-Pass1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.Succeeded || len(res.Errors) != 1 || res.Errors[0].Code != CodeDuplicateUserName {
		t.Errorf("duplicate Create = %v, want DuplicateUserName", res)
	}
}

func TestCreate_StoreFailureIsError(t *testing.T) {
	m, repo := newTestManager()
	repo.createErr = errors.New("connection reset")
	_, err := m.Create(context.Background(), &domain.Identity{ID: "id-1", UserName: "alice"}, "Secret-Pass1")
	if err == nil {
		t.Fatal("Create should surface store failure as error")
	}
}

func TestRoles(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()
	i := &domain.Identity{ID: "id-1", UserName: "alice"}
	if res, _ := m.Create(ctx, i, "Secret-Pass1"); !res.Succeeded {
		t.Fatalf("Create = %v", res)
	}

	if res, err := m.AddToRole(ctx, i, domain.DefaultRole); err != nil || !res.Succeeded {
		t.Fatalf("AddToRole = %v, %v", res, err)
	}
	if res, _ := m.AddToRole(ctx, i, "superuser"); res.Succeeded || res.Errors[0].Code != CodeInvalidRoleName {
		t.Errorf("AddToRole(unknown) = %v, want InvalidRoleName", res)
	}
	if res, _ := m.AddToRole(ctx, &domain.Identity{ID: "ghost"}, domain.RoleUser); res.Succeeded || res.Errors[0].Code != CodeIdentityNotFound {
		t.Errorf("AddToRole(missing identity) = %v, want IdentityNotFound", res)
	}

	roles, err := m.GetRoles(ctx, i)
	if err != nil {
		t.Fatalf("GetRoles: %v", err)
	}
	if len(roles) != 1 || roles[0] != domain.RoleUser {
		t.Errorf("GetRoles = %v, want [user]", roles)
	}

	if res, err := m.RemoveFromRoles(ctx, i, roles); err != nil || !res.Succeeded {
		t.Fatalf("RemoveFromRoles = %v, %v", res, err)
	}
	if res, _ := m.RemoveFromRoles(ctx, i, []string{domain.RoleAdmin}); res.Succeeded || res.Errors[0].Code != CodeUserNotInRole {
		t.Errorf("RemoveFromRoles(not held) = %v, want UserNotInRole", res)
	}
	if res, _ := m.RemoveFromRoles(ctx, i, nil); !res.Succeeded {
		t.Errorf("RemoveFromRoles(empty) = %v, want success", res)
	}
}

func TestCheckPassword_NoHash(t *testing.T) {
	m, _ := newTestManager()
	ok, err := m.CheckPassword(context.Background(), &domain.Identity{ID: "x"}, "Secret-Pass1")
	if err != nil || ok {
		t.Errorf("CheckPassword without hash = %v, %v; want false, nil", ok, err)
	}
	ok, err = m.CheckPassword(context.Background(), nil, "Secret-Pass1")
	if err != nil || ok {
		t.Errorf("CheckPassword(nil) = %v, %v; want false, nil", ok, err)
	}
}

func TestMerge(t *testing.T) {
	a := Failed(IdentityError{Code: "A"})
	b := Failed(IdentityError{Code: "B"})
	if got := Merge(Success, Success); !got.Succeeded || len(got.Errors) != 0 {
		t.Errorf("Merge(success, success) = %v", got)
	}
	got := Merge(Success, a, b)
	if got.Succeeded || len(got.Errors) != 2 {
		t.Errorf("Merge = %v, want failure with 2 errors", got)
	}
	if got.String() != "Failed: A,B" {
		t.Errorf("String = %q", got.String())
	}
}
