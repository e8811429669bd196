// seed inserts development accounts for local testing. Run with go run ./cmd/seed.
// Idempotent: an account whose username already exists is skipped.
package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"social-auth/backend/internal/config"
	"social-auth/backend/internal/db"
	identitydomain "social-auth/backend/internal/identity/domain"
	"social-auth/backend/internal/identity/manager"
	identityrepo "social-auth/backend/internal/identity/repository"
	identityservice "social-auth/backend/internal/identity/service"
	"social-auth/backend/internal/platform/saga"
	"social-auth/backend/internal/security"
	userdomain "social-auth/backend/internal/user/domain"
	userrepo "social-auth/backend/internal/user/repository"
)

const devPassword = "Password123"

type devAccount struct {
	username  string
	email     string
	firstName string
	lastName  string
	admin     bool
}

var devAccounts = []devAccount{
	{username: "dev.admin", email: "dev@example.com", firstName: "Dev", lastName: "Admin", admin: true},
	{username: "member", email: "member@example.com", firstName: "Member", lastName: "User"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	users := userrepo.NewPostgresRepository(conn)
	identities := manager.New(identityrepo.NewPostgresRepository(conn), security.NewHasher(cfg.BcryptCost))
	// Seeding creates identities only; no sessions or tokens are involved.
	identitySvc := identityservice.NewIdentityService(identities, nil, security.SHA256Hasher{}, nil)

	ctx := context.Background()
	for _, a := range devAccounts {
		if err := seedAccount(ctx, users, identities, identitySvc, a); err != nil {
			log.Fatalf("seed %s: %v", a.username, err)
		}
	}
	log.Printf("Seed complete. Password for every account: %s", devPassword)
}

func seedAccount(ctx context.Context, users userrepo.Repository, identities *manager.Manager, identitySvc *identityservice.IdentityService, a devAccount) error {
	existing, err := users.GetByUsername(ctx, a.username)
	if err != nil {
		return err
	}
	if existing != nil {
		log.Printf("%s already exists. Skipping.", a.username)
		return nil
	}

	now := time.Now().UTC()
	user, err := userdomain.NewUser(uuid.NewString(), a.username, a.email, a.firstName, a.lastName, now.AddDate(-30, 0, 0), now)
	if err != nil {
		return err
	}

	sg := saga.New("seed: " + a.username)
	created, err := identitySvc.CreateIdentityUserFromAppUser(ctx, user, devPassword)
	if err != nil {
		return err
	}
	if !created.Succeeded {
		return &identityservice.IdentityOperationError{Op: "create", UserID: user.ID, Errors: created.Errors}
	}
	sg.Add("delete identity", func(ctx context.Context) error {
		return identitySvc.DeleteIdentityUser(ctx, user)
	})

	if err := users.Add(ctx, user); err != nil {
		if cerr := sg.Compensate(ctx); cerr != nil {
			return cerr
		}
		return err
	}
	sg.Add("delete user", func(ctx context.Context) error {
		return users.Delete(ctx, user.ID)
	})

	if a.admin {
		identity, err := identities.FindByID(ctx, user.ID)
		if err == nil && identity == nil {
			err = &identityservice.IdentityOperationError{Op: "find", UserID: user.ID}
		}
		if err == nil {
			var res manager.IdentityResult
			res, err = identities.AddToRole(ctx, identity, identitydomain.RoleAdmin)
			if err == nil && !res.Succeeded {
				err = &identityservice.IdentityOperationError{Op: "add admin role", UserID: user.ID, Errors: res.Errors}
			}
		}
		if err != nil {
			if cerr := sg.Compensate(ctx); cerr != nil {
				return cerr
			}
			return err
		}
	}
	log.Printf("created %s (%s)", a.username, user.ID)
	return nil
}
