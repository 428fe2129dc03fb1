package actor

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	apikeydomain "github.com/veritext/veritext/internal/apikey/domain"
	apikeyrepository "github.com/veritext/veritext/internal/apikey/repository"
	apikeyservice "github.com/veritext/veritext/internal/apikey/service"
	authdomain "github.com/veritext/veritext/internal/auth/domain"
	authrepository "github.com/veritext/veritext/internal/auth/repository"
	"github.com/veritext/veritext/internal/auth/token"
	"github.com/veritext/veritext/internal/authorization"
	"github.com/veritext/veritext/internal/clock"
	"github.com/veritext/veritext/internal/config"
	"github.com/veritext/veritext/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	resolver *Resolver
	keys     apikeydomain.Service
	codec    *token.Codec
	db       *gorm.DB
	node     *snowflake.Node
	clk      *clock.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&authdomain.User{}, &authdomain.Profile{}, &apikeydomain.APIKey{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	codec := token.New(token.Params{
		Config: config.Config{
			AuthJWTSecret:  "test-secret",
			AccessTokenTTL: 30 * time.Minute,
			GuestTokenTTL:  24 * time.Hour,
		},
		Clock: clk,
	})

	users := authrepository.New(dbConn)
	keys := apikeyservice.New(apikeyservice.Params{
		DB:       dbConn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     apikeyrepository.Provide(),
		AuthRepo: users,
	})

	resolver := NewResolver(Params{
		Log:   zap.NewNop(),
		Keys:  keys,
		Codec: codec,
		Users: users,
	})

	return &fixture{resolver: resolver, keys: keys, codec: codec, db: dbConn, node: node, clk: clk}
}

func (f *fixture) createUser(t *testing.T, role string) *authdomain.User {
	t.Helper()
	id := f.node.Generate()
	user := &authdomain.User{
		ID:           id,
		Email:        "u" + id.String() + "@example.com",
		Name:         "u" + id.String(),
		PasswordHash: "x",
		Role:         role,
		IsActive:     true,
		CreatedAt:    f.clk.Now(),
		UpdatedAt:    f.clk.Now(),
	}
	if err := f.db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func (f *fixture) userToken(t *testing.T, user *authdomain.User) string {
	t.Helper()
	raw, _, err := f.codec.IssueUser(user.ID.String())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return raw
}

func TestResolveBearerUser(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "team_admin")

	actor, err := f.resolver.Resolve(context.Background(), "", "Bearer "+f.userToken(t, user))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if actor.Kind != KindUser || actor.Role != authorization.RoleTeamAdmin {
		t.Fatalf("actor = %+v", actor)
	}
	if actor.UserID() != user.ID {
		t.Fatalf("user id = %v", actor.UserID())
	}
}

func TestResolveBearerGuest(t *testing.T) {
	f := newFixture(t)

	raw, _, err := f.codec.IssueGuest("guest-abc")
	if err != nil {
		t.Fatalf("issue guest token: %v", err)
	}

	actor, err := f.resolver.Resolve(context.Background(), "", "Bearer "+raw)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !actor.IsGuest() || actor.ID != "guest-abc" || actor.Role != authorization.RoleVisitor {
		t.Fatalf("actor = %+v", actor)
	}
}

func TestResolveNoCredential(t *testing.T) {
	f := newFixture(t)

	for _, header := range []string{"", "Basic abc", "Bearer "} {
		if _, err := f.resolver.Resolve(context.Background(), "", header); err != ErrCredentialRequired {
			t.Fatalf("Resolve(authorization=%q) = %v, want ErrCredentialRequired", header, err)
		}
	}
}

func TestResolveExpiredBearer(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "individual")
	raw := f.userToken(t, user)

	f.clk.Advance(31 * time.Minute)

	if _, err := f.resolver.Resolve(context.Background(), "", "Bearer "+raw); err != token.ErrExpiredCredential {
		t.Fatalf("err = %v, want ErrExpiredCredential", err)
	}
}

func TestResolveAPIKey(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "individual")

	secret, err := f.keys.Create(context.Background(), user.ID, apikeydomain.CreateRequest{Name: "ci"})
	if err != nil {
		t.Fatalf("create key: %v", err)
	}

	actor, err := f.resolver.Resolve(context.Background(), secret.APIKey, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if actor.Kind != KindUser || actor.UserID() != user.ID {
		t.Fatalf("actor = %+v", actor)
	}
	if actor.APIKeyID == 0 {
		t.Fatal("expected APIKeyID to be set")
	}
}

func TestInvalidAPIKeyDoesNotFallBackToBearer(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "individual")
	bearer := "Bearer " + f.userToken(t, user)

	_, err := f.resolver.Resolve(context.Background(), "vt_live_bogus", bearer)
	if err != ErrInvalidAPIKey {
		t.Fatalf("err = %v, want ErrInvalidAPIKey", err)
	}
}

func TestResolveDisabledAccount(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "individual")
	raw := f.userToken(t, user)

	if err := f.db.Model(&authdomain.User{}).Where("id = ?", user.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("disable user: %v", err)
	}

	if _, err := f.resolver.Resolve(context.Background(), "", "Bearer "+raw); err != ErrAccountDisabled {
		t.Fatalf("err = %v, want ErrAccountDisabled", err)
	}
}

func TestResolveUnknownStoredRoleFailsClosed(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "superuser")
	raw := f.userToken(t, user)

	if _, err := f.resolver.Resolve(context.Background(), "", "Bearer "+raw); err != ErrInvalidCredentials {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}
