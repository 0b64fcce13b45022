package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"childhood-friend/internal/pkg/jwtutil"
	"childhood-friend/internal/platform/logger"
)

func newTestAuthService(env *testEnv) *AuthService {
	return NewAuthService(env.users, env.persons, "secret", time.Hour, logger.Nop())
}

func TestRegisterThenLogin(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestAuthService(env)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{ID: "kim01", Name: "Kim", Password: "pw1234", Birth: "1990-05-10 13:00"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.PersonID == nil {
		t.Fatalf("person not linked")
	}
	if user.PasswordHash == "pw1234" {
		t.Fatalf("password stored in clear text")
	}

	res, err := svc.Login(ctx, LoginInput{ID: "kim01", Password: "pw1234"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims, err := jwtutil.ParseToken("secret", res.Token)
	if err != nil || claims.UserID != "kim01" {
		t.Fatalf("token: claims=%+v err=%v", claims, err)
	}

	birth, err := svc.GetBirth(ctx, "kim01")
	if err != nil || birth != "1990-05-10 13:00" {
		t.Fatalf("GetBirth: %q err=%v", birth, err)
	}
}

func TestLoginFailures(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestAuthService(env)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{ID: "kim01", Name: "Kim", Password: "pw1234"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := svc.Login(ctx, LoginInput{ID: "kim01", Password: "wrong"}); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("wrong password: got %v", err)
	}
	if _, err := svc.Login(ctx, LoginInput{ID: "ghost", Password: "pw1234"}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown id: got %v", err)
	}
	if _, err := svc.Login(ctx, LoginInput{ID: "", Password: "pw1234"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty id: got %v", err)
	}
	if _, err := svc.GetBirth(ctx, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("GetBirth unknown: got %v", err)
	}
}

func TestRegisterSharesPersonAndRejectsDuplicate(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestAuthService(env)
	ctx := context.Background()

	a, err := svc.Register(ctx, RegisterInput{ID: "a", Name: "Kim", Password: "x", Birth: "1990-05-10 13:00"})
	if err != nil {
		t.Fatalf("Register a: %v", err)
	}
	b, err := svc.Register(ctx, RegisterInput{ID: "b", Name: "Kim", Password: "y", Birth: "1990-05-10T08:00"})
	if err != nil {
		t.Fatalf("Register b: %v", err)
	}
	if *a.PersonID != *b.PersonID {
		t.Fatalf("same name and birth date should share a person: %d != %d", *a.PersonID, *b.PersonID)
	}

	if _, err := svc.Register(ctx, RegisterInput{ID: "a", Name: "Lee", Password: "z"}); !errors.Is(err, ErrUserExists) {
		t.Fatalf("duplicate id: got %v", err)
	}
}
