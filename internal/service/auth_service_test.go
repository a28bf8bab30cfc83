package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/brainwavehq/academy-backend/internal/config"
	"github.com/brainwavehq/academy-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthService(t *testing.T) (*AuthService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := &config.Config{
		JWTSecret:  "test-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: bcrypt.MinCost,
	}
	return NewAuthService(cfg, rdb), mr
}

func TestCheckPassword(t *testing.T) {
	svc, _ := newTestAuthService(t)

	hash, err := svc.HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	if err := svc.CheckPassword(hash, "s3cret"); err != nil {
		t.Errorf("correct password rejected: %v", err)
	}
	if err := svc.CheckPassword(hash, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v, want ErrInvalidCredentials", err)
	}
}

func TestStudentTokenRoundTrip(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	token, err := svc.GenerateStudentToken(ctx, 42, model.GradeLevel11)
	if err != nil {
		t.Fatalf("GenerateStudentToken: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.TokenType != TokenTypeStudent {
		t.Errorf("token type = %q, want %q", claims.TokenType, TokenTypeStudent)
	}
	if claims.UserID != 42 {
		t.Errorf("user ID = %d, want 42", claims.UserID)
	}
	if claims.GradeLevel != model.GradeLevel11 {
		t.Errorf("grade level = %q, want %q", claims.GradeLevel, model.GradeLevel11)
	}

	if err := svc.ValidateStudentSession(ctx, 42, claims.ID); err != nil {
		t.Errorf("ValidateStudentSession with fresh JTI: %v", err)
	}
	if err := svc.ValidateStudentSession(ctx, 42, "some-other-jti"); err == nil {
		t.Error("stale JTI accepted")
	}
}

func TestSingleDeviceLogin(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.GenerateStudentToken(ctx, 7, model.GradeLevel9); err != nil {
		t.Fatalf("first login: %v", err)
	}

	// Second login from another device is rejected while the session lives.
	if _, err := svc.GenerateStudentToken(ctx, 7, model.GradeLevel9); !errors.Is(err, ErrSessionAlreadyActive) {
		t.Fatalf("second login: got %v, want ErrSessionAlreadyActive", err)
	}

	// A different student is unaffected.
	if _, err := svc.GenerateStudentToken(ctx, 8, model.GradeLevel9); err != nil {
		t.Errorf("other student login: %v", err)
	}

	// Reset frees the slot.
	if err := svc.ResetStudentSession(ctx, 7); err != nil {
		t.Fatalf("ResetStudentSession: %v", err)
	}
	if _, err := svc.GenerateStudentToken(ctx, 7, model.GradeLevel9); err != nil {
		t.Errorf("login after reset: %v", err)
	}
}

func TestSessionExpiry(t *testing.T) {
	svc, mr := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.GenerateStudentToken(ctx, 5, model.GradeLevel12); err != nil {
		t.Fatalf("login: %v", err)
	}

	// Once the Redis session TTL elapses the slot frees itself.
	mr.FastForward(2 * time.Hour)

	if _, err := svc.GenerateStudentToken(ctx, 5, model.GradeLevel12); err != nil {
		t.Errorf("login after expiry: %v", err)
	}
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	svc, _ := newTestAuthService(t)

	token, err := svc.GenerateTeacherToken(3)
	if err != nil {
		t.Fatalf("GenerateTeacherToken: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.TokenType != TokenTypeTeacher {
		t.Errorf("token type = %q, want %q", claims.TokenType, TokenTypeTeacher)
	}

	if _, err := svc.ValidateToken(token + "x"); err == nil {
		t.Error("tampered token accepted")
	}
	if _, err := svc.ValidateToken("not-a-token"); err == nil {
		t.Error("garbage token accepted")
	}
}
