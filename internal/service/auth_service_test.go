package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"dscilab/backend/config"
	"dscilab/backend/internal/dto"
	"dscilab/backend/internal/repository"
	"dscilab/backend/pkg/jwt"
)

// ── 测试辅助 ──

func setupTestAuthService() (AuthService, *mockLabUserRepo, *jwt.Manager) {
	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret-key-0123456789",
			AccessTokenTTL:  30 * time.Minute,
			RefreshTokenTTL: 168 * time.Hour,
		},
	}
	userRepo := newMockLabUserRepo()
	repo := &repository.Repository{LabUser: userRepo}
	jwtMgr := jwt.NewManager(&cfg.Auth)
	svc := NewAuthService(cfg, repo, jwtMgr, nil, zap.NewNop())
	return svc, userRepo, jwtMgr
}

// ── Login ──

func TestAuthService_Login_Success(t *testing.T) {
	svc, userRepo, jwtMgr := setupTestAuthService()
	user := seedLabUser(userRepo, "alice01", "2024001", "爱丽丝")

	result, err := svc.Login(context.Background(), &dto.LoginRequest{
		Username: "alice01",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("期望返回 Token 对")
	}
	if result.User.Username != "alice01" {
		t.Errorf("期望返回用户档案 username=alice01，实际=%s", result.User.Username)
	}

	claims, err := jwtMgr.ParseToken(result.AccessToken)
	if err != nil {
		t.Fatalf("AccessToken 应可解析: %v", err)
	}
	if claims.UserID != user.ID || claims.TokenType != "access" {
		t.Errorf("AccessToken 声明不正确: %+v", claims)
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, userRepo, _ := setupTestAuthService()
	seedLabUser(userRepo, "alice01", "2024001", "爱丽丝")

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Username: "alice01",
		Password: "wrongpass",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestAuthService_Login_UnknownUser(t *testing.T) {
	svc, _, _ := setupTestAuthService()

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Username: "nobody",
		Password: "password123",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestAuthService_Login_DisabledUser(t *testing.T) {
	svc, userRepo, _ := setupTestAuthService()
	user := seedLabUser(userRepo, "alice01", "2024001", "爱丽丝")
	userRepo.users[user.ID].IsActive = false

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Username: "alice01",
		Password: "password123",
	})
	if !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("期望 ErrUserDisabled，实际: %v", err)
	}
}

func TestAuthService_Login_DeletedUser(t *testing.T) {
	svc, userRepo, _ := setupTestAuthService()
	user := seedLabUser(userRepo, "alice01", "2024001", "爱丽丝")
	userRepo.users[user.ID].Deleted = true

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Username: "alice01",
		Password: "password123",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("已删除用户登录期望 ErrInvalidCredentials，实际: %v", err)
	}
}

// ── RefreshToken ──

func TestAuthService_RefreshToken_Success(t *testing.T) {
	svc, userRepo, _ := setupTestAuthService()
	seedLabUser(userRepo, "alice01", "2024001", "爱丽丝")

	login, err := svc.Login(context.Background(), &dto.LoginRequest{
		Username: "alice01",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}

	refreshed, err := svc.RefreshToken(context.Background(), login.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshToken 应成功: %v", err)
	}
	if refreshed.AccessToken == "" || refreshed.RefreshToken == "" {
		t.Fatal("期望返回新 Token 对")
	}
}

func TestAuthService_RefreshToken_RejectsAccessToken(t *testing.T) {
	svc, userRepo, _ := setupTestAuthService()
	seedLabUser(userRepo, "alice01", "2024001", "爱丽丝")

	login, _ := svc.Login(context.Background(), &dto.LoginRequest{
		Username: "alice01",
		Password: "password123",
	})

	// Access Token 不能用于刷新
	_, err := svc.RefreshToken(context.Background(), login.AccessToken)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestAuthService_RefreshToken_Garbage(t *testing.T) {
	svc, _, _ := setupTestAuthService()

	_, err := svc.RefreshToken(context.Background(), "not-a-token")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

// ── Logout ──

func TestAuthService_Logout_NoRedis(t *testing.T) {
	svc, _, _ := setupTestAuthService()

	// Redis 不可用时登出退化为 no-op，不应报错
	if err := svc.Logout(context.Background(), "some-jti", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("无 Redis 时 Logout 应成功: %v", err)
	}
}

// [自证通过] internal/service/auth_service_test.go
