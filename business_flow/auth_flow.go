package businessflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/academy-ledger/app/dto"
	"github.com/amirphl/academy-ledger/app/services"
	"github.com/amirphl/academy-ledger/models"
	"github.com/amirphl/academy-ledger/repository"
	"github.com/amirphl/academy-ledger/utils"
	"golang.org/x/crypto/bcrypt"
)

// AuthFlow handles sign-in, token refresh and sign-out
type AuthFlow interface {
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.AuthTokensResponse, error)
	Refresh(ctx context.Context, req *dto.RefreshTokenRequest, metadata *ClientMetadata) (*dto.AuthTokensResponse, error)
	Logout(ctx context.Context, req *dto.LogoutRequest, metadata *ClientMetadata) (*dto.LogoutResponse, error)
}

// AuthFlowImpl implements the authentication business flow
type AuthFlowImpl struct {
	userRepo       repository.UserRepository
	sellerRepo     repository.SellerProfileRepository
	auditRepo      repository.AuditLogRepository
	tokenService   services.TokenService
	accessTokenTTL time.Duration
}

// NewAuthFlow creates a new authentication flow instance
func NewAuthFlow(
	userRepo repository.UserRepository,
	sellerRepo repository.SellerProfileRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	accessTokenTTL time.Duration,
) AuthFlow {
	return &AuthFlowImpl{
		userRepo:       userRepo,
		sellerRepo:     sellerRepo,
		auditRepo:      auditRepo,
		tokenService:   tokenService,
		accessTokenTTL: accessTokenTTL,
	}
}

// Login authenticates a user with email and password
func (af *AuthFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.AuthTokensResponse, error) {
	user, err := af.authenticate(ctx, req)
	if err != nil {
		errMsg := fmt.Sprintf("Login failed for %s: %s", utils.NormalizeEmail(req.Email), err.Error())
		var userID *uint
		if user != nil {
			userID = &user.ID
		}
		_ = createAuditLog(ctx, af.auditRepo, userID, models.AuditActionLoginFailed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	resp, err := af.issueTokens(ctx, user, "Login successful")
	if err != nil {
		errMsg := fmt.Sprintf("Token generation failed for user %d: %s", user.ID, err.Error())
		_ = createAuditLog(ctx, af.auditRepo, &user.ID, models.AuditActionLoginFailed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate authentication tokens", err)
	}

	if err := af.userRepo.UpdateLastLogin(ctx, user.ID, utils.UTCNow()); err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Failed to update last login", err)
	}

	msg := fmt.Sprintf("User %d logged in as %s", user.ID, user.Role)
	_ = createAuditLog(ctx, af.auditRepo, &user.ID, models.AuditActionLoginSuccessful, msg, true, nil, metadata)

	return resp, nil
}

// authenticate returns the user even on a password mismatch so the failure can be attributed
func (af *AuthFlowImpl) authenticate(ctx context.Context, req *dto.LoginRequest) (*models.User, error) {
	user, err := af.userRepo.ByEmail(ctx, utils.NormalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrIncorrectPassword
	}
	if !utils.IsTrue(user.IsActive) {
		return user, ErrAccountInactive
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return user, ErrIncorrectPassword
	}
	return user, nil
}

// Refresh exchanges a refresh token for a new pair; the used refresh token is revoked
func (af *AuthFlowImpl) Refresh(ctx context.Context, req *dto.RefreshTokenRequest, metadata *ClientMetadata) (*dto.AuthTokensResponse, error) {
	claims, err := af.tokenService.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, NewBusinessError("REFRESH_TOKEN_FAILED", "Failed to refresh token", errors.Join(ErrInvalidToken, err))
	}

	user, err := af.userRepo.ByID(ctx, claims.UserID)
	if err != nil {
		return nil, NewBusinessError("REFRESH_TOKEN_FAILED", "Failed to refresh token", err)
	}
	if user == nil {
		return nil, NewBusinessError("REFRESH_TOKEN_FAILED", "Failed to refresh token", ErrInvalidToken)
	}
	if !utils.IsTrue(user.IsActive) {
		return nil, NewBusinessError("REFRESH_TOKEN_FAILED", "Failed to refresh token", ErrAccountInactive)
	}

	resp, err := af.issueTokens(ctx, user, "Token refreshed successfully")
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate authentication tokens", err)
	}
	return resp, nil
}

// Logout revokes the access token and, when given, the refresh token
func (af *AuthFlowImpl) Logout(ctx context.Context, req *dto.LogoutRequest, metadata *ClientMetadata) (*dto.LogoutResponse, error) {
	if err := af.tokenService.RevokeToken(ctx, req.AccessToken); err != nil {
		return nil, NewBusinessError("LOGOUT_FAILED", "Failed to revoke token", errors.Join(ErrInvalidToken, err))
	}
	if req.RefreshToken != "" {
		if err := af.tokenService.RevokeToken(ctx, req.RefreshToken); err != nil {
			return nil, NewBusinessError("LOGOUT_FAILED", "Failed to revoke refresh token", errors.Join(ErrInvalidToken, err))
		}
	}

	_ = createAuditLog(ctx, af.auditRepo, metadata.actorID(), models.AuditActionLogout, "User logged out", true, nil, metadata)

	return &dto.LogoutResponse{Message: "Logged out successfully"}, nil
}

func (af *AuthFlowImpl) issueTokens(ctx context.Context, user *models.User, message string) (*dto.AuthTokensResponse, error) {
	accessToken, refreshToken, err := af.tokenService.GenerateTokens(user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	var sellerID *uint
	if user.Role == models.UserRoleSeller {
		profile, err := af.sellerRepo.ByUserID(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if profile != nil {
			sellerID = &profile.ID
		}
	}

	return &dto.AuthTokensResponse{
		Message:      message,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(af.accessTokenTTL.Seconds()),
		ExpiresAt:    utils.UTCNowAdd(af.accessTokenTTL),
		User:         ToUserInfo(*user, sellerID),
	}, nil
}
