package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/config"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/middleware"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/model"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/repository"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/utils"
)

// StaffUsers looks up staff accounts.
type StaffUsers interface {
	GetByEmail(ctx context.Context, email string) (model.StaffUser, error)
	GetByID(ctx context.Context, id uint64) (model.StaffUser, error)
}

// RefreshTokens stores hashed refresh tokens.
type RefreshTokens interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string, now time.Time) error
	RevokeAllForUser(ctx context.Context, userID uint64, now time.Time) error
}

// AuthHandler bundles dependencies for staff auth endpoints.
type AuthHandler struct {
	Cfg    config.AuthConfig
	Users  StaffUsers
	Tokens RefreshTokens
	Log    *zap.Logger

	now func() time.Time
}

func NewAuthHandler(cfg config.AuthConfig, u StaffUsers, t RefreshTokens, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Log: log, now: time.Now}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return apiError(c, http.StatusUnprocessableEntity, "validation_error", "email/password required")
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return invalidCredentials(c)
	}
	if err != nil {
		return h.fail(c, "load user", err)
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return invalidCredentials(c)
	}

	resp, err := h.issue(ctx, u)
	if err != nil {
		return h.fail(c, "issue tokens", err)
	}
	h.Log.Info("staff login", zap.Uint64("user_id", u.ID))
	return c.JSON(http.StatusOK, resp)
}

// Refresh validates a refresh token by hash, revokes it and issues a new
// pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return apiError(c, http.StatusUnprocessableEntity, "validation_error", "refresh_token required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := requestCtx(c)
	defer cancel()

	now := h.now()
	userID, err := h.Tokens.ValidateRefresh(ctx, hash, now)
	if errors.Is(err, repository.ErrNotFound) {
		return apiError(c, http.StatusUnauthorized, "unauthorized", "invalid refresh token")
	}
	if err != nil {
		return h.fail(c, "validate refresh", err)
	}
	if err := h.Tokens.RevokeByHash(ctx, hash, now); err != nil {
		return h.fail(c, "revoke refresh", err)
	}

	u, err := h.Users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !u.IsActive) {
		return apiError(c, http.StatusUnauthorized, "unauthorized", "invalid refresh token")
	}
	if err != nil {
		return h.fail(c, "load user", err)
	}

	resp, err := h.issue(ctx, u)
	if err != nil {
		return h.fail(c, "issue tokens", err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes the refresh token in the body, or every refresh token of
// the bearer when the body carries none.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := requestCtx(c)
	defer cancel()
	now := h.now()

	if raw != "" {
		hash := utils.HashRefreshRaw(raw)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash, now); err != nil {
			return apiError(c, http.StatusUnauthorized, "unauthorized", "invalid refresh token")
		}
		if err := h.Tokens.RevokeByHash(ctx, hash, now); err != nil {
			return h.fail(c, "revoke refresh", err)
		}
		return c.NoContent(http.StatusNoContent)
	}

	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return apiError(c, http.StatusUnprocessableEntity, "validation_error", "provide Authorization header or refresh_token")
	}
	claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer "))
	if err != nil {
		return apiError(c, http.StatusUnauthorized, "unauthorized", "invalid token")
	}
	uid, err := claims.UserID()
	if err != nil || uid == 0 {
		return apiError(c, http.StatusUnauthorized, "unauthorized", "invalid token")
	}
	if err := h.Tokens.RevokeAllForUser(ctx, uid, now); err != nil {
		return h.fail(c, "revoke all", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated staff account.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return apiError(c, http.StatusUnauthorized, "unauthorized", "unauthorized")
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return apiError(c, http.StatusUnauthorized, "unauthorized", "unknown user")
	}
	if err != nil {
		return h.fail(c, "load user", err)
	}
	return c.JSON(http.StatusOK, userPart{ID: u.ID, Email: u.Email, Role: u.Role})
}

func (h *AuthHandler) issue(ctx context.Context, u model.StaffUser) (authResp, error) {
	now := h.now()
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin, now)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays, now)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    userPart{ID: u.ID, Email: u.Email, Role: u.Role},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	}, nil
}

func (h *AuthHandler) fail(c echo.Context, step string, err error) error {
	h.Log.Error("auth request failed", zap.String("step", step), zap.Error(err))
	return apiError(c, http.StatusInternalServerError, "server_error", "internal error")
}

func invalidCredentials(c echo.Context) error {
	return apiError(c, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
}
