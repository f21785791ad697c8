package handler

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"

    "github.com/iliyamo/car-rental/internal/config"
    "github.com/iliyamo/car-rental/internal/model"
    "github.com/iliyamo/car-rental/internal/repository"
    "github.com/iliyamo/car-rental/internal/utils"
)

// UserStore is implemented by *repository.UserRepo.
type UserStore interface {
    Create(ctx context.Context, name, email, password, role string, cost int) (*model.User, error)
    GetByEmail(ctx context.Context, email string) (*model.User, error)
    GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// TokenStore is implemented by *repository.TokenRepo.
type TokenStore interface {
    StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
    ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
    RevokeByHash(ctx context.Context, tokenHash string) error
    RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Cfg    config.Config
    Users  UserStore
    Tokens TokenStore
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore) *AuthHandler {
    if u == nil || t == nil {
        panic("nil repository passed to NewAuthHandler")
    }
    return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
    Name     string `json:"name" validate:"required,max=120"`
    Email    string `json:"email" validate:"required,email"`
    Password string `json:"password" validate:"required,min=6"`
    Role     string `json:"role" validate:"omitempty,oneof=user owner"`
}
type loginReq struct {
    Email    string `json:"email" validate:"required"`
    Password string `json:"password" validate:"required"`
}
type refreshReq struct {
    RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}

// Register creates a user and returns a token pair straight away.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "Invalid request body")
    }
    req.Name = strings.TrimSpace(req.Name)
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    req.Role = strings.ToLower(strings.TrimSpace(req.Role))
    if err := c.Validate(&req); err != nil {
        return fail(c, http.StatusBadRequest, validationMessage(err))
    }
    if req.Role == "" {
        req.Role = model.RoleUser
    }

    ctx, cancel := requestContext(c)
    defer cancel()

    u, err := h.Users.Create(ctx, req.Name, req.Email, req.Password, req.Role, h.Cfg.BcryptCost)
    if errors.Is(err, repository.ErrEmailExists) {
        return fail(c, http.StatusConflict, "User already exists with this email")
    }
    if err != nil {
        return respondError(c, err, "Server error during registration")
    }
    return h.issue(ctx, c, http.StatusCreated, "User registered successfully", u)
}

// Login verifies the credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "Invalid request body")
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if err := c.Validate(&req); err != nil {
        return fail(c, http.StatusBadRequest, "Please provide email and password")
    }

    ctx, cancel := requestContext(c)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if errors.Is(err, repository.ErrNotFound) {
        return fail(c, http.StatusUnauthorized, "Invalid credentials")
    }
    if err != nil {
        return respondError(c, err, "Server error during login")
    }
    if !utils.VerifyPassword(u.PasswordHash, req.Password) {
        return fail(c, http.StatusUnauthorized, "Invalid credentials")
    }
    return h.issue(ctx, c, http.StatusOK, "Login successful", u)
}

// Refresh validates a refresh token by its hash, revokes it and issues
// a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return fail(c, http.StatusBadRequest, "refresh_token is required")
    }
    hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

    ctx, cancel := requestContext(c)
    defer cancel()

    userID, err := h.Tokens.ValidateRefresh(ctx, hash)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "Invalid refresh token")
    }
    if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
        if errors.Is(err, repository.ErrInvalidRefresh) {
            return fail(c, http.StatusUnauthorized, "Invalid refresh token")
        }
        return respondError(c, err, "Server error during token refresh")
    }
    u, err := h.Users.GetByID(ctx, userID)
    if errors.Is(err, repository.ErrNotFound) {
        return fail(c, http.StatusUnauthorized, "Invalid refresh token")
    }
    if err != nil {
        return respondError(c, err, "Server error during token refresh")
    }
    return h.issue(ctx, c, http.StatusOK, "", u)
}

// Logout revokes the refresh token in the body or, when only a valid
// bearer token is supplied, every refresh token of that user.
func (h *AuthHandler) Logout(c echo.Context) error {
    var uid uint64
    if auth := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
        if claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer ")); err == nil {
            uid, _ = claims.UserID()
        }
    }
    var req refreshReq
    _ = c.Bind(&req)
    refreshToken := strings.TrimSpace(req.RefreshToken)

    ctx, cancel := requestContext(c)
    defer cancel()

    switch {
    case refreshToken != "":
        hash := utils.HashRefreshRaw(refreshToken)
        if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
            if errors.Is(err, repository.ErrInvalidRefresh) {
                return fail(c, http.StatusUnauthorized, "Invalid refresh token")
            }
            return respondError(c, err, "Server error during logout")
        }
    case uid > 0:
        if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
            return respondError(c, err, "Server error during logout")
        }
    default:
        return fail(c, http.StatusBadRequest, "Provide an Authorization header or refresh_token")
    }
    return c.NoContent(http.StatusNoContent)
}

// Profile returns the authenticated user.
func (h *AuthHandler) Profile(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "Not authorized")
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    u, err := h.Users.GetByID(ctx, uid)
    if err != nil {
        return respondError(c, err, "Server error while fetching profile")
    }
    return ok(c, http.StatusOK, "", echo.Map{"user": u})
}

func (h *AuthHandler) issue(ctx context.Context, c echo.Context, status int, msg string, u *model.User) error {
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
    if err != nil {
        return respondError(c, err, "Failed to issue access token")
    }
    refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
    if err != nil {
        return respondError(c, err, "Failed to issue refresh token")
    }
    if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
        return respondError(c, err, "Failed to save refresh token")
    }
    zerolog.Ctx(c.Request().Context()).Debug().Uint64("user_id", u.ID).Msg("issued token pair")
    return ok(c, status, msg, echo.Map{
        "user":    u,
        "token":   access.Token,
        "access":  tokenPart{Token: access.Token, Expires: access.Exp},
        "refresh": tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
    })
}
