package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
)

const bearerTokenType = "bearer"

// AuthHandler serves registration, login and token refresh.
type AuthHandler struct {
	users      service.UserService
	jwtService auth.JWTService
	authConfig config.AuthConfig
	logger     *slog.Logger
	now        func() time.Time
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(
	users service.UserService,
	jwtService auth.JWTService,
	authConfig config.AuthConfig,
	logger *slog.Logger,
) *AuthHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for AuthHandler")
	}

	return &AuthHandler{
		users:      users,
		jwtService: jwtService,
		authConfig: authConfig,
		logger:     logger.With(slog.String("component", "auth_handler")),
		now:        time.Now,
	}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req RegisterRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	user, err := h.users.CreateUser(r.Context(), service.CreateUserCommand{
		Email:    req.Email,
		Password: req.Password,
		Profile: domain.UserProfile{
			FirstName:  req.FirstName,
			LastName:   req.LastName,
			MiddleName: req.MiddleName,
			Gender:     domain.Gender(req.Gender),
			Role:       domain.Role(req.Role),
		},
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	resp, ok := h.issueTokens(w, r, user)
	if !ok {
		return
	}

	log.Info("user registered", slog.String("user_id", user.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, resp)
}

// Login handles POST /auth/token. It accepts a JSON body, or an OAuth2 password
// form with username and password fields.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	req, err := decodeLogin(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		log.Warn("failed login attempt")
		w.Header().Set("WWW-Authenticate", "Bearer")
		HandleAPIError(w, r, err, "")
		return
	}

	resp, ok := h.issueTokens(w, r, user)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// RefreshToken handles POST /auth/refresh, exchanging a refresh token for a new pair.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req RefreshTokenRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "Refresh token is required")
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		log.Debug("refresh token rejected", "error", err)
		HandleAPIError(w, r, err, "")
		return
	}

	// Deleted users cannot refresh.
	user, err := h.users.GetUser(r.Context(), claims.UserID)
	if err != nil {
		HandleAPIError(w, r, auth.ErrInvalidRefreshToken, "")
		return
	}

	resp, ok := h.issueTokens(w, r, user)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, RefreshTokenResponse{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		ExpiresAt:    resp.ExpiresAt,
	})
}

func (h *AuthHandler) issueTokens(w http.ResponseWriter, r *http.Request, user *domain.User) (AuthResponse, bool) {
	accessToken, err := h.jwtService.GenerateToken(r.Context(), user.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate authentication token")
		return AuthResponse{}, false
	}

	refreshToken, err := h.jwtService.GenerateRefreshToken(r.Context(), user.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate refresh token")
		return AuthResponse{}, false
	}

	expiresAt := h.now().UTC().Add(time.Duration(h.authConfig.TokenLifetimeMinutes) * time.Minute)
	return AuthResponse{
		UserID:       user.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    bearerTokenType,
		ExpiresAt:    expiresAt.Format(time.RFC3339),
	}, true
}

func decodeLogin(r *http.Request) (LoginRequest, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return LoginRequest{}, fmt.Errorf("%w: %v", shared.ErrMalformedBody, err)
		}
		return LoginRequest{
			Email:    r.PostForm.Get("username"),
			Password: r.PostForm.Get("password"),
		}, nil
	}

	var req LoginRequest
	err := shared.DecodeJSON(r, &req)
	return req, err
}
