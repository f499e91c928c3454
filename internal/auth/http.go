package auth

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-billing/internal/common"
)

// Handler serves POST /api/auth/login.
type Handler struct {
	Service *Service
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := common.DecodeJSON(r, &req); err != nil || req.Username == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "username and password are required", nil)
		return
	}
	result, err := h.Service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		zerolog.Ctx(r.Context()).Info().Str("username", req.Username).Str("ip", common.ClientIP(r)).Msg("login_rejected")
		common.WriteError(w, err, "login failed")
		return
	}
	common.JSON(w, http.StatusOK, result)
}

// Middleware guards the billing routes with the staff bearer token.
type Middleware struct {
	Service *Service
}

// RequireAuth answers 401 unless the request carries a valid token. The staff
// username is stored in the context for handlers and request logs.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scheme, token, _ := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
		if !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		staff, err := m.Service.ParseAccessToken(token)
		if err != nil {
			common.WriteError(w, err, "missing or invalid token")
			return
		}
		ctx := common.WithStaffUser(r.Context(), staff)
		zerolog.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("staff", staff)
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
