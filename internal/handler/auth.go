package handler

import (
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/interviewace/interviewace/internal/i18n"
	"github.com/interviewace/interviewace/internal/model"
)

const sessionCookieName = "session"

type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

type userView struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

func viewUser(u *model.User) userView {
	return userView{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, Role: string(u.Role)}
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := decodeJSON(r, &creds); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "bad_request")
		return
	}
	creds.Email = strings.TrimSpace(creds.Email)
	if _, err := mail.ParseAddress(creds.Email); err != nil || len(creds.Password) < 8 {
		h.respondError(w, r, http.StatusBadRequest, "bad_request")
		return
	}

	existing, err := h.store.GetUserByEmail(creds.Email)
	if err != nil {
		slog.Error("failed to look up user", "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "internal")
		return
	}
	if existing != nil {
		h.respondError(w, r, http.StatusConflict, "email_taken")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "internal")
		return
	}

	displayName := creds.DisplayName
	if displayName == "" {
		displayName = creds.Email[:strings.Index(creds.Email, "@")]
	}

	id, err := h.store.CreateUser(model.User{
		Email:        creds.Email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		Role:         model.UserRoleCandidate,
		Active:       true,
	})
	if err != nil {
		slog.Error("failed to create user", "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "internal")
		return
	}

	token, err := h.store.CreateAuthSession(id)
	if err != nil {
		slog.Error("failed to create auth session", "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "internal")
		return
	}
	h.setSessionCookie(w, token)

	user, err := h.store.GetUserByID(id)
	if err != nil || user == nil {
		h.respondError(w, r, http.StatusInternalServerError, "internal")
		return
	}
	respondJSON(w, http.StatusCreated, viewUser(user))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := decodeJSON(r, &creds); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "bad_request")
		return
	}

	user, err := h.store.GetUserByEmail(strings.TrimSpace(creds.Email))
	if err != nil {
		slog.Error("failed to get user", "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "internal")
		return
	}
	if user == nil {
		h.respondError(w, r, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	if !user.Active {
		h.respondError(w, r, http.StatusForbidden, "account_disabled")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		h.respondError(w, r, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	token, err := h.store.CreateAuthSession(user.ID)
	if err != nil {
		slog.Error("failed to create auth session", "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "internal")
		return
	}
	h.setSessionCookie(w, token)
	respondJSON(w, http.StatusOK, viewUser(user))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		_ = h.store.DeleteAuthSession(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	respondJSON(w, http.StatusOK, viewUser(user))
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
}

// requireAuth is middleware that checks for a valid session cookie.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			h.respondError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}

		authSess, err := h.store.GetAuthSession(cookie.Value)
		if err != nil {
			slog.Error("failed to get auth session", "error", err)
			h.respondError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}
		if authSess == nil {
			h.respondError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}

		user, err := h.store.GetUserByID(authSess.UserID)
		if err != nil || user == nil || !user.Active {
			h.respondError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := model.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole returns middleware that checks the user has one of the allowed roles.
func requireRole(allowed ...model.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := model.UserFromContext(r.Context())
			if user == nil {
				respondJSON(w, http.StatusUnauthorized, map[string]apiError{"error": {
					Code:    "unauthorized",
					Message: i18n.T(r.Context(), "error.unauthorized"),
				}})
				return
			}
			for _, role := range allowed {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			respondJSON(w, http.StatusForbidden, map[string]apiError{"error": {
				Code:    "forbidden",
				Message: i18n.T(r.Context(), "error.forbidden"),
			}})
		})
	}
}
