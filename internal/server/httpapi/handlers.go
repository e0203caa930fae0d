package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ktb-community/community-be-main/internal/logging"
	"github.com/ktb-community/community-be-main/internal/server/models"
	"github.com/ktb-community/community-be-main/internal/server/services"
	"github.com/ktb-community/community-be-main/internal/server/storage"
)

// Options bundles the collaborators of the HTTP surface.
type Options struct {
	Auth   *services.AuthService
	Users  *services.UserService
	Images *storage.ImageStore

	// AuthMiddleware is the validation middleware of the configured mode,
	// BearerAuth or SessionAuth.
	AuthMiddleware func(http.Handler) http.Handler

	Logger logging.Logger
}

// Handler holds the endpoint implementations.
type Handler struct {
	auth   *services.AuthService
	users  *services.UserService
	images *storage.ImageStore
	logger logging.Logger
}

// NewRouter builds the full route tree with stock chi middleware.
func NewRouter(opts Options) *chi.Mux {
	h := &Handler{
		auth:   opts.Auth,
		users:  opts.Users,
		images: opts.Images,
		logger: opts.Logger.With("module", "httpapi"),
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)

	router.Get("/healthz", h.Healthz)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.With(opts.AuthMiddleware).Post("/logout", h.Logout)
	})

	router.Route("/users", func(r chi.Router) {
		r.Use(opts.AuthMiddleware)
		r.Get("/me", h.Me)
		r.Patch("/me/nickname", h.ChangeNickname)
		r.Patch("/me/password", h.ChangePassword)
	})

	router.Post("/images/presign-upload", h.PresignUpload)

	return router
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type signupRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Nickname     string `json:"nickname"`
	ProfileImage string `json:"profileImage"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	id, err := h.auth.Signup(r.Context(), services.SignupParams{
		Email:        strings.TrimSpace(req.Email),
		Password:     req.Password,
		Nickname:     strings.TrimSpace(req.Nickname),
		ProfileImage: strings.TrimSpace(req.ProfileImage),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int64{"userId": id})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User         userPayload `json:"user"`
	AccessToken  string      `json:"accessToken,omitempty"`
	RefreshToken string      `json:"refreshToken,omitempty"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	creds, err := h.auth.Login(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if creds.SessionID != "" {
		setSessionCookie(w, creds.SessionID, creds.SessionMaxAge)
	}

	writeJSON(w, http.StatusOK, loginResponse{
		User:         identityPayload(r, h.images, creds.Identity),
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
	})
}

type refreshRequest struct {
	UserID       int64  `json:"userId"`
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	creds, err := h.auth.Refresh(r.Context(), req.UserID, req.RefreshToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		User:         identityPayload(r, h.images, creds.Identity),
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
	})
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	// Session mode revokes the session the middleware resolved; bearer mode
	// revokes the refresh token from the body.
	presented := principal.SessionID
	if presented == "" {
		var req logoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request")
			return
		}
		presented = req.RefreshToken
	}

	if err := h.auth.Logout(r.Context(), principal.UserID, presented); err != nil {
		writeServiceError(w, err)
		return
	}

	if principal.SessionID != "" {
		clearSessionCookie(w)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.users.Get(r.Context(), principal.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userToPayload(r, h.images, user))
}

type changeNicknameRequest struct {
	CurrentNickname string `json:"currentNickname"`
	NewNickname     string `json:"newNickname"`
}

func (h *Handler) ChangeNickname(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req changeNicknameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	err := h.users.ChangeNickname(r.Context(), principal.UserID,
		strings.TrimSpace(req.CurrentNickname), strings.TrimSpace(req.NewNickname))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "nickname changed"})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	err := h.users.ChangePassword(r.Context(), principal.UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}

// PresignUpload mints a storage key and a presigned PUT URL. It is public:
// the client uploads its profile image before the account exists.
func (h *Handler) PresignUpload(w http.ResponseWriter, r *http.Request) {
	key, url, err := h.images.PresignUpload(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "presigning upload", "error", err)
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"key":       key,
		"uploadUrl": url,
	})
}

type userPayload struct {
	UserID          int64  `json:"userId"`
	Email           string `json:"email"`
	Nickname        string `json:"nickname"`
	Role            string `json:"role"`
	ProfileImage    string `json:"profileImage"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
	LastLoginAt     string `json:"lastLoginAt,omitempty"`
}

func identityPayload(r *http.Request, images *storage.ImageStore, id services.Identity) userPayload {
	p := userPayload{
		UserID:       id.UserID,
		Email:        id.Email,
		Nickname:     id.Nickname,
		Role:         id.Role,
		ProfileImage: id.ProfileImage,
	}
	if !id.LastLoginAt.IsZero() {
		p.LastLoginAt = id.LastLoginAt.Format(time.RFC3339)
	}
	p.ProfileImageURL = presignedImageURL(r, images, id.ProfileImage)
	return p
}

func userToPayload(r *http.Request, images *storage.ImageStore, user *models.User) userPayload {
	p := userPayload{
		UserID:       user.ID,
		Email:        user.Email,
		Nickname:     user.Nickname,
		Role:         user.Role,
		ProfileImage: user.ProfileImage,
	}
	if user.LastLoginAt.Valid {
		p.LastLoginAt = user.LastLoginAt.Time.Format(time.RFC3339)
	}
	p.ProfileImageURL = presignedImageURL(r, images, user.ProfileImage)
	return p
}

// presignedImageURL is best effort: a storage hiccup degrades the response
// to the bare key instead of failing the whole request.
func presignedImageURL(r *http.Request, images *storage.ImageStore, key string) string {
	if images == nil || key == "" {
		return ""
	}
	url, err := images.PresignDownload(r.Context(), key)
	if err != nil {
		return ""
	}
	return url
}
