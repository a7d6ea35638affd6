package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-hr/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-hr/internal/rbac"
	"github.com/odyssey-erp/odyssey-hr/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
	rateLimit int
}

// NewHandler constructs a Handler instance. rateLimit bounds auth requests per IP per minute.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, rateLimit int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		rbac:      rbac,
		validator: validator.New(),
		rateLimit: rateLimit,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.rateLimit > 0 {
			r.Use(httprate.LimitByIP(h.rateLimit, time.Minute))
		}
		r.Post("/signup", h.handleSignup)
		r.Post("/login", h.handleLogin)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuthenticated)
		r.Get("/me", h.handleMe)
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Msg       string    `json:"msg"`
	Token     string    `json:"token"`
	User      string    `json:"user"`
	Role      rbac.Role `json:"role"`
	UserName  string    `json:"userName"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type signUpResponse struct {
	ID   string    `json:"id"`
	Msg  string    `json:"msg"`
	Role rbac.Role `json:"role"`
	Code string    `json:"code"`
}

type meResponse struct {
	ID   string    `json:"id"`
	Role rbac.Role `json:"role"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Validation("malformed request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ErrInvalidCredentials)
		return
	}
	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(w, r, "login", err)
		return
	}
	httpx.JSON(w, http.StatusOK, loginResponse{
		Msg:       "User successfully logged in",
		Token:     result.Token,
		User:      result.UserID,
		Role:      result.Role,
		UserName:  result.UserName,
		ExpiresAt: result.ExpiresAt,
	})
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, shared.Validation("malformed request body"))
		return
	}
	reg, err := h.service.Register(r.Context(), in)
	if err != nil {
		h.respondError(w, r, "signup", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, signUpResponse{
		ID:   reg.ID,
		Msg:  "User Registered Successfully",
		Role: reg.Role,
		Code: reg.Code,
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	p := rbac.PrincipalFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, meResponse{ID: p.ID, Role: p.Role})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	expected := errors.Is(err, shared.ErrInvalidCredentials) ||
		errors.Is(err, shared.ErrDenied) ||
		errors.Is(err, shared.ErrValidation)
	if !expected {
		h.logger.ErrorContext(r.Context(), op+" failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
