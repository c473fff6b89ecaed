package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/arsenmarkotskyi/tt-event-management/internal/api/middleware"
	"github.com/arsenmarkotskyi/tt-event-management/internal/api/problem"
	"github.com/arsenmarkotskyi/tt-event-management/internal/auth"
	"github.com/arsenmarkotskyi/tt-event-management/internal/domain/accounts"
)

type AccountsHandler struct {
	service *accounts.Service
	env     string
}

func NewAccountsHandler(service *accounts.Service, env string) *AccountsHandler {
	return &AccountsHandler{service: service, env: env}
}

type registerRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=150"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8,max=128"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	FirstName       string `json:"first_name" validate:"max=150"`
	LastName        string `json:"last_name" validate:"max=150"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func newUserResponse(user accounts.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		CreatedAt: user.CreatedAt,
	}
}

func (h *AccountsHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request body", err, h.env)
		return
	}
	if err := validate.Struct(req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid registration data", err, h.env,
			problem.WithErrors(fieldErrors(err)))
		return
	}

	user, token, err := h.service.Register(r.Context(), accounts.RegisterParams{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrUsernameTaken):
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid registration data", err, h.env,
				problem.WithErrors(map[string]interface{}{"username": "a user with that username already exists"}))
		case errors.Is(err, accounts.ErrEmailTaken):
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid registration data", err, h.env,
				problem.WithErrors(map[string]interface{}{"email": "a user with that email already exists"}))
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Failed to register", err, h.env)
		}
		return
	}

	writeJSON(w, r, http.StatusCreated, authResponse{Token: token, User: newUserResponse(user)})
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *AccountsHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request body", err, h.env)
		return
	}
	if err := validate.Struct(req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid login data", err, h.env,
			problem.WithErrors(fieldErrors(err)))
		return
	}

	user, token, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			problem.Write(w, r, http.StatusUnauthorized, problem.TypeAuthentication,
				"Invalid username or password", err, h.env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Failed to log in", err, h.env)
		return
	}

	writeJSON(w, r, http.StatusOK, authResponse{Token: token, User: newUserResponse(user)})
}

func (h *AccountsHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, err := auth.TokenFromRequest(r)
	if err != nil {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeAuthentication, "Authentication required", err, h.env)
		return
	}

	if err := h.service.Logout(r.Context(), token); err != nil {
		if errors.Is(err, accounts.ErrInvalidToken) {
			problem.Write(w, r, http.StatusUnauthorized, problem.TypeAuthentication, "Invalid or expired token", err, h.env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Failed to log out", err, h.env)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user's own profile.
func (h *AccountsHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeAuthentication, "Authentication required", nil, h.env)
		return
	}
	writeJSON(w, r, http.StatusOK, newUserResponse(user))
}
