package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/usermgmt/usersvc/internal/services"
	"github.com/usermgmt/usersvc/internal/store"
)

const (
	loginStatusSuccess = "success"
	loginStatusFailed  = "failed"
)

// UserHandler provides HTTP handlers for user accounts.
type UserHandler struct {
	userService *services.UserService
	validator   *RequestValidator
	logger      zerolog.Logger
}

// NewUserHandler constructs a handler with the provided service.
func NewUserHandler(userService *services.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		validator:   NewRequestValidator(),
		logger:      logger,
	}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, userService *services.UserService, logger zerolog.Logger) {
	handler := NewUserHandler(userService, logger)

	r.Get("/users", handler.ListUsers)
	r.Post("/users", handler.CreateUser)
	r.Route("/user/{userID}", func(r chi.Router) {
		r.Get("/", handler.GetUser)
		r.Put("/", handler.UpdateUser)
		r.Delete("/", handler.DeleteUser)
	})
	r.Get("/search", handler.SearchUsers)
	r.Post("/login", handler.Login)
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		h.storageFault(w, r, err, "list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.storageFault(w, r, err, "get user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.userService.Create(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			writeError(w, http.StatusConflict, "User with this email already exists")
			return
		}
		h.storageFault(w, r, err, "create user")
		return
	}

	writeJSON(w, http.StatusCreated, CreateUserResponse{
		Message: "User created successfully",
		UserID:  user.ID,
	})
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	var req UpdateUserRequest
	if !h.decode(w, r, &req) {
		return
	}

	if _, err := h.userService.Update(r.Context(), id, req.Name, req.Email); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, store.ErrDuplicateEmail):
			writeError(w, http.StatusConflict, "Email already in use")
		default:
			h.storageFault(w, r, err, "update user")
		}
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "User updated successfully"})
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	if err := h.userService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.storageFault(w, r, err, "delete user")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "User deleted successfully"})
}

func (h *UserHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "Please provide a name to search")
		return
	}

	users, err := h.userService.Search(r.Context(), name)
	if err != nil {
		h.storageFault(w, r, err, "search users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Login verifies credentials. Unknown email and wrong password produce the
// same response.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.userService.VerifyLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, LoginResponse{
				Status: loginStatusFailed,
				Error:  "Invalid credentials",
			})
			return
		}
		h.storageFault(w, r, err, "verify login")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Status:  loginStatusSuccess,
		UserID:  user.ID,
		Message: "Login successful",
	})
}

// CreateUserResponse is returned after a successful registration.
type CreateUserResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"user_id"`
}

// LoginResponse is returned by POST /login on success and on bad credentials.
type LoginResponse struct {
	Status  string `json:"status"`
	UserID  int64  `json:"user_id,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// decode reads and validates the request body, writing the 4xx response itself
// when the payload is rejected.
func (h *UserHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	fieldErrs, err := h.validator.Decode(r, dst)
	switch {
	case errors.Is(err, errNoInput):
		writeError(w, http.StatusBadRequest, "No input data provided")
		return false
	case errors.Is(err, errInvalidJSON):
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	case errors.Is(err, errBodyTooLarge):
		writeError(w, http.StatusBadRequest, "Request body too large")
		return false
	case err != nil:
		h.logger.Error().Err(err).Msg("request validation failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return false
	case len(fieldErrs) > 0:
		writeJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			Error:    "Validation error",
			Messages: fieldErrs,
		})
		return false
	}
	return true
}

// storageFault logs err and answers with a generic 500.
func (h *UserHandler) storageFault(w http.ResponseWriter, r *http.Request, err error, op string) {
	h.logger.Error().
		Err(err).
		Str("op", op).
		Str("request_id", middleware.GetReqID(r.Context())).
		Msg("storage error")
	writeError(w, http.StatusInternalServerError, "Database error")
}
