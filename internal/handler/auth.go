package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/coinage-io/coinage/internal/auth"
)

type AuthHandler struct {
	adminTokenHash string
	jwtSecret      string
	jwtExpiry      time.Duration
}

func NewAuthHandler(adminTokenHash, jwtSecret string, jwtExpiry time.Duration) *AuthHandler {
	return &AuthHandler{
		adminTokenHash: adminTokenHash,
		jwtSecret:      jwtSecret,
		jwtExpiry:      jwtExpiry,
	}
}

type tokenRequest struct {
	CallerID       string `json:"caller_id"`
	Admin          bool   `json:"admin"`
	BootstrapToken string `json:"bootstrap_token"`
}

func (r tokenRequest) Validate() []FieldError {
	var errs []FieldError
	if r.CallerID == "" {
		errs = append(errs, FieldError{Field: "caller_id", Message: "required"})
	} else if _, err := uuid.Parse(r.CallerID); err != nil {
		errs = append(errs, FieldError{Field: "caller_id", Message: "must be a UUID"})
	}
	if r.BootstrapToken == "" {
		errs = append(errs, FieldError{Field: "bootstrap_token", Message: "required"})
	}
	return errs
}

type tokenResponse struct {
	Token     string    `json:"token"`
	CallerID  uuid.UUID `json:"caller_id"`
	Admin     bool      `json:"admin"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Token exchanges the shared bootstrap token for a signed JWT. The
// plugin host calls this on startup and caches the token for its users.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.adminTokenHash), []byte(req.BootstrapToken)); err != nil {
		RespondAppError(w, ErrInvalidCredentials, nil)
		return
	}

	callerID := uuid.MustParse(req.CallerID)
	token, err := auth.GenerateToken(callerID, req.Admin, h.jwtSecret, h.jwtExpiry)
	if err != nil {
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	RespondSuccess(w, http.StatusOK, tokenResponse{
		Token:     token,
		CallerID:  callerID,
		Admin:     req.Admin,
		ExpiresAt: time.Now().Add(h.jwtExpiry),
	})
}
