package handlers

import (
	"net/http"

	"github.com/clinicore/identity-service/internal/auth"
	"github.com/clinicore/identity-service/internal/http/respond"
	"github.com/clinicore/identity-service/internal/models/dto"
)

// SessionHandler exposes the authenticated principal's claims. It must sit
// behind the authentication middleware.
type SessionHandler struct{}

// NewSessionHandler constructs the handler.
func NewSessionHandler() *SessionHandler {
	return &SessionHandler{}
}

// ServeHTTP returns the user, tenant, and role of the current session.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, err := auth.UserID(r.Context())
	if err != nil {
		respond.Error(w, http.StatusUnauthorized, err.Error())
		return
	}
	orgID, err := auth.OrganizationID(r.Context())
	if err != nil {
		respond.Error(w, http.StatusUnauthorized, err.Error())
		return
	}
	role, err := auth.Role(r.Context())
	if err != nil {
		respond.Error(w, http.StatusUnauthorized, err.Error())
		return
	}

	respond.JSON(w, http.StatusOK, "session", dto.SessionResponse{
		UserID:         userID,
		OrganizationID: orgID,
		Role:           role,
	})
}
