package http_handlers

import (
	"net/http"

	"github.com/baechuer/marketplace-auth/internal/domain"
	"github.com/baechuer/marketplace-auth/internal/transport/http/dto"
	"github.com/baechuer/marketplace-auth/internal/transport/http/middleware"
	"github.com/baechuer/marketplace-auth/internal/transport/http/response"
)

// Dashboard serves the role-gated landing endpoints. The router applies the role guard.
type DashboardHandler struct{}

func NewDashboardHandler() *DashboardHandler { return &DashboardHandler{} }

// Buyer handles GET /dashboard/buyer
func (h *DashboardHandler) Buyer(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, "Welcome to the buyer dashboard")
}

// Seller handles GET /dashboard/seller
func (h *DashboardHandler) Seller(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, "Welcome to the seller dashboard")
}

func (h *DashboardHandler) write(w http.ResponseWriter, r *http.Request, msg string) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrUnauthenticated())
		return
	}
	response.WriteJSON(w, http.StatusOK, dto.DashboardResponse{Success: true, Message: msg, User: u})
}
