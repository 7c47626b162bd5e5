package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/newthinker/premia/internal/api/response"
	"github.com/newthinker/premia/internal/core"
	"github.com/newthinker/premia/internal/provider"
)

// CacheApp defines the interface needed from app.App.
type CacheApp interface {
	PurgeCache(ctx context.Context, roles ...provider.Role) (int, error)
}

// CacheHandler handles provider cache API requests.
type CacheHandler struct {
	app CacheApp
}

// NewCacheHandler creates a new cache handler.
func NewCacheHandler(app CacheApp) *CacheHandler {
	return &CacheHandler{app: app}
}

// Purge drops cached responses for the roles named by repeated ?role=
// parameters, or for every role.
func (h *CacheHandler) Purge(w http.ResponseWriter, r *http.Request) {
	var roles []provider.Role
	for _, v := range r.URL.Query()["role"] {
		role := provider.Role(v)
		switch role {
		case provider.RoleChain, provider.RoleMarket, provider.RoleFundamentals:
			roles = append(roles, role)
		default:
			response.Error(w, http.StatusBadRequest,
				core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown role %q", v)))
			return
		}
	}

	n, err := h.app.PurgeCache(r.Context(), roles...)
	if err != nil {
		response.Error(w, response.StatusFor(err), err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"purged": n,
	})
}
