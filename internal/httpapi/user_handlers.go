package httpapi

import (
	"net/http"
	"strings"

	"medsys.org/internal/result"
)

type updateRolesRequest struct {
	Roles []string `json:"roles"`
}

type createRoleRequest struct {
	RoleName string `json:"roleName"`
}

func (a *API) handleLoggedInUser(w http.ResponseWriter, r *http.Request) {
	if a.accounts == nil {
		unavailable(w, r, "accounts")
		return
	}
	out, err := a.accounts.Profile(r.Context(), callerID(r.Context()))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respond(w, r, out)
}

func (a *API) handleUpdateRoles(w http.ResponseWriter, r *http.Request) {
	if a.accounts == nil {
		unavailable(w, r, "accounts")
		return
	}
	userID := strings.TrimSpace(r.PathValue("userId"))
	var req updateRolesRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	if req.Roles == nil {
		badRequest(w, result.NewBuilder().Add("Roles", "The Roles field is required."))
		return
	}

	out, err := a.accounts.UpdateRoles(r.Context(), userID, req.Roles)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respond(w, r, out)
}

// handleCreateRole takes the name from ?rolename= or, failing that, from a
// JSON body.
func (a *API) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	if a.accounts == nil {
		unavailable(w, r, "accounts")
		return
	}
	name := r.URL.Query().Get("rolename")
	if name == "" && r.ContentLength != 0 {
		var req createRoleRequest
		if !decodeOrReject(w, r, &req) {
			return
		}
		name = req.RoleName
	}
	out, err := a.accounts.CreateRole(r.Context(), name)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respond(w, r, out)
}

func (a *API) handleListRoles(w http.ResponseWriter, r *http.Request) {
	if a.accounts == nil {
		unavailable(w, r, "accounts")
		return
	}
	out, err := a.accounts.ListRoles(r.Context())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respond(w, r, out)
}
