package httpapi

import (
	"net/http"
	"strings"

	"medsys.org/internal/accounts"
	"medsys.org/internal/result"
)

type createMemberRequest struct {
	Name        string   `json:"name"`
	PhoneNumber string   `json:"phoneNumber"`
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	Roles       []string `json:"roles"`
}

func (req createMemberRequest) validate() *result.Builder {
	b := result.NewBuilder()
	requiredField(b, "Name", strings.TrimSpace(req.Name))
	requiredField(b, "PhoneNumber", strings.TrimSpace(req.PhoneNumber))
	requiredField(b, "Email", strings.TrimSpace(req.Email))
	requiredField(b, "Password", req.Password)
	if b.Len() == 0 {
		return nil
	}
	return b
}

// handleCreateMember provisions a patient or a medical officer.
func (a *API) handleCreateMember(kind accounts.MemberKind) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.accounts == nil {
			unavailable(w, r, "accounts")
			return
		}
		var req createMemberRequest
		if !decodeOrReject(w, r, &req) {
			return
		}
		if b := req.validate(); b != nil {
			badRequest(w, b)
			return
		}
		out, err := a.accounts.CreateMember(r.Context(), kind, accounts.NewAccount{
			Email:       req.Email,
			Name:        req.Name,
			Password:    req.Password,
			Roles:       req.Roles,
			PhoneNumber: req.PhoneNumber,
		})
		if err != nil {
			a.respondError(w, r, err)
			return
		}
		respond(w, r, out)
	})
}

func (a *API) handleGetMember(kind accounts.MemberKind) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.accounts == nil {
			unavailable(w, r, "accounts")
			return
		}
		out, err := a.accounts.Member(r.Context(), kind, r.URL.Query().Get("userId"))
		if err != nil {
			a.respondError(w, r, err)
			return
		}
		respond(w, r, out)
	})
}
