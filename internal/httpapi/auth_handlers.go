package httpapi

import (
	"net/http"
	"strings"

	"medsys.org/internal/result"
)

type loginRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if a.login == nil {
		unavailable(w, r, "login")
		return
	}
	var req loginRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	b := result.NewBuilder()
	requiredField(b, "UserName", strings.TrimSpace(req.UserName))
	requiredField(b, "Password", req.Password)
	if b.Len() > 0 {
		badRequest(w, b)
		return
	}

	out, err := a.login.Login(r.Context(), strings.TrimSpace(req.UserName), req.Password)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respond(w, r, out)
}
