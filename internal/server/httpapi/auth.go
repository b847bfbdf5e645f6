package httpapi

import (
	"net/http"

	sm "loyalty/internal/shared/models"
)

func (r *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	var body sm.RegisterRequest
	if !r.decodeJSON(w, req, &body) {
		return
	}
	tok, err := r.services.Auth.Register(req.Context(), body)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	var body sm.LoginRequest
	if !r.decodeJSON(w, req, &body) {
		return
	}
	tok, err := r.services.Auth.Login(req.Context(), body.Username, body.Password)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) {
	token, ok := bearerToken(req)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing or invalid token")
		return
	}
	if err := r.services.Auth.Logout(req.Context(), token); err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(req.Context()))
}
