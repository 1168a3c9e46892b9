package api

import "net/http"

// Register handles POST /api/auth/register.
//
//	@Summary		Create an account and log it in
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RegisterRequest	true	"Account"
//	@Success		201		{object}	models.Profile
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Router			/auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !readJSON(w, r, &req) {
		return
	}
	p, err := h.svc.Register(r.Context(), req)
	if err != nil {
		writeError(w, "register", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// Login handles POST /api/auth/login.
//
//	@Summary		Log in
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LoginRequest	true	"Credentials"
//	@Success		200		{object}	models.Profile
//	@Failure		401		{object}	errResponse
//	@Router			/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !readJSON(w, r, &req) {
		return
	}
	p, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeError(w, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Logout handles POST /api/auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context()); err != nil {
		writeError(w, "logout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionUser(r).Profile())
}

// UpdateProfile handles PUT /api/auth/me.
//
//	@Summary		Change email and username of the current user
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ProfileRequest	true	"Profile"
//	@Success		200		{object}	models.Profile
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Router			/auth/me [put]
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if !readJSON(w, r, &req) {
		return
	}
	p, err := h.svc.UpdateProfile(r.Context(), req)
	if err != nil {
		writeError(w, "update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ChangePassword handles PUT /api/auth/me/password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordRequest
	if !readJSON(w, r, &req) {
		return
	}
	if err := h.svc.ChangePassword(r.Context(), req); err != nil {
		writeError(w, "change password", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
