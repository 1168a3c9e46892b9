package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notekeep/internal/notelist"
	"github.com/starford/notekeep/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

func setETag(w http.ResponseWriter, tag string) {
	if tag != "" {
		w.Header().Set("ETag", `"`+tag+`"`)
	}
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List the current user's notes
//	@Tags			notes
//	@Produce		json
//	@Param			category	query		string	false	"Exact category, All for every category"
//	@Param			q			query		string	false	"Words matched against title and content"
//	@Param			order		query		string	false	"Sort by creation time"	Enums(asc, desc)
//	@Success		200			{object}	NoteListResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	order, err := notelist.ParseOrder(q.Get("order"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("order must be asc or desc"))
		return
	}
	notes := h.svc.ListNotes(r.Context(), sessionUser(r).ID, notelist.Filter{
		Category: q.Get("category"),
		Query:    q.Get("q"),
		Order:    order,
	})
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note ID"
//	@Success		200	{object}	models.Note
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note, err := h.svc.GetNote(r.Context(), sessionUser(r).ID, id)
	if err != nil {
		writeError(w, "get note", err, slog.String("id", id))
		return
	}
	setETag(w, noteservice.ETag(note))
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a new note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !readJSON(w, r, &req) {
		return
	}
	note, err := h.svc.CreateNote(r.Context(), sessionUser(r).ID, req)
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	setETag(w, noteservice.ETag(note))
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PATCH /api/notes/{id}.
//
//	@Summary		Partially update a note with optimistic concurrency
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string				true	"Note ID"
//	@Param			If-Match	header		string				false	"ETag from a previous read"
//	@Param			body		body		UpdateNoteRequest	true	"Fields to change"
//	@Success		200			{object}	models.Note
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [patch]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateNoteRequest
	if !readJSON(w, r, &req) {
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	note, err := h.svc.UpdateNote(r.Context(), sessionUser(r).ID, id, req, ifMatch)
	if err != nil {
		writeError(w, "update note", err, slog.String("id", id))
		return
	}
	setETag(w, noteservice.ETag(note))
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id	path	string	true	"Note ID"
//	@Success		204	"Note deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteNote(r.Context(), sessionUser(r).ID, id); err != nil {
		writeError(w, "delete note", err, slog.String("id", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCategories handles GET /api/categories.
//
//	@Summary		List the current user's categories
//	@Tags			categories
//	@Produce		json
//	@Success		200	{object}	CategoryListResponse
//	@Security		BearerAuth
//	@Router			/categories [get]
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats := h.svc.ListCategories(r.Context(), sessionUser(r).ID)
	writeJSON(w, http.StatusOK, CategoryListResponse{Categories: cats})
}

// CreateCategory handles POST /api/categories.
//
//	@Summary		Create a category
//	@Tags			categories
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateCategoryRequest	true	"Category"
//	@Success		201		{object}	models.Category
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/categories [post]
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if !readJSON(w, r, &req) {
		return
	}
	c, err := h.svc.CreateCategory(r.Context(), sessionUser(r).ID, req)
	if err != nil {
		writeError(w, "create category", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// DeleteCategory handles DELETE /api/categories/{id}.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteCategory(r.Context(), sessionUser(r).ID, id); err != nil {
		writeError(w, "delete category", err, slog.String("id", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
