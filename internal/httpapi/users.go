package httpapi

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/mateforge/mateauth"
	"github.com/mateforge/mateauth/middleware"
)

type updateBioRequest struct {
	Bio *string `json:"bio"`
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.SubjectFromContext(r.Context())
	acc, err := h.users.Private(r.Context(), caller)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (h *Handler) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.SubjectFromContext(r.Context())
	var req updateBioRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil || req.Bio == nil {
		writeDetail(w, http.StatusUnprocessableEntity, "bio is required")
		return
	}

	acc, err := h.users.UpdateBio(r.Context(), caller, *req.Bio)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (h *Handler) handleDeleteMe(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.SubjectFromContext(r.Context())
	if err := h.users.DeleteAccount(r.Context(), caller); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Msg: "Account deleted"})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.users.Public(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleFollow(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.SubjectFromContext(r.Context())
	author, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.users.Follow(r.Context(), caller, author); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.SubjectFromContext(r.Context())
	author, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.users.Unfollow(r.Context(), caller, author); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleFollowers(w http.ResponseWriter, r *http.Request) {
	id, limit, offset, ok := listParams(w, r)
	if !ok {
		return
	}
	out, err := h.users.Followers(r.Context(), id, limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleFollowing(w http.ResponseWriter, r *http.Request) {
	id, limit, offset, ok := listParams(w, r)
	if !ok {
		return
	}
	out, err := h.users.Following(r.Context(), id, limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid user id")
		return uuid.Nil, false
	}
	return id, true
}

func listParams(w http.ResponseWriter, r *http.Request) (uuid.UUID, int, int, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return uuid.Nil, 0, 0, false
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, mateauth.Message(err))
		return uuid.Nil, 0, 0, false
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, mateauth.Message(err))
		return uuid.Nil, 0, 0, false
	}
	return id, limit, offset, true
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, mateauth.ValidationError(name + " must be an integer")
	}
	return n, nil
}
