package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mirkobrombin/go-redisdemo/v1/users"
)

func userID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, &badParam{"id", "must be an integer"}
	}
	return id, nil
}

func (a *App) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in users.UserCreate
	if err := decodeBody(r, &in); err != nil {
		fail(w, r, err)
		return
	}
	u, err := a.users.Create(r.Context(), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, u)
}

func (a *App) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	u, err := a.users.Get(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, u)
}

func (a *App) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var in users.UserUpdate
	if err := decodeBody(r, &in); err != nil {
		fail(w, r, err)
		return
	}
	u, err := a.users.Update(r.Context(), id, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, u)
}

func (a *App) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	u, err := a.users.Delete(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, u)
}
