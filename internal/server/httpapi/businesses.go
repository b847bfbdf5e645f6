package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	sm "loyalty/internal/shared/models"
)

func (r *Router) handleListBusinesses(w http.ResponseWriter, req *http.Request) {
	list, err := r.services.Businesses.List(req.Context())
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (r *Router) handleOwnBusiness(w http.ResponseWriter, req *http.Request) {
	b, err := r.services.Businesses.Own(req.Context(), currentUser(req.Context()).ID)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (r *Router) handleUpsertBusiness(w http.ResponseWriter, req *http.Request) {
	var body sm.UpsertBusinessRequest
	if !r.decodeJSON(w, req, &body) {
		return
	}
	if err := r.services.Businesses.Upsert(req.Context(), currentUser(req.Context()).ID, body); err != nil {
		r.fail(w, req, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (r *Router) handleBusinessEnrollments(w http.ResponseWriter, req *http.Request) {
	list, err := r.services.Businesses.Customers(req.Context(), currentUser(req.Context()).ID)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (r *Router) handleCreateReward(w http.ResponseWriter, req *http.Request) {
	var body sm.CreateRewardRequest
	if !r.decodeJSON(w, req, &body) {
		return
	}
	if err := r.services.Businesses.CreateReward(req.Context(), currentUser(req.Context()).ID, body); err != nil {
		r.fail(w, req, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (r *Router) handleUpdateReward(w http.ResponseWriter, req *http.Request) {
	var body sm.UpdateRewardRequest
	if !r.decodeJSON(w, req, &body) {
		return
	}
	err := r.services.Businesses.UpdateReward(req.Context(), currentUser(req.Context()).ID, chi.URLParam(req, "id"), body)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (r *Router) handleDeleteReward(w http.ResponseWriter, req *http.Request) {
	if err := r.services.Businesses.DeleteReward(req.Context(), currentUser(req.Context()).ID, chi.URLParam(req, "id")); err != nil {
		r.fail(w, req, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
