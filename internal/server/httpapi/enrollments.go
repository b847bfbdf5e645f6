package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	sm "loyalty/internal/shared/models"
)

func (r *Router) handleMyEnrollments(w http.ResponseWriter, req *http.Request) {
	list, err := r.services.Enrollments.Mine(req.Context(), currentUser(req.Context()).ID)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (r *Router) handleEnroll(w http.ResponseWriter, req *http.Request) {
	if err := r.services.Enrollments.Enroll(req.Context(), currentUser(req.Context()).ID, chi.URLParam(req, "id")); err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully enrolled"})
}

func (r *Router) handleCancelEnrollment(w http.ResponseWriter, req *http.Request) {
	if err := r.services.Enrollments.Cancel(req.Context(), currentUser(req.Context()).ID, chi.URLParam(req, "id")); err != nil {
		r.fail(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleAddPoints(w http.ResponseWriter, req *http.Request) {
	var body sm.AddPointsRequest
	if !r.decodeJSON(w, req, &body) {
		return
	}
	resp, err := r.services.Enrollments.AddPoints(req.Context(), currentUser(req.Context()).ID, body)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (r *Router) handleRedeemReward(w http.ResponseWriter, req *http.Request) {
	var body sm.RedeemRewardRequest
	if !r.decodeJSON(w, req, &body) {
		return
	}
	resp, err := r.services.Enrollments.RedeemReward(req.Context(), currentUser(req.Context()).ID, body)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
