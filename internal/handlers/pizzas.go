package handlers

import (
	"net/http"

	"github.com/abrezinsky/pizzarate/internal/scoring"
	"github.com/abrezinsky/pizzarate/internal/services"
)

// handleListPizzas returns the event's pizzas
func (h *Handlers) handleListPizzas(w http.ResponseWriter, r *http.Request) {
	id, _, err := caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	eventID, err := pathParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	pizzas, err := h.Pizzas.ListPizzasForEvent(r.Context(), eventID, id.UID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOK(w, PizzaListResponse{Pizzas: pizzas})
}

// handleAddPizza adds a pizza to the event
func (h *Handlers) handleAddPizza(w http.ResponseWriter, r *http.Request) {
	id, _, err := caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	eventID, err := pathParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req PizzaCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	p, err := h.Pizzas.AddPizza(r.Context(), eventID, services.PizzaInput{
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	}, id.UID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondCreated(w, p)
}

// handleGetMyRating returns the caller's rating of a pizza
func (h *Handlers) handleGetMyRating(w http.ResponseWriter, r *http.Request) {
	id, _, err := caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	eventID, err := pathParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	pizzaID, err := pathParam(r, "pizzaID")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	rt, err := h.Ratings.GetMyRating(r.Context(), eventID, pizzaID, id.UID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOK(w, RatingResponse{Rating: rt, Score: scoring.PerRatingScore(*rt)})
}

// handleUpsertRating stores the caller's rating, replacing an earlier one
func (h *Handlers) handleUpsertRating(w http.ResponseWriter, r *http.Request) {
	id, _, err := caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	eventID, err := pathParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	pizzaID, err := pathParam(r, "pizzaID")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req RatingRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	rt, err := h.Ratings.UpsertRating(r.Context(), eventID, pizzaID, id.UID, req.Criteria, req.Comments)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOK(w, RatingResponse{Rating: rt, Score: scoring.PerRatingScore(*rt)})
}

// handleGetScores returns the event scoreboard
func (h *Handlers) handleGetScores(w http.ResponseWriter, r *http.Request) {
	id, _, err := caller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	eventID, err := pathParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	scores, err := h.Ratings.EventScores(r.Context(), eventID, id.UID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOK(w, ScoresResponse{Scores: scores})
}
