package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"gigmarket/internal/search"
	"gigmarket/internal/search/service"
	"gigmarket/pkg/response"
)

type Handler struct {
	Service *service.Service
}

func NewSearchHandler(s *service.Service) *Handler {
	return &Handler{Service: s}
}

// Providers handles GET /api/search/providers?q=&category=&state=&city=&limit=
func (h *Handler) Providers(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	q := search.Query{
		Text:     qs.Get("q"),
		Category: qs.Get("category"),
		State:    qs.Get("state"),
		City:     qs.Get("city"),
	}
	if v := qs.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		q.Limit = n
	}

	results, err := h.Service.Search(r.Context(), q)
	if err != nil {
		if errors.Is(err, search.ErrEmptyQuery) {
			response.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("Provider search failed: %v", err)
		response.Error(w, http.StatusInternalServerError, "search failed")
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(results),
		"results": results,
	})
}
