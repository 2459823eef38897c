package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/resonate-app/resonate/internal/catalog"
	"github.com/resonate-app/resonate/internal/history"
)

func (r *Router) handleSearch(w http.ResponseWriter, req *http.Request) {
	query := req.URL.Query().Get("q")

	results, err := r.catalogService.Search(req.Context(), query)
	if err != nil {
		if errors.Is(err, catalog.ErrEmptyQuery) {
			writeError(w, http.StatusBadRequest, "query parameter q is required")
			return
		}
		r.logger.Error("search failed", "query", query, "error", err)
		writeError(w, http.StatusInternalServerError, "search is temporarily unavailable")
		return
	}

	// An empty result set is a valid outcome, not an error.
	if results == nil {
		results = []catalog.Release{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (r *Router) handleFeatured(w http.ResponseWriter, req *http.Request) {
	results, err := r.catalogService.Featured(req.Context())
	if err != nil {
		r.logger.Error("featured lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "featured releases are temporarily unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (r *Router) handleRandom(w http.ResponseWriter, req *http.Request) {
	results, err := r.catalogService.Random(req.Context())
	if err != nil {
		r.logger.Error("random lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "random releases are temporarily unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (r *Router) handlePricing(w http.ResponseWriter, req *http.Request) {
	releaseID := req.URL.Query().Get("releaseId")
	if releaseID == "" {
		writeError(w, http.StatusBadRequest, "query parameter releaseId is required")
		return
	}

	pricing, err := r.aggregator.Summarize(req.Context(), releaseID)
	if err != nil {
		r.logger.Error("pricing fetch failed", "release_id", releaseID, "error", err)
		writeError(w, http.StatusInternalServerError, "pricing is temporarily unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pricing": pricing})
}

func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) {
	limit := 10
	if v := req.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	entries, err := r.historyService.Recent(req.Context(), limit)
	if err != nil {
		r.logger.Error("history lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "history is temporarily unavailable")
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"searches": entries})
}
