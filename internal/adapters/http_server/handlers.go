// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"paidreviews/internal/app"
	"paidreviews/internal/domain"
)

type Handlers struct {
	Q        *app.QueryService
	Reviews  *app.ReviewService
	Settings *app.SettingsService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	// operator surface (identity injected by the fronting auth proxy)
	s.mux.Get("/v1/settings", h.getSettings)
	s.mux.Post("/v1/settings", h.createSettings)
	s.mux.Put("/v1/settings/{settingsID}", h.updateSettings)
	s.mux.Post("/v1/settings/{settingsID}/tags/sync", h.syncTags)
	s.mux.Delete("/v1/reviews/{reviewID}", h.deleteReview)

	// public surface
	s.mux.Get("/v1/tags/{settingsID}", h.listTagStats)
	s.mux.Get("/v1/reviews/{settingsID}/{tag}", h.listReviews)
	s.mux.Post("/v1/reviews", h.submitReview)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeDomainError maps domain sentinels onto problem responses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrInvalidTag):
		writeProblem(w, http.StatusBadRequest, "Invalid Tag", "tag not allowed")
	case errors.Is(err, domain.ErrCommentTooLong):
		writeProblem(w, http.StatusBadRequest, "Comment Too Long", "comment exceeds the configured limit")
	case errors.Is(err, domain.ErrForbidden):
		writeProblem(w, http.StatusForbidden, "Forbidden", "not your resource")
	case errors.Is(err, domain.ErrUpstream):
		writeProblem(w, http.StatusBadGateway, "Upstream Unavailable", "tag manifest could not be fetched")
	case errors.Is(err, domain.ErrGateway):
		writeProblem(w, http.StatusInternalServerError, "Payment Gateway Error", "could not create invoice")
	default:
		log.Error().Err(err).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// callerID returns the trusted identity header, or "" after writing a 401.
func callerID(w http.ResponseWriter, r *http.Request) string {
	uid := r.Header.Get("X-User-ID")
	if uid == "" {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
	}
	return uid
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// ---- settings ----

func (h *Handlers) getSettings(w http.ResponseWriter, r *http.Request) {
	uid := callerID(w, r)
	if uid == "" {
		return
	}
	st, err := h.Settings.GetForUser(r.Context(), uid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handlers) createSettings(w http.ResponseWriter, r *http.Request) {
	uid := callerID(w, r)
	if uid == "" {
		return
	}
	var in app.SettingsInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	st, err := h.Settings.Create(r.Context(), uid, in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (h *Handlers) updateSettings(w http.ResponseWriter, r *http.Request) {
	uid := callerID(w, r)
	if uid == "" {
		return
	}
	var in app.SettingsInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	st, err := h.Settings.Update(r.Context(), chi.URLParam(r, "settingsID"), uid, in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handlers) syncTags(w http.ResponseWriter, r *http.Request) {
	uid := callerID(w, r)
	if uid == "" {
		return
	}
	st, added, err := h.Settings.SyncTags(r.Context(), chi.URLParam(r, "settingsID"), uid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": st, "added": added})
}

// ---- tags / stats ----

func (h *Handlers) listTagStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Q.StatsAllTags(r.Context(), chi.URLParam(r, "settingsID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if stats == nil {
		stats = []domain.RatingStats{}
	}

	etag, body := calcETagAndBody(stats)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=30")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write listTagStats body")
	}
}

// ---- reviews ----

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	settingsID := chi.URLParam(r, "settingsID")
	tag := chi.URLParam(r, "tag")

	limit := 10
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 50 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 50")
			return
		}
		limit = l
	}
	var before *int64
	if bs := r.URL.Query().Get("before"); bs != "" {
		b, err := strconv.ParseInt(bs, 10, 64)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid before", "before must be a unix timestamp")
			return
		}
		before = &b
	}

	page, err := h.Q.ReviewsByTag(r.Context(), settingsID, tag, domain.PageQuery{Limit: limit, Before: before})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if page.Items == nil {
		page.Items = []domain.Review{}
	}

	etag, body := calcETagAndBody(page)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=30")
	w.Header().Set("X-Page-Limit", strconv.Itoa(limit))
	if page.NextCursor != nil {
		w.Header().Set("X-Next-Cursor", strconv.FormatInt(*page.NextCursor, 10))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write listReviews body")
	}
}

func (h *Handlers) submitReview(w http.ResponseWriter, r *http.Request) {
	var in struct {
		SettingsID string `json:"settings_id"`
		Name       string `json:"name"`
		Tag        string `json:"tag"`
		Rating     *int   `json:"rating"`
		Comment    string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	if in.SettingsID == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "settings_id is required")
		return
	}
	if in.Rating == nil || *in.Rating < 0 || *in.Rating > domain.MaxRating {
		writeProblem(w, http.StatusBadRequest, "Invalid Rating",
			"rating must be an integer between 0 and "+strconv.Itoa(domain.MaxRating))
		return
	}

	res, err := h.Reviews.Submit(r.Context(), app.SubmitRequest{
		SettingsID: in.SettingsID,
		Name:       in.Name,
		Tag:        in.Tag,
		Rating:     *in.Rating,
		Comment:    in.Comment,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handlers) deleteReview(w http.ResponseWriter, r *http.Request) {
	uid := callerID(w, r)
	if uid == "" {
		return
	}
	if err := h.Reviews.Delete(r.Context(), chi.URLParam(r, "reviewID"), uid); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
