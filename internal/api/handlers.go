// Package api is the HTTP presentation shell over the profile,
// segment, and dispatch cores. All sentinel rendering happens here:
// core optionality becomes the NOT_SYNCED display marker only at this
// boundary.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/cdp-console/internal/dispatch"
	"github.com/ignite/cdp-console/internal/ingest"
	"github.com/ignite/cdp-console/internal/pkg/logger"
	"github.com/ignite/cdp-console/internal/profile"
	"github.com/ignite/cdp-console/internal/segment"
	"github.com/ignite/cdp-console/internal/store"
)

// Handlers carries the collaborators every endpoint needs. No
// package-level state: everything is injected.
type Handlers struct {
	store        store.Store
	collection   string
	importer     *ingest.Importer
	dispatcher   *dispatch.Dispatcher
	defaultLimit int
	maxLimit     int
}

// NewHandlers wires the endpoint set. keyField names the document
// field imports key on.
func NewHandlers(st store.Store, collection, keyField string, d *dispatch.Dispatcher, defaultLimit, maxLimit int) *Handlers {
	if defaultLimit <= 0 {
		defaultLimit = segment.DefaultLimit
	}
	return &Handlers{
		store:        st,
		collection:   collection,
		importer:     ingest.NewImporter(st, collection, keyField),
		dispatcher:   d,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// Register mounts all routes on the router.
func (h *Handlers) Register(r chi.Router) {
	r.Get("/health", h.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/profile/{email}", h.handleProfileLookup)
		r.Post("/import", h.handleImport)
		r.Post("/segment/preview", h.handleSegmentPreview)
		r.Post("/outreach/send", h.handleOutreachSend)
	})
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleProfileLookup fetches one identity record by email and returns
// its normalized profile. A miss is a regular "no match" response, not
// an error.
func (h *Handlers) handleProfileLookup(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	rec, found, err := h.store.Get(r.Context(), h.collection, email)
	if err != nil {
		logger.Error("profile lookup failed", "email", email, "error", err.Error())
		respondError(w, http.StatusBadGateway, "unable to query identity store")
		return
	}
	if !found {
		respondJSON(w, http.StatusNotFound, map[string]interface{}{"found": false, "email": email})
		return
	}

	p := profile.Normalize(rec.Key, rec.Fields)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"found":   true,
		"profile": profileView(p),
		"raw":     rec.Fields,
	})
}

// handleImport loads a newline-delimited JSON feed from the request
// body into the identity collection. Bad lines are reported in the
// result and never abort the rest of the feed; only a stream that dies
// mid-read fails the request, and the partial report rides along so
// the caller can see what landed before the cut.
func (h *Handlers) handleImport(w http.ResponseWriter, r *http.Request) {
	report, err := h.importer.Run(r.Context(), r.Body)
	if err != nil {
		logger.Error("import stream failed", "error", err.Error())
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":    "import feed could not be read to the end",
			"imported": report.Imported,
			"failures": report.Failures,
		})
		return
	}
	respondJSON(w, http.StatusOK, report)
}

type segmentRequest struct {
	Validities  []string `json:"validities"`
	MinSessions int64    `json:"min_sessions"`
	MinLeads    int64    `json:"min_leads"`
	Limit       int      `json:"limit"`
}

func (h *Handlers) criteria(req segmentRequest) segment.Criteria {
	limit := req.Limit
	if limit <= 0 {
		limit = h.defaultLimit
	}
	if h.maxLimit > 0 && limit > h.maxLimit {
		limit = h.maxLimit
	}
	return segment.Criteria{
		Validities:  req.Validities,
		MinSessions: req.MinSessions,
		MinLeads:    req.MinLeads,
		Limit:       limit,
	}
}

func (h *Handlers) runSegment(r *http.Request, c segment.Criteria) ([]segment.Row, error) {
	it, err := h.store.Scan(r.Context(), h.collection)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	return segment.Filter(r.Context(), it, c)
}

// handleSegmentPreview streams the collection through the segment
// filter and returns the capped row set. If the scan dies mid-way the
// rows collected so far are returned with partial=true, so a broken
// store is never mistaken for an empty segment.
func (h *Handlers) handleSegmentPreview(w http.ResponseWriter, r *http.Request) {
	var req segmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rows, err := h.runSegment(r, h.criteria(req))
	resp := map[string]interface{}{
		"rows":    rowViews(rows),
		"count":   len(rows),
		"partial": err != nil,
	}
	if err != nil {
		logger.Error("segment scan aborted", "error", err.Error())
		resp["error"] = "unable to query identity store; results are partial"
	}
	respondJSON(w, http.StatusOK, resp)
}

type outreachRequest struct {
	segmentRequest
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// handleOutreachSend builds the segment audience, caps it, and
// dispatches one email batch. A scan failure aborts before any send: a
// partial audience must not silently shrink an outreach.
func (h *Handlers) handleOutreachSend(w http.ResponseWriter, r *http.Request) {
	var req outreachRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Subject == "" {
		respondError(w, http.StatusBadRequest, "subject is required")
		return
	}

	rows, err := h.runSegment(r, h.criteria(req.segmentRequest))
	if err != nil {
		logger.Error("outreach segment scan failed", "error", err.Error())
		respondError(w, http.StatusBadGateway, "unable to query identity store")
		return
	}

	recipients := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.Email != profile.NotSynced {
			recipients = append(recipients, row.Email)
		}
	}

	result, err := h.dispatcher.SendBatch(r.Context(), recipients, req.Subject, req.Body)
	if err != nil {
		if errors.Is(err, dispatch.ErrEmptyBatch) {
			respondError(w, http.StatusBadRequest, "segment matched no recipients")
			return
		}
		logger.Error("outreach batch failed", "error", err.Error())
		respondError(w, http.StatusBadGateway, "unable to open mail session")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
