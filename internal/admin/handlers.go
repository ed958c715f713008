// Package admin exposes the JSON back-office API for the staging review
// pipeline: bulk actions, enhancement, enrichment, rescrape, listing, stats.
package admin

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"istanbul-explorer/internal/domain"
	"istanbul-explorer/internal/enhance"
	"istanbul-explorer/internal/models"
	"istanbul-explorer/internal/staging"
	errs "istanbul-explorer/pkg/errors"
	"istanbul-explorer/pkg/metrics"
)

var (
	mActionRequests = metrics.Default.Counter("admin_action_requests_total", "Staging action requests")
	mActionErrors   = metrics.Default.Counter("admin_action_errors_total", "Staging action requests that failed")
)

// ActionRequest is the body of POST /api/staging/action. Item ids are
// accepted under either key for compatibility with older clients.
type ActionRequest struct {
	Action    string             `json:"action"`
	ItemIDs   []int64            `json:"item_ids"`
	Items     []int64            `json:"items"`
	Notes     string             `json:"notes,omitempty"`
	Thumbnail *staging.Thumbnail `json:"thumbnailData,omitempty"`
	Admin     *string            `json:"admin,omitempty"`
}

func (r ActionRequest) ids() []int64 {
	if len(r.ItemIDs) > 0 {
		return r.ItemIDs
	}
	return r.Items
}

// ActionHandler dispatches the staging mutation actions.
func ActionHandler(svc *staging.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mActionRequests.Inc()

		var req ActionRequest
		if err := decodeBody(r, &req); err != nil {
			mActionErrors.Inc()
			writeError(w, err)
			return
		}

		ids := req.ids()
		if len(ids) == 0 {
			mActionErrors.Inc()
			writeError(w, errs.NewValidation("admin.Action", "no item ids provided: set item_ids or items", nil))
			return
		}

		ctx := r.Context()
		switch req.Action {
		case "approve", "bulk_approve":
			n, err := svc.Approve(ctx, ids, req.Notes, req.Admin)
			if err != nil {
				mActionErrors.Inc()
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"message":        "items approved",
				"affected_items": n,
			})

		case "reject", "bulk_reject":
			n, err := svc.Reject(ctx, ids, req.Notes, req.Admin)
			if err != nil {
				mActionErrors.Inc()
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"message":        "items rejected",
				"affected_items": n,
			})

		case "publish":
			out, err := svc.Publish(ctx, ids, req.Admin)
			if err != nil {
				mActionErrors.Inc()
				writeError(w, err)
				return
			}
			payload := map[string]any{
				"published_items": out.Published,
				"affected_items":  len(out.Published),
			}
			if len(out.Errors) > 0 {
				payload["errors"] = out.Errors
			}
			if out.Message != "" {
				payload["message"] = out.Message
			}
			writeJSON(w, http.StatusOK, payload)

		case "override_thumbnail":
			if err := svc.OverrideThumbnail(ctx, ids[0], req.Thumbnail, req.Admin); err != nil {
				mActionErrors.Inc()
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"message":        "thumbnail overridden",
				"affected_items": 1,
			})

		default:
			mActionErrors.Inc()
			writeError(w, errs.NewValidation("admin.Action", "unknown action: "+req.Action, nil))
		}
	}
}

// EnhanceRequest is the body of POST /api/staging/enhance.
type EnhanceRequest struct {
	StagingIDs []int64 `json:"staging_ids"`
	Type       string  `json:"enhancement_type"`
	Audience   string  `json:"target_audience,omitempty"`
	Style      string  `json:"style,omitempty"`
	Admin      *string `json:"admin,omitempty"`
}

func EnhanceHandler(svc *staging.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EnhanceRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}

		cfg := enhance.Config{
			Type:     enhance.Type(req.Type),
			Audience: enhance.Audience(req.Audience),
			Style:    enhance.Style(req.Style),
		}
		out, err := svc.EnhanceBatch(r.Context(), req.StagingIDs, cfg, req.Admin)
		if err != nil {
			writeError(w, err)
			return
		}

		var errList any // null when empty, per the response contract
		if len(out.Errors) > 0 {
			errList = out.Errors
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"enhanced_items": out.Enhanced,
			"errors":         errList,
			"summary":        out.Summary,
		})
	}
}

// EnrichRequest is the body of POST /api/staging/enrich.
type EnrichRequest struct {
	ItemID int64   `json:"item_id"`
	Admin  *string `json:"admin,omitempty"`
}

func EnrichHandler(svc *staging.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EnrichRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if req.ItemID == 0 {
			writeError(w, errs.NewValidation("admin.Enrich", "item_id is required", nil))
			return
		}

		out, err := svc.Enrich(r.Context(), req.ItemID, req.Admin)
		if err != nil {
			writeError(w, err)
			return
		}
		if out.Skipped {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"success":     false,
				"skipReason":  out.SkipReason,
				"creditsUsed": 0,
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"creditsUsed":    out.CreditsUsed,
			"enrichedFields": out.EnrichedFields,
		})
	}
}

// RescrapeRequest is the body of POST /api/staging/{id}/rescrape.
type RescrapeRequest struct {
	Intent       staging.RescrapeIntent `json:"structuredIntent"`
	ImageCount   int                    `json:"image_count,omitempty"`
	Instructions string                 `json:"instructions,omitempty"`
	Admin        *string                `json:"admin,omitempty"`
}

func RescrapeHandler(svc *staging.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
		if err != nil {
			writeError(w, errs.NewValidation("admin.Rescrape", "invalid staging id", err))
			return
		}

		var req RescrapeRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}

		out, err := svc.Rescrape(r.Context(), id, req.Intent, req.ImageCount, req.Admin)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"changesSummary": out.ChangesSummary,
		})
	}
}

// ListHandler serves the filtered, paginated staging queue.
func ListHandler(svc *staging.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		limit, _ := strconv.Atoi(q.Get("limit"))
		if limit <= 0 || limit > 200 {
			limit = 50
		}
		offset, _ := strconv.Atoi(q.Get("offset"))
		if offset < 0 {
			offset = 0
		}
		minConf, _ := strconv.Atoi(q.Get("min_confidence"))

		f := domain.StagingFilter{
			Status:        models.Status(q.Get("status")),
			Category:      models.Category(q.Get("category")),
			Search:        q.Get("search"),
			MinConfidence: minConf,
			Limit:         limit,
			Offset:        offset,
		}
		if f.Status != "" && !models.ValidStatus(f.Status) {
			writeError(w, errs.NewValidation("admin.List", "invalid status: "+string(f.Status), nil))
			return
		}
		if f.Category != "" && !models.ValidCategory(f.Category) {
			writeError(w, errs.NewValidation("admin.List", "invalid category: "+string(f.Category), nil))
			return
		}

		items, total, err := svc.List(r.Context(), f)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items": items,
			"total": total,
		})
	}
}

// StatsHandler serves the aggregate dashboard counts.
func StatsHandler(svc *staging.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Stats(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
	}
}

// RegisterRoutes attaches the back-office API to the router.
func RegisterRoutes(r *mux.Router, svc *staging.Service) {
	r.HandleFunc("/api/staging/action", ActionHandler(svc)).Methods(http.MethodPost)
	r.HandleFunc("/api/staging/enhance", EnhanceHandler(svc)).Methods(http.MethodPost)
	r.HandleFunc("/api/staging/enrich", EnrichHandler(svc)).Methods(http.MethodPost)
	r.HandleFunc("/api/staging/{id:[0-9]+}/rescrape", RescrapeHandler(svc)).Methods(http.MethodPost)
	r.HandleFunc("/api/staging", ListHandler(svc)).Methods(http.MethodGet)
	r.HandleFunc("/api/staging/stats", StatsHandler(svc)).Methods(http.MethodGet)
}
