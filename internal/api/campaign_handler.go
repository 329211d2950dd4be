package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/sungwon/campaign-queue/internal/queue"
	"github.com/sungwon/campaign-queue/internal/storage"
)

const defaultCampaignPageSize = 50

// sentCampaignResponse is the JSON representation of a sent campaign.
type sentCampaignResponse struct {
	ID         int64              `json:"id"`
	CampaignID string             `json:"campaign_id"`
	Content    string             `json:"content"`
	Name       string             `json:"name"`
	Entity     *storage.EntityRef `json:"entity,omitempty"`
	SentDate   string             `json:"sent_date"`
}

func toSentCampaignResponse(c storage.SentCampaign) sentCampaignResponse {
	return sentCampaignResponse{
		ID:         c.ID,
		CampaignID: c.CampaignID,
		Content:    c.Content,
		Name:       c.Name,
		Entity:     c.Entity,
		SentDate:   c.SentDate.Format(time.RFC3339),
	}
}

// recipientResponse is the JSON representation of a recipient snapshot entry.
type recipientResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// ListCampaignsHandler handles GET /api/v1/campaigns with limit/offset
// query parameters.
func ListCampaignsHandler(queries storage.Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := int32(defaultCampaignPageSize)
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				respondError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = int32(n)
		}
		var offset int32
		if v := r.URL.Query().Get("offset"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				respondError(w, http.StatusBadRequest, "invalid offset")
				return
			}
			offset = int32(n)
		}

		campaigns, err := queries.ListSentCampaigns(r.Context(), limit, offset)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		out := make([]sentCampaignResponse, len(campaigns))
		for i, c := range campaigns {
			out[i] = toSentCampaignResponse(c)
		}
		respondJSON(w, http.StatusOK, out)
	}
}

// GetCampaignHandler handles GET /api/v1/campaigns/{campaignID}, looked up
// by the remote campaign identifier.
func GetCampaignHandler(queries storage.Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaignID := chi.URLParam(r, "campaignID")

		campaign, err := queries.GetSentCampaignByCampaignID(r.Context(), campaignID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				respondError(w, http.StatusNotFound, "campaign not found")
				return
			}
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		respondJSON(w, http.StatusOK, toSentCampaignResponse(campaign))
	}
}

// ListRecipientsHandler handles GET /api/v1/campaigns/{campaignID}/recipients.
func ListRecipientsHandler(queries storage.Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaignID := chi.URLParam(r, "campaignID")

		campaign, err := queries.GetSentCampaignByCampaignID(r.Context(), campaignID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				respondError(w, http.StatusNotFound, "campaign not found")
				return
			}
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		recipients, err := queries.ListRecipientsBySentCampaign(r.Context(), campaign.ID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		out := make([]recipientResponse, len(recipients))
		for i, rec := range recipients {
			out[i] = recipientResponse{ID: rec.ID, Email: rec.Email}
		}
		respondJSON(w, http.StatusOK, out)
	}
}

// logCampaignRequest is the JSON body for recording an externally
// dispatched campaign.
type logCampaignRequest struct {
	CampaignID string             `json:"campaign_id"`
	Entity     *storage.EntityRef `json:"entity"`
}

// LogCampaignHandler handles POST /api/v1/campaigns. It records a campaign
// that was dispatched outside the queue by fetching it from the remote
// service.
func LogCampaignHandler(svc *queue.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req logCampaignRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.CampaignID == "" {
			respondError(w, http.StatusBadRequest, "campaign_id is required")
			return
		}

		campaign, err := svc.LogSentCampaign(r.Context(), req.CampaignID, req.Entity)
		if err != nil {
			if errors.Is(err, queue.ErrUnknownEntityKind) {
				respondError(w, http.StatusBadRequest, "unknown entity kind")
				return
			}
			respondError(w, http.StatusBadGateway, "failed to fetch remote campaign")
			return
		}

		respondJSON(w, http.StatusCreated, toSentCampaignResponse(campaign))
	}
}
