package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sungwon/campaign-queue/internal/queue"
	"github.com/sungwon/campaign-queue/internal/storage"
)

// trackingBody mirrors the tracking flags in request and response bodies.
type trackingBody struct {
	Opens      bool `json:"opens"`
	HTMLClicks bool `json:"html_clicks"`
	TextClicks bool `json:"text_clicks"`
}

// enqueueRequest is the JSON body for queueing a campaign send.
type enqueueRequest struct {
	CampaignType      string                     `json:"campaign_type"`
	Contents          map[string]string          `json:"contents"`
	ListID            string                     `json:"list_id"`
	TemplateID        int                        `json:"template_id"`
	Subject           string                     `json:"subject"`
	FromEmail         string                     `json:"from_email"`
	FromName          string                     `json:"from_name"`
	ToEmail           string                     `json:"to_email"`
	FolderID          *string                    `json:"folder_id"`
	Tracking          trackingBody               `json:"tracking"`
	Title             *string                    `json:"title"`
	Authenticate      bool                       `json:"authenticate"`
	GoogleAnalytics   *string                    `json:"google_analytics"`
	AutoFooter        bool                       `json:"auto_footer"`
	GenerateText      bool                       `json:"generate_text"`
	AutoTweet         bool                       `json:"auto_tweet"`
	SegmentOptions    bool                       `json:"segment_options"`
	SegmentOptionsAll bool                       `json:"segment_options_all"`
	SegmentConditions []storage.SegmentCondition `json:"segment_conditions"`
	TypeOpts          map[string]any             `json:"type_opts"`
	Entity            *storage.EntityRef         `json:"entity"`
}

// queuedRequestResponse is the JSON representation of a queued request.
type queuedRequestResponse struct {
	ID                int64                      `json:"id"`
	CampaignType      string                     `json:"campaign_type"`
	Contents          map[string]string          `json:"contents"`
	ListID            string                     `json:"list_id"`
	TemplateID        int                        `json:"template_id"`
	Subject           string                     `json:"subject"`
	FromEmail         string                     `json:"from_email"`
	FromName          string                     `json:"from_name"`
	ToEmail           string                     `json:"to_email"`
	FolderID          *string                    `json:"folder_id,omitempty"`
	Tracking          trackingBody               `json:"tracking"`
	Title             *string                    `json:"title,omitempty"`
	Authenticate      bool                       `json:"authenticate"`
	GoogleAnalytics   *string                    `json:"google_analytics,omitempty"`
	AutoFooter        bool                       `json:"auto_footer"`
	GenerateText      bool                       `json:"generate_text"`
	AutoTweet         bool                       `json:"auto_tweet"`
	SegmentOptions    bool                       `json:"segment_options"`
	SegmentOptionsAll bool                       `json:"segment_options_all"`
	SegmentConditions []storage.SegmentCondition `json:"segment_conditions"`
	TypeOpts          map[string]any             `json:"type_opts"`
	Entity            *storage.EntityRef         `json:"entity,omitempty"`
	Locked            bool                       `json:"locked"`
	CreatedAt         string                     `json:"created_at"`
}

func toQueuedRequestResponse(req storage.QueuedRequest) queuedRequestResponse {
	return queuedRequestResponse{
		ID:           req.ID,
		CampaignType: req.CampaignType,
		Contents:     req.Contents,
		ListID:       req.ListID,
		TemplateID:   req.TemplateID,
		Subject:      req.Subject,
		FromEmail:    req.FromEmail,
		FromName:     req.FromName,
		ToEmail:      req.ToEmail,
		FolderID:     req.FolderID,
		Tracking: trackingBody{
			Opens:      req.TrackingOpens,
			HTMLClicks: req.TrackingHTMLClicks,
			TextClicks: req.TrackingTextClicks,
		},
		Title:             req.Title,
		Authenticate:      req.Authenticate,
		GoogleAnalytics:   req.GoogleAnalytics,
		AutoFooter:        req.AutoFooter,
		GenerateText:      req.GenerateText,
		AutoTweet:         req.AutoTweet,
		SegmentOptions:    req.SegmentOptions,
		SegmentOptionsAll: req.SegmentOptionsAll,
		SegmentConditions: req.SegmentConditions,
		TypeOpts:          req.TypeOpts,
		Entity:            req.Entity,
		Locked:            req.Locked,
		CreatedAt:         req.CreatedAt.Format(time.RFC3339),
	}
}

// EnqueueHandler handles POST /api/v1/queue.
func EnqueueHandler(svc *queue.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req enqueueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.ListID == "" {
			respondError(w, http.StatusBadRequest, "list_id is required")
			return
		}
		if req.TemplateID == 0 {
			respondError(w, http.StatusBadRequest, "template_id is required")
			return
		}

		created, err := svc.Enqueue(r.Context(), queue.EnqueueParams{
			CampaignType:       req.CampaignType,
			Contents:           req.Contents,
			List:               queue.ListID(req.ListID),
			Template:           queue.TemplateID(req.TemplateID),
			Subject:            req.Subject,
			FromEmail:          req.FromEmail,
			FromName:           req.FromName,
			ToEmail:            req.ToEmail,
			FolderID:           req.FolderID,
			TrackingOpens:      req.Tracking.Opens,
			TrackingHTMLClicks: req.Tracking.HTMLClicks,
			TrackingTextClicks: req.Tracking.TextClicks,
			Title:              req.Title,
			Authenticate:       req.Authenticate,
			GoogleAnalytics:    req.GoogleAnalytics,
			AutoFooter:         req.AutoFooter,
			GenerateText:       req.GenerateText,
			AutoTweet:          req.AutoTweet,
			SegmentOptions:     req.SegmentOptions,
			SegmentOptionsAll:  req.SegmentOptionsAll,
			SegmentConditions:  req.SegmentConditions,
			TypeOpts:           req.TypeOpts,
			Entity:             req.Entity,
		})
		if err != nil {
			if errors.Is(err, queue.ErrUnknownEntityKind) {
				respondError(w, http.StatusBadRequest, "unknown entity kind")
				return
			}
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		respondJSON(w, http.StatusCreated, toQueuedRequestResponse(created))
	}
}

// ListQueueHandler handles GET /api/v1/queue.
func ListQueueHandler(queries storage.Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requests, err := queries.ListQueuedRequests(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		out := make([]queuedRequestResponse, len(requests))
		for i, req := range requests {
			out[i] = toQueuedRequestResponse(req)
		}
		respondJSON(w, http.StatusOK, out)
	}
}

// dispatchRequest is the JSON body for a dispatch pass. Limit 0 means all.
type dispatchRequest struct {
	Limit int `json:"limit"`
}

// dispatchResult is one element of a dispatch response.
type dispatchResult struct {
	RequestID  int64  `json:"request_id"`
	CampaignID string `json:"campaign_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// dispatchResponse summarizes a dispatch pass.
type dispatchResponse struct {
	Attempted int              `json:"attempted"`
	Sent      int              `json:"sent"`
	Failed    int              `json:"failed"`
	Locked    int              `json:"locked"`
	Results   []dispatchResult `json:"results"`
}

// DispatchHandler handles POST /api/v1/queue/dispatch. It runs one pass
// over the unlocked requests and reports the per-request outcomes. A pass
// that dispatched a campaign but failed to record it responds 500 with the
// partial results.
func DispatchHandler(svc *queue.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dispatchRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "invalid request body")
				return
			}
		}
		if req.Limit < 0 {
			respondError(w, http.StatusBadRequest, "limit must not be negative")
			return
		}

		resp := dispatchResponse{Results: []dispatchResult{}}
		logFailed := false
		for result := range svc.DequeueAndSend(r.Context(), req.Limit) {
			resp.Attempted++
			dr := dispatchResult{RequestID: result.RequestID}
			switch {
			case result.Err == nil:
				resp.Sent++
				dr.CampaignID = result.Campaign.CampaignID
			case errors.Is(result.Err, queue.ErrRequestLocked):
				resp.Locked++
				dr.Error = result.Err.Error()
			default:
				resp.Failed++
				dr.Error = result.Err.Error()
				if errors.Is(result.Err, queue.ErrLogFailed) {
					logFailed = true
				}
			}
			resp.Results = append(resp.Results, dr)
		}

		status := http.StatusOK
		if logFailed {
			status = http.StatusInternalServerError
		}
		respondJSON(w, status, resp)
	}
}
