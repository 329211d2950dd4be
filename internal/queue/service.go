// Package queue implements the campaign-send queue: enqueueing requests,
// the locked-dispatch state machine, and the sent-campaign log.
package queue

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/rs/zerolog"

	"github.com/sungwon/campaign-queue/internal/chimp"
	"github.com/sungwon/campaign-queue/internal/metrics"
	"github.com/sungwon/campaign-queue/internal/storage"
)

// Service coordinates the queue lifecycle against the store and the remote
// campaign service.
type Service struct {
	store storage.Querier
	conn  chimp.Connection
	kinds map[string]struct{}
	log   zerolog.Logger
}

// New creates a Service. entityKinds is the registry of linkable entity
// kinds the host application accepts; an empty registry disables entity
// validation entirely.
func New(store storage.Querier, conn chimp.Connection, entityKinds []string, log zerolog.Logger) *Service {
	var kinds map[string]struct{}
	if len(entityKinds) > 0 {
		kinds = make(map[string]struct{}, len(entityKinds))
		for _, k := range entityKinds {
			kinds[k] = struct{}{}
		}
	}
	return &Service{
		store: store,
		conn:  conn,
		kinds: kinds,
		log:   log,
	}
}

// EnqueueParams carries everything needed to persist a campaign-send
// request. List and Template accept raw identifiers (ListID, TemplateID)
// or fetched chimp handles.
type EnqueueParams struct {
	CampaignType string
	Contents     map[string]string
	List         ListRef
	Template     TemplateRef
	Subject      string
	FromEmail    string
	FromName     string
	ToEmail      string
	FolderID     *string

	TrackingOpens      bool
	TrackingHTMLClicks bool
	TrackingTextClicks bool

	Title           *string
	Authenticate    bool
	GoogleAnalytics *string
	AutoFooter      bool
	GenerateText    bool
	AutoTweet       bool

	SegmentOptions    bool
	SegmentOptionsAll bool
	SegmentConditions []storage.SegmentCondition

	TypeOpts map[string]any

	Entity *storage.EntityRef
}

// Enqueue normalizes the parameters and persists a new request with
// locked=false. Parameter correctness beyond basic shape is left to the
// remote service at dispatch time.
func (s *Service) Enqueue(ctx context.Context, p EnqueueParams) (storage.QueuedRequest, error) {
	if p.List == nil {
		return storage.QueuedRequest{}, errors.New("enqueue: list reference is required")
	}
	if p.Template == nil {
		return storage.QueuedRequest{}, errors.New("enqueue: template reference is required")
	}
	if err := s.checkEntityKind(p.Entity); err != nil {
		return storage.QueuedRequest{}, fmt.Errorf("enqueue: %w", err)
	}

	req, err := s.store.CreateQueuedRequest(ctx, storage.CreateQueuedRequestParams{
		CampaignType:       p.CampaignType,
		Contents:           p.Contents,
		ListID:             p.List.ListID(),
		TemplateID:         p.Template.TemplateID(),
		Subject:            p.Subject,
		FromEmail:          p.FromEmail,
		FromName:           p.FromName,
		ToEmail:            p.ToEmail,
		FolderID:           p.FolderID,
		TrackingOpens:      p.TrackingOpens,
		TrackingHTMLClicks: p.TrackingHTMLClicks,
		TrackingTextClicks: p.TrackingTextClicks,
		Title:              p.Title,
		Authenticate:       p.Authenticate,
		GoogleAnalytics:    p.GoogleAnalytics,
		AutoFooter:         p.AutoFooter,
		GenerateText:       p.GenerateText,
		AutoTweet:          p.AutoTweet,
		SegmentOptions:     p.SegmentOptions,
		SegmentOptionsAll:  p.SegmentOptionsAll,
		SegmentConditions:  p.SegmentConditions,
		TypeOpts:           p.TypeOpts,
		Entity:             p.Entity,
	})
	if err != nil {
		return storage.QueuedRequest{}, fmt.Errorf("enqueue: %w", err)
	}

	metrics.QueueEnqueuedTotal.Inc()
	s.refreshDepth(ctx)

	s.log.Debug().
		Int64("request_id", req.ID).
		Str("campaign_type", req.CampaignType).
		Str("list_id", req.ListID).
		Msg("campaign request enqueued")

	return req, nil
}

// SendResult is the outcome of one dispatch attempt. Exactly one of
// Campaign and Err is set.
type SendResult struct {
	RequestID int64
	Campaign  *storage.SentCampaign
	Err       error
}

// DequeueAndSend selects up to limit unlocked requests in insertion order
// (all of them when limit <= 0) and returns a lazy sequence that dispatches
// one request per element. Each element's side effects complete before the
// next request is touched. A result carrying ErrLogFailed ends the
// sequence: the affected request is left locked and the remaining requests
// stay queued for a later pass.
func (s *Service) DequeueAndSend(ctx context.Context, limit int) iter.Seq[SendResult] {
	return func(yield func(SendResult) bool) {
		requests, err := s.store.ListUnlockedRequests(ctx, int32(limit))
		if err != nil {
			yield(SendResult{Err: fmt.Errorf("list unlocked requests: %w", err)})
			return
		}

		for _, req := range requests {
			result := s.Send(ctx, req)
			if !yield(result) {
				return
			}
			if errors.Is(result.Err, ErrLogFailed) {
				return
			}
		}

		s.refreshDepth(ctx)
	}
}

// Send runs the dispatch state machine for a single request: acquire the
// lock, dispatch remotely, and on success replace the request with a
// sent-campaign record. On dispatch failure the lock is released and the
// request stays queued.
func (s *Service) Send(ctx context.Context, req storage.QueuedRequest) SendResult {
	start := time.Now()
	result := s.send(ctx, req)
	metrics.QueueDispatchDuration.Observe(time.Since(start).Seconds())

	switch {
	case result.Err == nil:
		metrics.QueueDispatchTotal.WithLabelValues("sent").Inc()
	case errors.Is(result.Err, ErrRequestLocked):
		metrics.QueueDispatchTotal.WithLabelValues("locked").Inc()
	default:
		metrics.QueueDispatchTotal.WithLabelValues("failed").Inc()
	}
	return result
}

func (s *Service) send(ctx context.Context, req storage.QueuedRequest) SendResult {
	result := SendResult{RequestID: req.ID}

	acquired, err := s.store.AcquireRequestLock(ctx, req.ID)
	if err != nil {
		result.Err = fmt.Errorf("acquire lock for request %d: %w", req.ID, err)
		return result
	}
	if !acquired {
		s.log.Debug().Int64("request_id", req.ID).Msg("request already locked, skipping")
		result.Err = ErrRequestLocked
		return result
	}

	campaignID, err := s.dispatch(ctx, req)
	if err != nil {
		if relErr := s.store.ReleaseRequestLock(ctx, req.ID); relErr != nil {
			s.log.Error().Err(relErr).Int64("request_id", req.ID).Msg("failed to release lock after dispatch failure")
		}
		s.log.Warn().Err(err).Int64("request_id", req.ID).Msg("dispatch failed, request returned to queue")
		result.Err = fmt.Errorf("%w: %v", ErrSendFailed, err)
		return result
	}

	campaign, err := s.recordDispatched(ctx, req, campaignID)
	if err != nil {
		// The remote send already happened. The request stays locked so
		// no later pass dispatches it again.
		s.log.Error().Err(err).
			Int64("request_id", req.ID).
			Str("campaign_id", campaignID).
			Msg("campaign dispatched but recording failed, request left locked")
		result.Err = fmt.Errorf("%w: %v", ErrLogFailed, err)
		return result
	}

	s.log.Info().
		Int64("request_id", req.ID).
		Str("campaign_id", campaign.CampaignID).
		Str("name", campaign.Name).
		Msg("campaign dispatched")

	result.Campaign = &campaign
	return result
}

// dispatch performs the remote half of a send: template build, campaign
// creation, and the asynchronous send-now call. Returns the remote
// campaign ID.
func (s *Service) dispatch(ctx context.Context, req storage.QueuedRequest) (string, error) {
	tpl, err := s.conn.GetTemplateByID(ctx, req.TemplateID)
	if err != nil {
		return "", fmt.Errorf("get template %d: %w", req.TemplateID, err)
	}

	built, err := tpl.Build(req.Contents)
	if err != nil {
		return "", fmt.Errorf("build template %d: %w", req.TemplateID, err)
	}

	list, err := s.conn.GetListByID(ctx, req.ListID)
	if err != nil {
		return "", fmt.Errorf("get list %s: %w", req.ListID, err)
	}

	camp, err := s.conn.CreateCampaign(ctx, buildCampaignOpts(req, built, list.ID))
	if err != nil {
		return "", fmt.Errorf("create campaign: %w", err)
	}

	if err := s.conn.SendCampaignNow(ctx, camp.ID); err != nil {
		return "", fmt.Errorf("send campaign %s: %w", camp.ID, err)
	}

	return camp.ID, nil
}

// recordDispatched fetches the dispatched campaign and atomically replaces
// the queued request with a sent-campaign record plus its recipient
// snapshot.
func (s *Service) recordDispatched(ctx context.Context, req storage.QueuedRequest, campaignID string) (storage.SentCampaign, error) {
	camp, err := s.conn.GetCampaignByID(ctx, campaignID)
	if err != nil {
		return storage.SentCampaign{}, fmt.Errorf("get campaign %s: %w", campaignID, err)
	}

	campaign, err := s.store.RecordDispatched(ctx, storage.RecordDispatchedParams{
		RequestID: req.ID,
		Campaign: storage.CreateSentCampaignParams{
			CampaignID:      camp.ID,
			Content:         camp.Content,
			Name:            camp.Title,
			Entity:          req.Entity,
			RecipientEmails: memberEmails(camp.List),
		},
	})
	if err != nil {
		return storage.SentCampaign{}, fmt.Errorf("record dispatched campaign %s: %w", campaignID, err)
	}
	return campaign, nil
}

// LogSentCampaign records a campaign that was dispatched outside the queue:
// it fetches the remote campaign by ID and creates the sent-campaign record
// with its recipient snapshot.
func (s *Service) LogSentCampaign(ctx context.Context, campaignID string, entity *storage.EntityRef) (storage.SentCampaign, error) {
	if err := s.checkEntityKind(entity); err != nil {
		return storage.SentCampaign{}, fmt.Errorf("log campaign %s: %w", campaignID, err)
	}

	camp, err := s.conn.GetCampaignByID(ctx, campaignID)
	if err != nil {
		return storage.SentCampaign{}, fmt.Errorf("get campaign %s: %w", campaignID, err)
	}

	campaign, err := s.store.CreateSentCampaign(ctx, storage.CreateSentCampaignParams{
		CampaignID:      camp.ID,
		Content:         camp.Content,
		Name:            camp.Title,
		Entity:          entity,
		RecipientEmails: memberEmails(camp.List),
	})
	if err != nil {
		return storage.SentCampaign{}, fmt.Errorf("log campaign %s: %w", campaignID, err)
	}
	return campaign, nil
}

func (s *Service) checkEntityKind(entity *storage.EntityRef) error {
	if entity == nil || s.kinds == nil {
		return nil
	}
	if _, ok := s.kinds[entity.Kind]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEntityKind, entity.Kind)
	}
	return nil
}

// refreshDepth updates the queue depth gauge, best effort.
func (s *Service) refreshDepth(ctx context.Context) {
	count, err := s.store.CountQueuedRequests(ctx)
	if err != nil {
		return
	}
	metrics.QueueDepth.Set(float64(count))
}

// buildCampaignOpts assembles the remote create call from a stored request.
// Title falls back to the subject when unset. Segmentation options are
// always sent, independent of the SegmentOptions flag.
func buildCampaignOpts(req storage.QueuedRequest, builtContent, listID string) chimp.CampaignOpts {
	title := req.Subject
	if req.Title != nil && *req.Title != "" {
		title = *req.Title
	}

	var analytics map[string]string
	if req.GoogleAnalytics != nil && *req.GoogleAnalytics != "" {
		analytics = map[string]string{"google": *req.GoogleAnalytics}
	}

	var folderID string
	if req.FolderID != nil {
		folderID = *req.FolderID
	}

	match := "any"
	if req.SegmentOptionsAll {
		match = "all"
	}
	conditions := make([]chimp.SegmentCondition, len(req.SegmentConditions))
	for i, c := range req.SegmentConditions {
		conditions[i] = chimp.SegmentCondition{Field: c.Field, Op: c.Op, Value: c.Value}
	}

	return chimp.CampaignOpts{
		Type:      req.CampaignType,
		ListID:    listID,
		Content:   builtContent,
		Subject:   req.Subject,
		FromEmail: req.FromEmail,
		FromName:  req.FromName,
		ToEmail:   req.ToEmail,
		FolderID:  folderID,
		Tracking: chimp.TrackingOpts{
			Opens:      req.TrackingOpens,
			HTMLClicks: req.TrackingHTMLClicks,
			TextClicks: req.TrackingTextClicks,
		},
		Title:        title,
		Authenticate: req.Authenticate,
		Analytics:    analytics,
		AutoFooter:   req.AutoFooter,
		GenerateText: req.GenerateText,
		AutoTweet:    req.AutoTweet,
		SegmentOpts: &chimp.SegmentOpts{
			Match:      match,
			Conditions: conditions,
		},
		TypeOpts: req.TypeOpts,
	}
}

func memberEmails(list *chimp.List) []string {
	if list == nil {
		return nil
	}
	emails := make([]string, len(list.Members))
	for i, m := range list.Members {
		emails[i] = m.Email
	}
	return emails
}
