package api

import (
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sungwon/campaign-queue/internal/chimp"
	"github.com/sungwon/campaign-queue/internal/storage"
)

// mockQuerier is an in-memory storage.Querier for handler tests.
type mockQuerier struct {
	nextReqID  int64
	nextCampID int64
	requests   map[int64]*storage.QueuedRequest
	campaigns  []storage.SentCampaign
	recipients map[int64][]storage.Recipient

	failList bool
}

func newMockQuerier() *mockQuerier {
	return &mockQuerier{
		requests:   make(map[int64]*storage.QueuedRequest),
		recipients: make(map[int64][]storage.Recipient),
	}
}

var _ storage.Querier = (*mockQuerier)(nil)

func (m *mockQuerier) CreateQueuedRequest(ctx context.Context, arg storage.CreateQueuedRequestParams) (storage.QueuedRequest, error) {
	m.nextReqID++
	req := storage.QueuedRequest{
		ID:                 m.nextReqID,
		CampaignType:       arg.CampaignType,
		Contents:           arg.Contents,
		ListID:             arg.ListID,
		TemplateID:         arg.TemplateID,
		Subject:            arg.Subject,
		FromEmail:          arg.FromEmail,
		FromName:           arg.FromName,
		ToEmail:            arg.ToEmail,
		FolderID:           arg.FolderID,
		TrackingOpens:      arg.TrackingOpens,
		TrackingHTMLClicks: arg.TrackingHTMLClicks,
		TrackingTextClicks: arg.TrackingTextClicks,
		Title:              arg.Title,
		Authenticate:       arg.Authenticate,
		GoogleAnalytics:    arg.GoogleAnalytics,
		AutoFooter:         arg.AutoFooter,
		GenerateText:       arg.GenerateText,
		AutoTweet:          arg.AutoTweet,
		SegmentOptions:     arg.SegmentOptions,
		SegmentOptionsAll:  arg.SegmentOptionsAll,
		SegmentConditions:  arg.SegmentConditions,
		TypeOpts:           arg.TypeOpts,
		Entity:             arg.Entity,
		CreatedAt:          time.Now(),
	}
	stored := req
	m.requests[req.ID] = &stored
	return req, nil
}

func (m *mockQuerier) GetQueuedRequest(ctx context.Context, id int64) (storage.QueuedRequest, error) {
	req, ok := m.requests[id]
	if !ok {
		return storage.QueuedRequest{}, pgx.ErrNoRows
	}
	return *req, nil
}

func (m *mockQuerier) ListUnlockedRequests(ctx context.Context, limit int32) ([]storage.QueuedRequest, error) {
	var out []storage.QueuedRequest
	for _, req := range m.requests {
		if !req.Locked {
			out = append(out, *req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && int(limit) < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockQuerier) ListQueuedRequests(ctx context.Context) ([]storage.QueuedRequest, error) {
	if m.failList {
		return nil, pgx.ErrTxClosed
	}
	var out []storage.QueuedRequest
	for _, req := range m.requests {
		out = append(out, *req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockQuerier) CountQueuedRequests(ctx context.Context) (int64, error) {
	return int64(len(m.requests)), nil
}

func (m *mockQuerier) AcquireRequestLock(ctx context.Context, id int64) (bool, error) {
	req, ok := m.requests[id]
	if !ok || req.Locked {
		return false, nil
	}
	req.Locked = true
	return true, nil
}

func (m *mockQuerier) ReleaseRequestLock(ctx context.Context, id int64) error {
	if req, ok := m.requests[id]; ok {
		req.Locked = false
	}
	return nil
}

func (m *mockQuerier) DeleteQueuedRequest(ctx context.Context, id int64) error {
	delete(m.requests, id)
	return nil
}

func (m *mockQuerier) CreateSentCampaign(ctx context.Context, arg storage.CreateSentCampaignParams) (storage.SentCampaign, error) {
	return m.insertCampaign(arg), nil
}

func (m *mockQuerier) RecordDispatched(ctx context.Context, arg storage.RecordDispatchedParams) (storage.SentCampaign, error) {
	delete(m.requests, arg.RequestID)
	return m.insertCampaign(arg.Campaign), nil
}

func (m *mockQuerier) insertCampaign(arg storage.CreateSentCampaignParams) storage.SentCampaign {
	m.nextCampID++
	campaign := storage.SentCampaign{
		ID:         m.nextCampID,
		CampaignID: arg.CampaignID,
		Content:    arg.Content,
		Name:       arg.Name,
		Entity:     arg.Entity,
		SentDate:   time.Now(),
	}
	m.campaigns = append(m.campaigns, campaign)
	for _, email := range arg.RecipientEmails {
		m.recipients[campaign.ID] = append(m.recipients[campaign.ID], storage.Recipient{
			SentCampaignID: campaign.ID,
			Email:          email,
		})
	}
	return campaign
}

func (m *mockQuerier) GetSentCampaignByCampaignID(ctx context.Context, campaignID string) (storage.SentCampaign, error) {
	for _, c := range m.campaigns {
		if c.CampaignID == campaignID {
			return c, nil
		}
	}
	return storage.SentCampaign{}, pgx.ErrNoRows
}

func (m *mockQuerier) ListSentCampaigns(ctx context.Context, limit, offset int32) ([]storage.SentCampaign, error) {
	out := append([]storage.SentCampaign(nil), m.campaigns...)
	if int(offset) >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && int(limit) < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockQuerier) ListRecipientsBySentCampaign(ctx context.Context, sentCampaignID int64) ([]storage.Recipient, error) {
	return append([]storage.Recipient(nil), m.recipients[sentCampaignID]...), nil
}

// mockConnection is a scripted chimp.Connection for handler tests.
type mockConnection struct {
	failSend  bool
	failFetch bool
}

var _ chimp.Connection = (*mockConnection)(nil)

func (m *mockConnection) GetTemplateByID(ctx context.Context, id int) (*chimp.Template, error) {
	return &chimp.Template{ID: id, Content: "<p>*|NAME|*</p>"}, nil
}

func (m *mockConnection) GetListByID(ctx context.Context, id string) (*chimp.List, error) {
	return &chimp.List{ID: id, Members: []chimp.Member{{Email: "a@example.com"}}}, nil
}

func (m *mockConnection) CreateCampaign(ctx context.Context, opts chimp.CampaignOpts) (*chimp.Campaign, error) {
	return &chimp.Campaign{ID: "MC123", Title: opts.Title, Content: opts.Content}, nil
}

func (m *mockConnection) GetCampaignByID(ctx context.Context, id string) (*chimp.Campaign, error) {
	if m.failFetch {
		return nil, &chimp.APIError{Operation: "fetch", StatusCode: 500, Message: "boom"}
	}
	return &chimp.Campaign{
		ID:      id,
		Title:   "Weekly",
		Content: "<p>built</p>",
		List:    &chimp.List{ID: "L1", Members: []chimp.Member{{Email: "a@example.com"}}},
	}, nil
}

func (m *mockConnection) SendCampaignNow(ctx context.Context, id string) error {
	if m.failSend {
		return &chimp.APIError{Operation: "send", StatusCode: 500, Message: "boom"}
	}
	return nil
}
