package storage

import "context"

// Querier is the storage interface consumed by the queue service and API
// handlers. *Queries implements it; tests substitute in-memory fakes.
type Querier interface {
	CreateQueuedRequest(ctx context.Context, arg CreateQueuedRequestParams) (QueuedRequest, error)
	GetQueuedRequest(ctx context.Context, id int64) (QueuedRequest, error)
	ListUnlockedRequests(ctx context.Context, limit int32) ([]QueuedRequest, error)
	ListQueuedRequests(ctx context.Context) ([]QueuedRequest, error)
	CountQueuedRequests(ctx context.Context) (int64, error)
	AcquireRequestLock(ctx context.Context, id int64) (bool, error)
	ReleaseRequestLock(ctx context.Context, id int64) error
	DeleteQueuedRequest(ctx context.Context, id int64) error
	CreateSentCampaign(ctx context.Context, arg CreateSentCampaignParams) (SentCampaign, error)
	RecordDispatched(ctx context.Context, arg RecordDispatchedParams) (SentCampaign, error)
	GetSentCampaignByCampaignID(ctx context.Context, campaignID string) (SentCampaign, error)
	ListSentCampaigns(ctx context.Context, limit, offset int32) ([]SentCampaign, error)
	ListRecipientsBySentCampaign(ctx context.Context, sentCampaignID int64) ([]Recipient, error)
}

var _ Querier = (*Queries)(nil)
