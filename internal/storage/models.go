package storage

import "time"

// SegmentCondition is a single list-segmentation condition evaluated by the
// remote campaign service.
type SegmentCondition struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value any    `json:"value"`
}

// EntityRef links a record to an originating domain object owned by the host
// application. Kind is a host-defined type tag; ID is opaque to this module.
type EntityRef struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// QueuedRequest is a pending campaign-send request. Structured fields are
// stored as JSONB and decoded on read.
type QueuedRequest struct {
	ID                 int64
	CampaignType       string
	Contents           map[string]string
	ListID             string
	TemplateID         int
	Subject            string
	FromEmail          string
	FromName           string
	ToEmail            string
	FolderID           *string
	TrackingOpens      bool
	TrackingHTMLClicks bool
	TrackingTextClicks bool
	Title              *string
	Authenticate       bool
	GoogleAnalytics    *string
	AutoFooter         bool
	GenerateText       bool
	AutoTweet          bool
	SegmentOptions     bool
	SegmentOptionsAll  bool
	SegmentConditions  []SegmentCondition
	TypeOpts           map[string]any
	Entity             *EntityRef
	Locked             bool
	CreatedAt          time.Time
}

// SentCampaign is the durable log of a successfully dispatched campaign.
type SentCampaign struct {
	ID         int64
	CampaignID string
	Content    string
	Name       string
	Entity     *EntityRef
	SentDate   time.Time
}

// Recipient snapshots one member of the remote list at dispatch time.
// Recipients belong to exactly one SentCampaign and are cascade-deleted
// with it.
type Recipient struct {
	ID             int64
	SentCampaignID int64
	Email          string
}
