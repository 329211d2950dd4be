// Package chimp talks to the remote campaign service: template and list
// lookups, campaign creation, and asynchronous dispatch. The queue core
// consumes the Connection interface so tests can substitute fakes.
package chimp

import "context"

// Connection is the remote campaign-service capability used by the queue.
type Connection interface {
	// GetTemplateByID fetches a template handle by its numeric identifier.
	GetTemplateByID(ctx context.Context, id int) (*Template, error)
	// GetListByID fetches a subscriber list, including its members.
	GetListByID(ctx context.Context, id string) (*List, error)
	// CreateCampaign creates a draft campaign and returns its handle.
	CreateCampaign(ctx context.Context, opts CampaignOpts) (*Campaign, error)
	// GetCampaignByID fetches an existing campaign with its list embedded.
	GetCampaignByID(ctx context.Context, id string) (*Campaign, error)
	// SendCampaignNow queues the campaign for immediate asynchronous delivery.
	SendCampaignNow(ctx context.Context, id string) error
}

// HTTPClient abstracts HTTP operations for testability.
type HTTPClient interface {
	Do(req *HTTPRequest) (*HTTPResponse, error)
}

// HTTPRequest represents an outgoing HTTP request.
type HTTPRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// HTTPResponse represents an HTTP response from the campaign service.
type HTTPResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// Template is a reusable campaign body with named substitution slots.
type Template struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// TemplateID lets a fetched template handle stand in wherever a raw
// template identifier is accepted.
func (t *Template) TemplateID() int { return t.ID }

// List is a subscriber list on the campaign service.
type List struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Members []Member `json:"members"`
}

// ListID lets a fetched list handle stand in wherever a raw list
// identifier is accepted.
func (l *List) ListID() string { return l.ID }

// Member is a single list subscriber.
type Member struct {
	Email string `json:"email"`
}

// Campaign is a campaign handle returned by the service. List is populated
// on fetch-by-ID, nil on create.
type Campaign struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	List    *List  `json:"list,omitempty"`
}

// TrackingOpts selects which engagement events the service records.
type TrackingOpts struct {
	Opens      bool `json:"opens"`
	HTMLClicks bool `json:"html_clicks"`
	TextClicks bool `json:"text_clicks"`
}

// SegmentCondition is a single list-segmentation rule.
type SegmentCondition struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value any    `json:"value"`
}

// SegmentOpts restricts a campaign to a subset of the list. Match is
// "all" or "any".
type SegmentOpts struct {
	Match      string             `json:"match"`
	Conditions []SegmentCondition `json:"conditions"`
}

// CampaignOpts carries everything needed to create a draft campaign.
type CampaignOpts struct {
	Type         string
	ListID       string
	Content      string
	Subject      string
	FromEmail    string
	FromName     string
	ToEmail      string
	FolderID     string
	Tracking     TrackingOpts
	Title        string
	Authenticate bool
	Analytics    map[string]string
	AutoFooter   bool
	GenerateText bool
	AutoTweet    bool
	SegmentOpts  *SegmentOpts
	TypeOpts     map[string]any
}
