package chimp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/sungwon/campaign-queue/internal/metrics"
)

const (
	defaultEndpoint = "https://api.mailchimp.com"

	templatesPath = "/api/v1/templates/"
	listsPath     = "/api/v1/lists/"
	campaignsPath = "/api/v1/campaigns"
)

// Config carries connection settings for the campaign service.
type Config struct {
	Endpoint string
	APIKey   string
}

// Client implements Connection against the campaign service's REST API.
type Client struct {
	apiKey   string
	endpoint string
	client   HTTPClient
}

// NewClient creates a Client from the given configuration.
func NewClient(cfg Config, client HTTPClient) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		client:   client,
	}
}

var _ Connection = (*Client)(nil)

// GetTemplateByID fetches a template by its numeric identifier.
func (c *Client) GetTemplateByID(ctx context.Context, id int) (*Template, error) {
	var tpl Template
	if err := c.do(ctx, "template", "GET", templatesPath+strconv.Itoa(id), nil, &tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// GetListByID fetches a subscriber list, including its members.
func (c *Client) GetListByID(ctx context.Context, id string) (*List, error) {
	var list List
	if err := c.do(ctx, "list", "GET", listsPath+id, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// CreateCampaign creates a draft campaign from the given options.
func (c *Client) CreateCampaign(ctx context.Context, opts CampaignOpts) (*Campaign, error) {
	var camp Campaign
	if err := c.do(ctx, "create", "POST", campaignsPath, buildCreatePayload(opts), &camp); err != nil {
		return nil, err
	}
	return &camp, nil
}

// GetCampaignByID fetches an existing campaign with its list embedded.
func (c *Client) GetCampaignByID(ctx context.Context, id string) (*Campaign, error) {
	var camp Campaign
	if err := c.do(ctx, "fetch", "GET", campaignsPath+"/"+id, nil, &camp); err != nil {
		return nil, err
	}
	return &camp, nil
}

// SendCampaignNow queues the campaign for immediate asynchronous delivery.
// The service acknowledges the request before delivery completes.
func (c *Client) SendCampaignNow(ctx context.Context, id string) error {
	return c.do(ctx, "send", "POST", campaignsPath+"/"+id+"/actions/send", nil, nil)
}

// do executes one API call: marshals payload, sets auth headers, and
// unmarshals a 2xx response body into out when out is non-nil.
func (c *Client) do(ctx context.Context, operation, method, path string, payload, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("chimp: marshal %s request: %w", operation, err)
		}
	}

	resp, err := c.client.Do(&HTTPRequest{
		Method: method,
		URL:    c.endpoint + path,
		Headers: map[string]string{
			"Authorization": "Bearer " + c.apiKey,
			"Content-Type":  "application/json",
		},
		Body: body,
	})
	if err != nil {
		metrics.ChimpRequestsTotal.WithLabelValues(operation, "error").Inc()
		return fmt.Errorf("chimp: %s request: %w", operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.ChimpRequestsTotal.WithLabelValues(operation, "error").Inc()
		return newAPIError(operation, resp.StatusCode, resp.Body)
	}

	metrics.ChimpRequestsTotal.WithLabelValues(operation, "ok").Inc()

	if out != nil {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return fmt.Errorf("chimp: decode %s response: %w", operation, err)
		}
	}
	return nil
}

// createCampaignPayload matches the campaign-service create schema.
type createCampaignPayload struct {
	Type         string            `json:"type"`
	ListID       string            `json:"list_id"`
	Content      string            `json:"content"`
	Subject      string            `json:"subject"`
	FromEmail    string            `json:"from_email"`
	FromName     string            `json:"from_name"`
	ToEmail      string            `json:"to_email"`
	FolderID     string            `json:"folder_id,omitempty"`
	Tracking     TrackingOpts      `json:"tracking"`
	Title        string            `json:"title"`
	Authenticate bool              `json:"authenticate"`
	Analytics    map[string]string `json:"analytics,omitempty"`
	AutoFooter   bool              `json:"auto_footer"`
	GenerateText bool              `json:"generate_text"`
	AutoTweet    bool              `json:"auto_tweet"`
	SegmentOpts  *SegmentOpts      `json:"segment_opts,omitempty"`
	TypeOpts     map[string]any    `json:"type_opts,omitempty"`
}

func buildCreatePayload(opts CampaignOpts) createCampaignPayload {
	return createCampaignPayload{
		Type:         opts.Type,
		ListID:       opts.ListID,
		Content:      opts.Content,
		Subject:      opts.Subject,
		FromEmail:    opts.FromEmail,
		FromName:     opts.FromName,
		ToEmail:      opts.ToEmail,
		FolderID:     opts.FolderID,
		Tracking:     opts.Tracking,
		Title:        opts.Title,
		Authenticate: opts.Authenticate,
		Analytics:    opts.Analytics,
		AutoFooter:   opts.AutoFooter,
		GenerateText: opts.GenerateText,
		AutoTweet:    opts.AutoTweet,
		SegmentOpts:  opts.SegmentOpts,
		TypeOpts:     opts.TypeOpts,
	}
}
