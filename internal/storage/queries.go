package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgxpool.Pool and pgx.Tx used by Queries.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Queries runs SQL against a DBTX.
type Queries struct {
	db DBTX
}

// New creates a Queries instance over the given pool or transaction.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

const queuedRequestColumns = `id, campaign_type, contents, list_id, template_id, subject,
	from_email, from_name, to_email, folder_id,
	tracking_opens, tracking_html_clicks, tracking_text_clicks,
	title, authenticate, google_analytics,
	auto_footer, generate_text, auto_tweet,
	segment_options, segment_options_all, segment_conditions, type_opts,
	entity_kind, entity_id, locked, created_at`

// CreateQueuedRequestParams holds all fields needed to persist a queued
// campaign request. Structured fields are encoded to JSONB on insert.
type CreateQueuedRequestParams struct {
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
}

// CreateQueuedRequest inserts a new queued request with locked=false and
// returns the stored row.
func (q *Queries) CreateQueuedRequest(ctx context.Context, arg CreateQueuedRequestParams) (QueuedRequest, error) {
	contents, conditions, typeOpts, err := encodeStructured(arg.Contents, arg.SegmentConditions, arg.TypeOpts)
	if err != nil {
		return QueuedRequest{}, err
	}

	var entityKind, entityID *string
	if arg.Entity != nil {
		entityKind = &arg.Entity.Kind
		entityID = &arg.Entity.ID
	}

	row := q.db.QueryRow(ctx, `
		INSERT INTO queued_requests (
			campaign_type, contents, list_id, template_id, subject,
			from_email, from_name, to_email, folder_id,
			tracking_opens, tracking_html_clicks, tracking_text_clicks,
			title, authenticate, google_analytics,
			auto_footer, generate_text, auto_tweet,
			segment_options, segment_options_all, segment_conditions, type_opts,
			entity_kind, entity_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24
		)
		RETURNING `+queuedRequestColumns,
		arg.CampaignType, contents, arg.ListID, arg.TemplateID, arg.Subject,
		arg.FromEmail, arg.FromName, arg.ToEmail, arg.FolderID,
		arg.TrackingOpens, arg.TrackingHTMLClicks, arg.TrackingTextClicks,
		arg.Title, arg.Authenticate, arg.GoogleAnalytics,
		arg.AutoFooter, arg.GenerateText, arg.AutoTweet,
		arg.SegmentOptions, arg.SegmentOptionsAll, conditions, typeOpts,
		entityKind, entityID,
	)

	return scanQueuedRequest(row)
}

// GetQueuedRequest fetches a single queued request by ID.
func (q *Queries) GetQueuedRequest(ctx context.Context, id int64) (QueuedRequest, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+queuedRequestColumns+`
		FROM queued_requests
		WHERE id = $1`, id)
	return scanQueuedRequest(row)
}

// ListUnlockedRequests returns requests with locked=false in insertion
// order. A limit of zero returns all unlocked requests.
func (q *Queries) ListUnlockedRequests(ctx context.Context, limit int32) ([]QueuedRequest, error) {
	sql := `
		SELECT ` + queuedRequestColumns + `
		FROM queued_requests
		WHERE NOT locked
		ORDER BY id`
	var (
		rows pgx.Rows
		err  error
	)
	if limit > 0 {
		rows, err = q.db.Query(ctx, sql+` LIMIT $1`, limit)
	} else {
		rows, err = q.db.Query(ctx, sql)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectQueuedRequests(rows)
}

// ListQueuedRequests returns all queued requests, locked or not, in
// insertion order.
func (q *Queries) ListQueuedRequests(ctx context.Context) ([]QueuedRequest, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+queuedRequestColumns+`
		FROM queued_requests
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectQueuedRequests(rows)
}

// CountQueuedRequests returns the total number of queued requests.
func (q *Queries) CountQueuedRequests(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM queued_requests`).Scan(&count)
	return count, err
}

// AcquireRequestLock atomically sets locked=true on the given request if it
// is not already locked. Returns true when the lock was acquired by this
// call. The conditional update removes the check-then-set race between
// concurrent dispatchers.
func (q *Queries) AcquireRequestLock(ctx context.Context, id int64) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE queued_requests
		SET locked = TRUE
		WHERE id = $1 AND NOT locked`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseRequestLock sets locked=false on the given request.
func (q *Queries) ReleaseRequestLock(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, `
		UPDATE queued_requests
		SET locked = FALSE
		WHERE id = $1`, id)
	return err
}

// DeleteQueuedRequest removes a queued request.
func (q *Queries) DeleteQueuedRequest(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, `DELETE FROM queued_requests WHERE id = $1`, id)
	return err
}

// CreateSentCampaignParams holds the fields for a new sent-campaign log
// entry plus the recipient snapshot to store with it.
type CreateSentCampaignParams struct {
	CampaignID      string
	Content         string
	Name            string
	Entity          *EntityRef
	RecipientEmails []string
}

// CreateSentCampaign inserts a sent-campaign record and its recipient
// snapshot in a single transaction.
func (q *Queries) CreateSentCampaign(ctx context.Context, arg CreateSentCampaignParams) (SentCampaign, error) {
	tx, err := q.db.Begin(ctx)
	if err != nil {
		return SentCampaign{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	campaign, err := insertSentCampaign(ctx, tx, arg)
	if err != nil {
		return SentCampaign{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return SentCampaign{}, fmt.Errorf("commit: %w", err)
	}
	return campaign, nil
}

// RecordDispatchedParams pairs the queued request being resolved with the
// sent-campaign log entry replacing it.
type RecordDispatchedParams struct {
	RequestID int64
	Campaign  CreateSentCampaignParams
}

// RecordDispatched deletes the queued request and creates the sent-campaign
// log entry with its recipients, all in one transaction. Either both effects
// are applied or neither is.
func (q *Queries) RecordDispatched(ctx context.Context, arg RecordDispatchedParams) (SentCampaign, error) {
	tx, err := q.db.Begin(ctx)
	if err != nil {
		return SentCampaign{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM queued_requests WHERE id = $1`, arg.RequestID); err != nil {
		return SentCampaign{}, fmt.Errorf("delete queued request %d: %w", arg.RequestID, err)
	}

	campaign, err := insertSentCampaign(ctx, tx, arg.Campaign)
	if err != nil {
		return SentCampaign{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return SentCampaign{}, fmt.Errorf("commit: %w", err)
	}
	return campaign, nil
}

// GetSentCampaignByCampaignID fetches a sent-campaign entry by its remote
// campaign ID.
func (q *Queries) GetSentCampaignByCampaignID(ctx context.Context, campaignID string) (SentCampaign, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, campaign_id, content, name, entity_kind, entity_id, sent_date
		FROM sent_campaigns
		WHERE campaign_id = $1`, campaignID)
	return scanSentCampaign(row)
}

// ListSentCampaigns returns sent campaigns newest first.
func (q *Queries) ListSentCampaigns(ctx context.Context, limit, offset int32) ([]SentCampaign, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := q.db.Query(ctx, `
		SELECT id, campaign_id, content, name, entity_kind, entity_id, sent_date
		FROM sent_campaigns
		ORDER BY sent_date DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []SentCampaign
	for rows.Next() {
		c, err := scanSentCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// ListRecipientsBySentCampaign returns the recipient snapshot of a sent
// campaign in insertion order.
func (q *Queries) ListRecipientsBySentCampaign(ctx context.Context, sentCampaignID int64) ([]Recipient, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, sent_campaign_id, email
		FROM recipients
		WHERE sent_campaign_id = $1
		ORDER BY id`, sentCampaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipients []Recipient
	for rows.Next() {
		var r Recipient
		if err := rows.Scan(&r.ID, &r.SentCampaignID, &r.Email); err != nil {
			return nil, err
		}
		recipients = append(recipients, r)
	}
	return recipients, rows.Err()
}

// insertSentCampaign inserts the sent-campaign row and bulk-copies its
// recipients within the caller's transaction.
func insertSentCampaign(ctx context.Context, tx pgx.Tx, arg CreateSentCampaignParams) (SentCampaign, error) {
	var entityKind, entityID *string
	if arg.Entity != nil {
		entityKind = &arg.Entity.Kind
		entityID = &arg.Entity.ID
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO sent_campaigns (campaign_id, content, name, entity_kind, entity_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, campaign_id, content, name, entity_kind, entity_id, sent_date`,
		arg.CampaignID, arg.Content, arg.Name, entityKind, entityID,
	)
	campaign, err := scanSentCampaign(row)
	if err != nil {
		return SentCampaign{}, fmt.Errorf("insert sent campaign %s: %w", arg.CampaignID, err)
	}

	if len(arg.RecipientEmails) > 0 {
		copied, err := tx.CopyFrom(ctx,
			pgx.Identifier{"recipients"},
			[]string{"sent_campaign_id", "email"},
			pgx.CopyFromSlice(len(arg.RecipientEmails), func(i int) ([]any, error) {
				return []any{campaign.ID, arg.RecipientEmails[i]}, nil
			}),
		)
		if err != nil {
			return SentCampaign{}, fmt.Errorf("copy recipients for %s: %w", arg.CampaignID, err)
		}
		if copied != int64(len(arg.RecipientEmails)) {
			return SentCampaign{}, fmt.Errorf("copy recipients for %s: copied %d of %d rows",
				arg.CampaignID, copied, len(arg.RecipientEmails))
		}
	}

	return campaign, nil
}

func encodeStructured(contents map[string]string, conditions []SegmentCondition, typeOpts map[string]any) ([]byte, []byte, []byte, error) {
	if contents == nil {
		contents = map[string]string{}
	}
	if conditions == nil {
		conditions = []SegmentCondition{}
	}
	if typeOpts == nil {
		typeOpts = map[string]any{}
	}

	contentsJSON, err := json.Marshal(contents)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encode contents: %w", err)
	}
	conditionsJSON, err := json.Marshal(conditions)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encode segment conditions: %w", err)
	}
	typeOptsJSON, err := json.Marshal(typeOpts)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encode type opts: %w", err)
	}
	return contentsJSON, conditionsJSON, typeOptsJSON, nil
}

func scanQueuedRequest(row pgx.Row) (QueuedRequest, error) {
	var (
		r                              QueuedRequest
		contents, conditions, typeOpts []byte
		entityKind, entityID           *string
	)

	err := row.Scan(
		&r.ID, &r.CampaignType, &contents, &r.ListID, &r.TemplateID, &r.Subject,
		&r.FromEmail, &r.FromName, &r.ToEmail, &r.FolderID,
		&r.TrackingOpens, &r.TrackingHTMLClicks, &r.TrackingTextClicks,
		&r.Title, &r.Authenticate, &r.GoogleAnalytics,
		&r.AutoFooter, &r.GenerateText, &r.AutoTweet,
		&r.SegmentOptions, &r.SegmentOptionsAll, &conditions, &typeOpts,
		&entityKind, &entityID, &r.Locked, &r.CreatedAt,
	)
	if err != nil {
		return QueuedRequest{}, err
	}

	if err := json.Unmarshal(contents, &r.Contents); err != nil {
		return QueuedRequest{}, fmt.Errorf("decode contents: %w", err)
	}
	if err := json.Unmarshal(conditions, &r.SegmentConditions); err != nil {
		return QueuedRequest{}, fmt.Errorf("decode segment conditions: %w", err)
	}
	if err := json.Unmarshal(typeOpts, &r.TypeOpts); err != nil {
		return QueuedRequest{}, fmt.Errorf("decode type opts: %w", err)
	}
	if entityKind != nil && entityID != nil {
		r.Entity = &EntityRef{Kind: *entityKind, ID: *entityID}
	}

	return r, nil
}

func collectQueuedRequests(rows pgx.Rows) ([]QueuedRequest, error) {
	var requests []QueuedRequest
	for rows.Next() {
		r, err := scanQueuedRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

func scanSentCampaign(row pgx.Row) (SentCampaign, error) {
	var (
		c                    SentCampaign
		entityKind, entityID *string
	)
	err := row.Scan(&c.ID, &c.CampaignID, &c.Content, &c.Name, &entityKind, &entityID, &c.SentDate)
	if err != nil {
		return SentCampaign{}, err
	}
	if entityKind != nil && entityID != nil {
		c.Entity = &EntityRef{Kind: *entityKind, ID: *entityID}
	}
	return c, nil
}
