// Package migrate consolidates legacy one-record-per-reminder endpoint data
// into the current one-record-per-subscriber layout, rebuilds reminder
// campaigns, and cleans up finished campaigns.
package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"seminar-notifier/pinpoint"
	"seminar-notifier/pkg/seminar"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultPollCeiling  = 2 * time.Minute

	legacyItemNameAttribute = "ItemName"
	legacyDateTimeAttribute = "DateTime"
)

// API is the slice of the messaging service the migrator needs.
type API interface {
	CreateExportJob(ctx context.Context, destinationURLPrefix, roleArn string) (string, error)
	ExportJob(ctx context.Context, jobID string) (*pinpoint.ExportJobResponse, error)
	UpdateEndpoint(ctx context.Context, endpointID string, req *pinpoint.EndpointRequest) error
	DeleteEndpoint(ctx context.Context, endpointID string) error
	Campaigns(ctx context.Context, pageToken string) (*pinpoint.CampaignsResponse, error)
	DeleteCampaign(ctx context.Context, campaignID string) error
	DeleteSegment(ctx context.Context, segmentID string) error
}

// Scheduler creates reminder campaigns for a token.
type Scheduler interface {
	ScheduleReminders(ctx context.Context, token, itemName string, target time.Time) error
}

// Migrator drives the export, reconcile and cleanup flows.
type Migrator struct {
	api       API
	store     ObjectStore
	scheduler Scheduler
	clk       clock.Clock
	logger    *slog.Logger
	bucket    string
	roleArn   string

	pollInterval time.Duration
	pollCeiling  time.Duration
}

// New creates a migrator exporting through the given bucket.
func New(api API, store ObjectStore, scheduler Scheduler, clk clock.Clock, logger *slog.Logger, bucket, roleArn string) *Migrator {
	return &Migrator{
		api:          api,
		store:        store,
		scheduler:    scheduler,
		clk:          clk,
		logger:       logger,
		bucket:       bucket,
		roleArn:      roleArn,
		pollInterval: defaultPollInterval,
		pollCeiling:  defaultPollCeiling,
	}
}

// Run performs a full migration: drop all existing campaigns and their
// segments, export every endpoint record, write one consolidated record per
// subscriber with rebuilt campaigns, then delete the superseded legacy
// records.
func (m *Migrator) Run(ctx context.Context) error {
	if err := m.deleteAllCampaigns(ctx); err != nil {
		return err
	}
	endpoints, err := m.Export(ctx)
	if err != nil {
		return err
	}
	if err := m.Reconcile(ctx, endpoints); err != nil {
		return err
	}
	return m.DeleteSuperseded(ctx, endpoints)
}

// Reconcile groups the exported records by phone number and writes one
// consolidated endpoint per subscriber. Legacy per-reminder records (ItemName
// plus optional DateTime attributes) and already-consolidated records are
// merged as a set union over tokens, then pruned. Addresses whose merged set
// is empty are skipped. Running it again over its own output is a no-op
// rewrite.
func (m *Migrator) Reconcile(ctx context.Context, endpoints []pinpoint.EndpointResponse) error {
	byAddress := make(map[string][]pinpoint.EndpointResponse)
	for _, ep := range endpoints {
		if ep.Address == "" {
			continue
		}
		byAddress[ep.Address] = append(byAddress[ep.Address], ep)
	}

	var written, skipped int
	for address, records := range byAddress {
		ok, err := m.reconcileAddress(ctx, address, records)
		if err != nil {
			return err
		}
		if ok {
			written++
		} else {
			skipped++
		}
	}
	m.logger.Info("Reconcile finished", "subscribers", written, "skipped", skipped)
	return nil
}

func (m *Migrator) reconcileAddress(ctx context.Context, address string, records []pinpoint.EndpointResponse) (bool, error) {
	endpointID := seminar.EndpointID(address)
	now := m.clk.Now()

	var tokens []string
	seen := make(map[string]bool)
	add := func(token string) {
		if token == "" || seen[token] {
			return
		}
		seen[token] = true
		tokens = append(tokens, token)
	}

	var name string
	var location *pinpoint.EndpointLocation
	var demographic *pinpoint.EndpointDemographic
	for _, record := range records {
		if items := record.Attributes[legacyItemNameAttribute]; len(items) > 0 {
			add(seminar.EncodeToken(items[0], m.legacyDateTime(record, now)))
		}
		for _, token := range record.Attributes[seminar.SeminarsAttribute] {
			add(token)
		}
		if record.User != nil {
			if names := record.User.UserAttributes["Name"]; len(names) > 0 && names[0] != "" {
				name = names[0]
			}
		}
		if location == nil {
			location = record.Location
		}
		if demographic == nil {
			demographic = record.Demographic
		}
	}

	seminars := seminar.DecodeTokens(endpointID, tokens)
	kept := seminars[:0]
	for _, s := range seminars {
		if !s.Expired(now) {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return false, nil
	}

	if demographic == nil {
		demographic = &pinpoint.EndpointDemographic{Timezone: "Japan"}
	}
	req := &pinpoint.EndpointRequest{
		ChannelType: "SMS",
		Address:     address,
		OptOut:      "NONE",
		Location:    location,
		Demographic: demographic,
		Attributes: map[string][]string{
			seminar.SeminarsAttribute: seminar.EncodeTokens(kept),
		},
		User: &pinpoint.EndpointUser{
			UserAttributes: map[string][]string{"Name": {name}},
			UserID:         endpointID,
		},
	}
	if err := m.api.UpdateEndpoint(ctx, endpointID, req); err != nil {
		return false, fmt.Errorf("write consolidated endpoint %s: %w", endpointID, err)
	}

	for _, s := range kept {
		if s.DateTime == nil {
			continue
		}
		if err := m.scheduler.ScheduleReminders(ctx, s.Token(), s.ItemName, *s.DateTime); err != nil {
			m.logger.Error("Failed to reschedule reminder, continuing",
				"endpoint_id", endpointID,
				"item_name", s.ItemName,
				"error", err)
		}
	}
	return true, nil
}

// legacyDateTime parses the DateTime attribute of a legacy record with the
// tolerant chain. Missing or unparseable dates become on-hold.
func (m *Migrator) legacyDateTime(record pinpoint.EndpointResponse, now time.Time) *time.Time {
	dates := record.Attributes[legacyDateTimeAttribute]
	if len(dates) == 0 || dates[0] == "" {
		return nil
	}
	dt, err := seminar.Parse(dates[0], now)
	if err != nil {
		m.logger.Warn("Unparseable legacy date, keeping reminder on hold",
			"endpoint_id", record.ID,
			"date", dates[0])
		return nil
	}
	return &dt
}

// DeleteSuperseded removes every exported record whose ID is not the
// canonical one derived from its address. Failures are logged and skipped.
func (m *Migrator) DeleteSuperseded(ctx context.Context, endpoints []pinpoint.EndpointResponse) error {
	var deleted int
	for _, ep := range endpoints {
		if ep.Address == "" || ep.ID == seminar.EndpointID(ep.Address) {
			continue
		}
		if err := m.api.DeleteEndpoint(ctx, ep.ID); err != nil {
			m.logger.Error("Failed to delete superseded endpoint, continuing",
				"endpoint_id", ep.ID,
				"error", err)
			continue
		}
		deleted++
	}
	m.logger.Info("Superseded endpoints deleted", "count", deleted)
	return nil
}

// deleteAllCampaigns removes every campaign, then every segment those
// campaigns targeted, each segment once.
func (m *Migrator) deleteAllCampaigns(ctx context.Context) error {
	var campaigns []pinpoint.CampaignResponse
	token := ""
	for {
		page, err := m.api.Campaigns(ctx, token)
		if err != nil {
			return fmt.Errorf("list campaigns: %w", err)
		}
		campaigns = append(campaigns, page.Item...)
		if page.NextToken == "" {
			break
		}
		token = page.NextToken
	}

	segments := make(map[string]bool)
	for _, c := range campaigns {
		if err := m.api.DeleteCampaign(ctx, c.ID); err != nil {
			return fmt.Errorf("delete campaign %s: %w", c.ID, err)
		}
		if c.SegmentID != "" {
			segments[c.SegmentID] = true
		}
	}
	for id := range segments {
		if err := m.api.DeleteSegment(ctx, id); err != nil {
			return fmt.Errorf("delete segment %s: %w", id, err)
		}
	}
	m.logger.Info("Existing campaigns removed", "campaigns", len(campaigns), "segments", len(segments))
	return nil
}

// CleanupCompleted deletes one-shot campaigns that finished more than a month
// ago, along with their segments. Per-item failures are logged and skipped so
// one stuck campaign does not block the rest.
func (m *Migrator) CleanupCompleted(ctx context.Context) error {
	cutoff := m.clk.Now().AddDate(0, -1, 0)

	var stale []pinpoint.CampaignResponse
	token := ""
	for {
		page, err := m.api.Campaigns(ctx, token)
		if err != nil {
			return fmt.Errorf("list campaigns: %w", err)
		}
		for _, c := range page.Item {
			if staleCampaign(c, cutoff) {
				stale = append(stale, c)
			}
		}
		if page.NextToken == "" {
			break
		}
		token = page.NextToken
	}

	segments := make(map[string]bool)
	var deleted int
	for _, c := range stale {
		if err := m.api.DeleteCampaign(ctx, c.ID); err != nil {
			m.logger.Error("Failed to delete campaign, continuing", "campaign_id", c.ID, "error", err)
			continue
		}
		deleted++
		if c.SegmentID != "" && !segments[c.SegmentID] {
			segments[c.SegmentID] = true
			if err := m.api.DeleteSegment(ctx, c.SegmentID); err != nil {
				m.logger.Error("Failed to delete segment, continuing", "segment_id", c.SegmentID, "error", err)
			}
		}
	}
	m.logger.Info("Cleanup finished", "campaigns", deleted, "segments", len(segments))
	return nil
}

func staleCampaign(c pinpoint.CampaignResponse, cutoff time.Time) bool {
	if c.State == nil || c.Schedule == nil {
		return false
	}
	status := c.State.CampaignStatus
	if status != pinpoint.CampaignStatusCompleted && status != pinpoint.CampaignStatusDeleted {
		return false
	}
	if c.Schedule.Frequency != pinpoint.FrequencyOnce {
		return false
	}
	start, err := time.Parse(time.RFC3339, c.Schedule.StartTime)
	if err != nil {
		return false
	}
	return start.Before(cutoff)
}
