// Package reminder maintains the ordered reminder sequence attached to a
// subscriber endpoint: listing, appending, positional update and delete,
// pruning of expired entries and eviction when the sequence overflows.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"

	"seminar-notifier/pinpoint"
	"seminar-notifier/pkg/seminar"
)

// EndpointAPI is the slice of the messaging service the manager needs.
type EndpointAPI interface {
	Endpoint(ctx context.Context, endpointID string) (*pinpoint.EndpointResponse, error)
	UpdateEndpoint(ctx context.Context, endpointID string, req *pinpoint.EndpointRequest) error
}

// Scheduler creates reminder campaigns for a token.
type Scheduler interface {
	ScheduleReminders(ctx context.Context, token, itemName string, target time.Time) error
}

// Manager implements the reminder set operations over one endpoint record.
// Every mutation rewrites the full Seminars attribute; concurrent mutations
// of the same endpoint race last-writer-wins.
type Manager struct {
	api       EndpointAPI
	scheduler Scheduler
	clk       clock.Clock
	logger    *slog.Logger
}

// New creates a reminder manager.
func New(api EndpointAPI, scheduler Scheduler, clk clock.Clock, logger *slog.Logger) *Manager {
	return &Manager{
		api:       api,
		scheduler: scheduler,
		clk:       clk,
		logger:    logger,
	}
}

// List returns the subscriber's reminders with expired entries filtered out.
// A missing endpoint yields an empty list, not an error. IDs are positions in
// the stored sequence, so they stay valid against the stored attribute even
// when expired entries are skipped in the result.
func (m *Manager) List(ctx context.Context, nv *pinpoint.NumberValidateResponse) ([]seminar.Seminar, error) {
	endpointID := seminar.EndpointID(nv.CleansedPhoneNumberE164)

	endpoint, err := m.api.Endpoint(ctx, endpointID)
	if errors.Is(err, pinpoint.ErrNotFound) {
		m.logger.Info("Endpoint does not exist, returning empty reminder list", "endpoint_id", endpointID)
		return []seminar.Seminar{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get endpoint: %w", err)
	}

	seminars := seminar.DecodeTokens(endpointID, endpoint.Attributes[seminar.SeminarsAttribute])
	return Prune(seminars, m.clk.Now()), nil
}

// Add appends a reminder for the validated subscriber, prunes expired
// entries, evicts on overflow, rewrites the endpoint and schedules campaigns
// for the new reminder only. Returns the endpoint ID. A nil dateTime
// registers an on-hold reminder and schedules nothing.
func (m *Manager) Add(ctx context.Context, nv *pinpoint.NumberValidateResponse, name, itemName string, dateTime *time.Time) (string, error) {
	address := nv.CleansedPhoneNumberE164
	endpointID := seminar.EndpointID(address)
	token := seminar.EncodeToken(itemName, dateTime)

	var tokens []string
	endpoint, err := m.api.Endpoint(ctx, endpointID)
	switch {
	case errors.Is(err, pinpoint.ErrNotFound):
		// First reminder for this subscriber.
	case err != nil:
		return "", fmt.Errorf("get endpoint: %w", err)
	default:
		tokens = endpoint.Attributes[seminar.SeminarsAttribute]
	}
	tokens = append(tokens, token)

	seminars := Prune(seminar.DecodeTokens(endpointID, tokens), m.clk.Now())
	if len(seminars) > seminar.MaxCount {
		seminars = Evict(seminars)
	}

	timezone := nv.Timezone
	if timezone == "" {
		timezone = "Japan"
	}
	req := &pinpoint.EndpointRequest{
		ChannelType: "SMS",
		Address:     address,
		OptOut:      "NONE",
		Location: &pinpoint.EndpointLocation{
			PostalCode: nv.ZipCode,
			City:       nv.City,
			Country:    nv.CountryCodeIso2,
		},
		Demographic: &pinpoint.EndpointDemographic{Timezone: timezone},
		Attributes: map[string][]string{
			seminar.SeminarsAttribute: seminar.EncodeTokens(seminars),
		},
		User: &pinpoint.EndpointUser{
			UserAttributes: map[string][]string{"Name": {name}},
			UserID:         endpointID,
		},
	}
	if err := m.api.UpdateEndpoint(ctx, endpointID, req); err != nil {
		return "", err
	}

	m.logger.Info("Reminder added",
		"endpoint_id", endpointID,
		"item_name", itemName,
		"reminder_count", len(seminars))

	if dateTime != nil {
		if err := m.scheduler.ScheduleReminders(ctx, token, itemName, *dateTime); err != nil {
			return "", fmt.Errorf("schedule reminders: %w", err)
		}
	}
	return endpointID, nil
}

// UpdateAt sets or clears the date-time of the reminder at the given
// position, prunes expired entries and rewrites the sequence. Campaigns are
// scheduled only when a date was set. Positions are valid only against the
// most recent fetch.
func (m *Manager) UpdateAt(ctx context.Context, endpointID string, position int, dateTime *time.Time) error {
	endpoint, seminars, err := m.load(ctx, endpointID, position)
	if err != nil {
		return err
	}

	seminars[position].DateTime = dateTime
	updated := seminars[position]

	if err := m.rewrite(ctx, endpoint, endpointID, Prune(seminars, m.clk.Now())); err != nil {
		return err
	}
	m.logger.Info("Reminder updated",
		"endpoint_id", endpointID,
		"position", position,
		"on_hold", dateTime == nil)

	if dateTime != nil {
		if err := m.scheduler.ScheduleReminders(ctx, updated.Token(), updated.ItemName, *dateTime); err != nil {
			return fmt.Errorf("schedule reminders: %w", err)
		}
	}
	return nil
}

// DeleteAt removes the reminder at the given position and rewrites the
// remaining sequence. No campaign side effects.
func (m *Manager) DeleteAt(ctx context.Context, endpointID string, position int) error {
	endpoint, seminars, err := m.load(ctx, endpointID, position)
	if err != nil {
		return err
	}

	seminars = append(seminars[:position], seminars[position+1:]...)

	if err := m.rewrite(ctx, endpoint, endpointID, Prune(seminars, m.clk.Now())); err != nil {
		return err
	}
	m.logger.Info("Reminder deleted", "endpoint_id", endpointID, "position", position)
	return nil
}

// load fetches the endpoint and decodes its sequence, mapping a missing
// endpoint or position to NotFoundError.
func (m *Manager) load(ctx context.Context, endpointID string, position int) (*pinpoint.EndpointResponse, []seminar.Seminar, error) {
	endpoint, err := m.api.Endpoint(ctx, endpointID)
	if errors.Is(err, pinpoint.ErrNotFound) {
		return nil, nil, &seminar.NotFoundError{Resource: "endpoint", ID: endpointID}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get endpoint: %w", err)
	}

	tokens := endpoint.Attributes[seminar.SeminarsAttribute]
	if position < 0 || position >= len(tokens) {
		return nil, nil, &seminar.NotFoundError{Resource: "reminder", ID: strconv.Itoa(position)}
	}

	return endpoint, seminar.DecodeTokens(endpointID, tokens), nil
}

// rewrite persists the full sequence, carrying the endpoint's other fields
// over unchanged.
func (m *Manager) rewrite(ctx context.Context, endpoint *pinpoint.EndpointResponse, endpointID string, seminars []seminar.Seminar) error {
	attributes := make(map[string][]string, len(endpoint.Attributes))
	for k, v := range endpoint.Attributes {
		attributes[k] = v
	}
	attributes[seminar.SeminarsAttribute] = seminar.EncodeTokens(seminars)

	return m.api.UpdateEndpoint(ctx, endpointID, &pinpoint.EndpointRequest{
		ChannelType: endpoint.ChannelType,
		Address:     endpoint.Address,
		OptOut:      endpoint.OptOut,
		Location:    endpoint.Location,
		Demographic: endpoint.Demographic,
		Attributes:  attributes,
		User:        endpoint.User,
	})
}

// Prune removes expired reminders (date-time set and not in the future).
// On-hold reminders are kept. IDs are preserved; they are reassigned on the
// next decode of the rewritten sequence.
func Prune(seminars []seminar.Seminar, now time.Time) []seminar.Seminar {
	kept := make([]seminar.Seminar, 0, len(seminars))
	for _, s := range seminars {
		if !s.Expired(now) {
			kept = append(kept, s)
		}
	}
	return kept
}

// Evict drops one entry from an overflowing sequence: the oldest on-hold
// reminder if any exists, otherwise the oldest entry overall.
func Evict(seminars []seminar.Seminar) []seminar.Seminar {
	idx := 0
	for i, s := range seminars {
		if s.DateTime == nil {
			idx = i
			break
		}
	}
	return append(seminars[:idx:idx], seminars[idx+1:]...)
}
