// Package schedule derives time-offset reminder campaigns from a seminar's
// target date-time: it decides which offsets are still in the future, guards
// against duplicate creation via the segment uid tag, and fans out campaign
// creation for every applicable offset.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"

	"seminar-notifier/pinpoint"
	"seminar-notifier/pkg/seminar"
)

// Config is one reminder offset rule: which template to send, the suffix
// appended to the segment name to form the campaign name, and how to derive
// the campaign start time from the seminar date-time.
type Config struct {
	Offset     func(target time.Time) time.Time
	Template   string
	NameSuffix string
}

// Applicable reports whether the campaign would still fire in the future.
func (c Config) Applicable(target, now time.Time) bool {
	return c.Offset(target).After(now)
}

// Defaults is the fixed campaign set: one day before and one hour before.
func Defaults() []Config {
	return []Config{
		{
			Template:   "seminar_reminder_1day",
			NameSuffix: "（1日前）",
			Offset:     func(t time.Time) time.Time { return t.Add(-24 * time.Hour) },
		},
		{
			Template:   "seminar_reminder_1hour",
			NameSuffix: "（1時間前）",
			Offset:     func(t time.Time) time.Time { return t.Add(-time.Hour) },
		},
	}
}

// API is the slice of the messaging service the scheduler needs.
type API interface {
	Segments(ctx context.Context, pageToken string) (*pinpoint.SegmentsResponse, error)
	CreateSegment(ctx context.Context, req *pinpoint.WriteSegmentRequest) (string, error)
	CreateCampaign(ctx context.Context, req *pinpoint.WriteCampaignRequest) (string, error)
	SMSTemplate(ctx context.Context, name, version string) (string, error)
}

// Scheduler creates reminder campaigns for seminar tokens.
type Scheduler struct {
	api             API
	clk             clock.Clock
	logger          *slog.Logger
	templateVersion string
	configs         []Config
}

// New creates a scheduler over the given campaign configs.
func New(api API, configs []Config, templateVersion string, clk clock.Clock, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		api:             api,
		clk:             clk,
		logger:          logger,
		templateVersion: templateVersion,
		configs:         configs,
	}
}

// suffixReserve is the rune length of the longest campaign name suffix; the
// segment name budget must leave room for it.
func (s *Scheduler) suffixReserve() int {
	reserve := 0
	for _, cfg := range s.configs {
		if n := len([]rune(cfg.NameSuffix)); n > reserve {
			reserve = n
		}
	}
	return reserve
}

// ScheduleReminders creates the audience segment and one campaign per
// still-applicable offset for a seminar token. Idempotent: if a segment
// tagged with the token's hash already exists, nothing is created. Partial
// failures (segment created, a campaign creation failed) are not rolled
// back; the error surfaces to the caller.
func (s *Scheduler) ScheduleReminders(ctx context.Context, token, itemName string, target time.Time) error {
	now := s.clk.Now()

	var applicable []Config
	for _, cfg := range s.configs {
		if cfg.Applicable(target, now) {
			applicable = append(applicable, cfg)
		}
	}
	if len(applicable) == 0 {
		s.logger.Info("No applicable reminder offsets, skipping campaign creation",
			"item_name", itemName,
			"target", target.Format(time.RFC3339))
		return nil
	}

	uid := seminar.Hash(token)
	exists, err := s.segmentExists(ctx, uid)
	if err != nil {
		return fmt.Errorf("check segment existence: %w", err)
	}
	if exists {
		s.logger.Info("Segment already exists, skipping campaign creation",
			"item_name", itemName, "uid", uid)
		return nil
	}

	segmentName := seminar.SegmentName(itemName, target, s.suffixReserve())
	segmentID, err := s.api.CreateSegment(ctx, &pinpoint.WriteSegmentRequest{
		Dimensions: &pinpoint.SegmentDimensions{
			Attributes: map[string]pinpoint.AttributeDimension{
				seminar.SeminarsAttribute: {
					AttributeType: pinpoint.AttributeTypeInclusive,
					Values:        []string{token},
				},
			},
		},
		Name: segmentName,
		Tags: map[string]string{pinpoint.SegmentUIDTag: uid},
	})
	if err != nil {
		return fmt.Errorf("create segment: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, cfg := range applicable {
		g.Go(func() error {
			return s.createCampaign(ctx, cfg, segmentName, segmentID, itemName, target)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("create campaigns: %w", err)
	}

	s.logger.Info("Reminder campaigns scheduled",
		"item_name", itemName,
		"segment_id", segmentID,
		"campaign_count", len(applicable))
	return nil
}

func (s *Scheduler) createCampaign(ctx context.Context, cfg Config, segmentName, segmentID, itemName string, target time.Time) error {
	body, err := s.api.SMSTemplate(ctx, cfg.Template, s.templateVersion)
	if err != nil {
		return err
	}

	_, err = s.api.CreateCampaign(ctx, &pinpoint.WriteCampaignRequest{
		MessageConfiguration: &pinpoint.MessageConfiguration{
			SMSMessage: &pinpoint.SMSMessage{
				Body:        seminar.RenderMessage(body, itemName, target),
				MessageType: pinpoint.MessageTypeTransactional,
			},
		},
		Schedule: &pinpoint.Schedule{
			StartTime: cfg.Offset(target).Format(time.RFC3339),
			Frequency: pinpoint.FrequencyOnce,
			Timezone:  "UTC+09",
		},
		Name:      segmentName + cfg.NameSuffix,
		SegmentID: segmentID,
	})
	return err
}

// segmentExists pages through all segments comparing the uid tag. No caching:
// every call re-scans so the check always reflects current state.
func (s *Scheduler) segmentExists(ctx context.Context, uid string) (bool, error) {
	pageToken := ""
	for {
		page, err := s.api.Segments(ctx, pageToken)
		if err != nil {
			return false, err
		}
		for _, item := range page.Item {
			if item.Tags[pinpoint.SegmentUIDTag] == uid {
				return true, nil
			}
		}
		if page.NextToken == "" {
			return false, nil
		}
		pageToken = page.NextToken
	}
}
