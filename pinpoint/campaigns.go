package pinpoint

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// CreateCampaign creates a scheduled campaign and returns its ID.
func (c *Client) CreateCampaign(ctx context.Context, req *WriteCampaignRequest) (string, error) {
	in := struct {
		WriteCampaignRequest *WriteCampaignRequest `json:"WriteCampaignRequest"`
	}{WriteCampaignRequest: req}
	var out struct {
		CampaignResponse CampaignResponse `json:"CampaignResponse"`
	}

	if err := c.do(ctx, http.MethodPost, c.appPath("/campaigns"), nil, in, &out); err != nil {
		return "", fmt.Errorf("create campaign %q: %w", req.Name, err)
	}
	c.logger.Info("Campaign created",
		"campaign_id", out.CampaignResponse.ID,
		"name", req.Name,
		"start_time", req.Schedule.StartTime)
	return out.CampaignResponse.ID, nil
}

// Campaigns fetches one page of the campaign listing.
func (c *Client) Campaigns(ctx context.Context, pageToken string) (*CampaignsResponse, error) {
	query := url.Values{"page-size": {strconv.Itoa(PageSize)}}
	if pageToken != "" {
		query.Set("token", pageToken)
	}

	var out struct {
		CampaignsResponse CampaignsResponse `json:"CampaignsResponse"`
	}
	if err := c.do(ctx, http.MethodGet, c.appPath("/campaigns"), query, nil, &out); err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	return &out.CampaignsResponse, nil
}

// DeleteCampaign removes a campaign.
func (c *Client) DeleteCampaign(ctx context.Context, campaignID string) error {
	err := c.do(ctx, http.MethodDelete, c.appPath("/campaigns/%s", url.PathEscape(campaignID)), nil, nil, nil)
	if err != nil {
		return fmt.Errorf("delete campaign %s: %w", campaignID, err)
	}
	c.logger.Info("Campaign deleted", "campaign_id", campaignID)
	return nil
}
