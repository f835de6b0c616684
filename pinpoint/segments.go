package pinpoint

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Segments fetches one page of the segment listing. Pass the previous page's
// NextToken to continue; an empty NextToken in the response ends the listing.
func (c *Client) Segments(ctx context.Context, pageToken string) (*SegmentsResponse, error) {
	query := url.Values{"page-size": {strconv.Itoa(PageSize)}}
	if pageToken != "" {
		query.Set("token", pageToken)
	}

	var out struct {
		SegmentsResponse SegmentsResponse `json:"SegmentsResponse"`
	}
	if err := c.do(ctx, http.MethodGet, c.appPath("/segments"), query, nil, &out); err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	return &out.SegmentsResponse, nil
}

// CreateSegment creates an audience segment and returns its ID.
func (c *Client) CreateSegment(ctx context.Context, req *WriteSegmentRequest) (string, error) {
	in := struct {
		WriteSegmentRequest *WriteSegmentRequest `json:"WriteSegmentRequest"`
	}{WriteSegmentRequest: req}
	var out struct {
		SegmentResponse SegmentResponse `json:"SegmentResponse"`
	}

	if err := c.do(ctx, http.MethodPost, c.appPath("/segments"), nil, in, &out); err != nil {
		return "", fmt.Errorf("create segment %q: %w", req.Name, err)
	}
	c.logger.Info("Segment created", "segment_id", out.SegmentResponse.ID, "name", req.Name)
	return out.SegmentResponse.ID, nil
}

// DeleteSegment removes a segment.
func (c *Client) DeleteSegment(ctx context.Context, segmentID string) error {
	err := c.do(ctx, http.MethodDelete, c.appPath("/segments/%s", url.PathEscape(segmentID)), nil, nil, nil)
	if err != nil {
		return fmt.Errorf("delete segment %s: %w", segmentID, err)
	}
	c.logger.Info("Segment deleted", "segment_id", segmentID)
	return nil
}
