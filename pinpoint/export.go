package pinpoint

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// CreateExportJob starts an export of all endpoint records to object storage
// under the given destination URL prefix and returns the job ID.
func (c *Client) CreateExportJob(ctx context.Context, destinationURLPrefix, roleArn string) (string, error) {
	in := struct {
		ExportJobRequest ExportJobRequest `json:"ExportJobRequest"`
	}{
		ExportJobRequest: ExportJobRequest{
			DestinationURLPrefix: destinationURLPrefix,
			RoleArn:              roleArn,
		},
	}
	var out struct {
		ExportJobResponse ExportJobResponse `json:"ExportJobResponse"`
	}

	if err := c.do(ctx, http.MethodPost, c.appPath("/jobs/export"), nil, in, &out); err != nil {
		return "", fmt.Errorf("create export job: %w", err)
	}
	c.logger.Info("Export job created", "job_id", out.ExportJobResponse.ID, "destination", destinationURLPrefix)
	return out.ExportJobResponse.ID, nil
}

// ExportJob fetches the status of an export job.
func (c *Client) ExportJob(ctx context.Context, jobID string) (*ExportJobResponse, error) {
	var out struct {
		ExportJobResponse ExportJobResponse `json:"ExportJobResponse"`
	}

	err := c.do(ctx, http.MethodGet, c.appPath("/jobs/export/%s", url.PathEscape(jobID)), nil, nil, &out)
	if err != nil {
		return nil, fmt.Errorf("get export job %s: %w", jobID, err)
	}
	return &out.ExportJobResponse, nil
}
