package migrate

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"seminar-notifier/pinpoint"
	"seminar-notifier/pkg/seminar"
)

// ObjectStore lists and opens exported objects under a prefix.
type ObjectStore interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Export runs an endpoint export job and returns every endpoint record it
// produced. The job writes gzipped newline-delimited JSON objects under
// exports/<timestamp>/ in the configured bucket. Polling stops after the
// ceiling even if the job has not finished; whatever objects exist by then
// are read anyway.
func (m *Migrator) Export(ctx context.Context) ([]pinpoint.EndpointResponse, error) {
	prefix := fmt.Sprintf("exports/%s/", seminar.FormatCompact(m.clk.Now()))
	destination := fmt.Sprintf("s3://%s/%s", m.bucket, prefix)

	jobID, err := m.api.CreateExportJob(ctx, destination, m.roleArn)
	if err != nil {
		return nil, err
	}

	if err := m.awaitExport(ctx, jobID); err != nil {
		return nil, err
	}
	return m.readExport(ctx, prefix)
}

func (m *Migrator) awaitExport(ctx context.Context, jobID string) error {
	deadline := m.clk.Now().Add(m.pollCeiling)
	for {
		job, err := m.api.ExportJob(ctx, jobID)
		if err != nil {
			return fmt.Errorf("poll export job: %w", err)
		}
		if job.JobStatus == pinpoint.JobStatusCompleted {
			m.logger.Info("Export job completed", "job_id", jobID)
			return nil
		}
		if !m.clk.Now().Add(m.pollInterval).Before(deadline) {
			m.logger.Warn("Export job still running at poll ceiling, proceeding with partial data",
				"job_id", jobID,
				"status", job.JobStatus)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.clk.After(m.pollInterval):
		}
	}
}

func (m *Migrator) readExport(ctx context.Context, prefix string) ([]pinpoint.EndpointResponse, error) {
	names, err := m.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list export objects: %w", err)
	}

	var endpoints []pinpoint.EndpointResponse
	for _, name := range names {
		if !strings.HasSuffix(name, ".gz") {
			continue
		}
		records, err := m.readObject(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		endpoints = append(endpoints, records...)
	}
	m.logger.Info("Export read", "objects", len(names), "endpoints", len(endpoints))
	return endpoints, nil
}

func (m *Migrator) readObject(ctx context.Context, name string) ([]pinpoint.EndpointResponse, error) {
	rc, err := m.store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck // read-only stream

	gz, err := gzip.NewReader(rc)
	if err != nil {
		return nil, fmt.Errorf("gunzip: %w", err)
	}
	defer gz.Close() //nolint:errcheck // read-only stream

	var records []pinpoint.EndpointResponse
	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var record pinpoint.EndpointResponse
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return nil, fmt.Errorf("parse endpoint record: %w", err)
		}
		records = append(records, record)
	}
	return records, scanner.Err()
}
