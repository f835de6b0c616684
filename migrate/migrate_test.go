package migrate

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seminar-notifier/pinpoint"
	"seminar-notifier/pkg/seminar"
)

type fakeAPI struct {
	jobStatuses      []string
	polls            int
	campaignPages    []pinpoint.CampaignsResponse
	endpointWrites   map[string]*pinpoint.EndpointRequest
	deletedEndpoints []string
	deletedCampaigns []string
	deletedSegments  []string
	failCampaign     string
	exportPrefix     string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		jobStatuses:    []string{pinpoint.JobStatusCompleted},
		endpointWrites: map[string]*pinpoint.EndpointRequest{},
	}
}

func (f *fakeAPI) CreateExportJob(_ context.Context, destinationURLPrefix, _ string) (string, error) {
	f.exportPrefix = destinationURLPrefix
	return "job-1", nil
}

func (f *fakeAPI) ExportJob(_ context.Context, _ string) (*pinpoint.ExportJobResponse, error) {
	status := f.jobStatuses[len(f.jobStatuses)-1]
	if f.polls < len(f.jobStatuses) {
		status = f.jobStatuses[f.polls]
	}
	f.polls++
	return &pinpoint.ExportJobResponse{ID: "job-1", JobStatus: status}, nil
}

func (f *fakeAPI) UpdateEndpoint(_ context.Context, endpointID string, req *pinpoint.EndpointRequest) error {
	f.endpointWrites[endpointID] = req
	return nil
}

func (f *fakeAPI) DeleteEndpoint(_ context.Context, endpointID string) error {
	f.deletedEndpoints = append(f.deletedEndpoints, endpointID)
	return nil
}

func (f *fakeAPI) Campaigns(_ context.Context, pageToken string) (*pinpoint.CampaignsResponse, error) {
	if len(f.campaignPages) == 0 {
		return &pinpoint.CampaignsResponse{}, nil
	}
	idx := 0
	if pageToken != "" {
		fmt.Sscanf(pageToken, "page-%d", &idx)
	}
	return &f.campaignPages[idx], nil
}

func (f *fakeAPI) DeleteCampaign(_ context.Context, campaignID string) error {
	if campaignID == f.failCampaign {
		return fmt.Errorf("campaign %s is locked", campaignID)
	}
	f.deletedCampaigns = append(f.deletedCampaigns, campaignID)
	return nil
}

func (f *fakeAPI) DeleteSegment(_ context.Context, segmentID string) error {
	f.deletedSegments = append(f.deletedSegments, segmentID)
	return nil
}

type fakeStore struct {
	objects map[string]string
}

func (f *fakeStore) List(_ context.Context, prefix string) ([]string, error) {
	var names []string
	for name := range f.objects {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names, nil
}

func (f *fakeStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	body, ok := f.objects[name]
	if !ok {
		return nil, fmt.Errorf("object %s not found", name)
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func gzipped(t *testing.T, lines ...string) string {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.String()
}

type fakeScheduler struct {
	tokens []string
}

func (f *fakeScheduler) ScheduleReminders(_ context.Context, token, _ string, _ time.Time) error {
	f.tokens = append(f.tokens, token)
	return nil
}

func newTestMigrator(api *fakeAPI, store *fakeStore, sched *fakeScheduler) (*Migrator, *clock.Mock) {
	clk := clock.NewMock()
	clk.Set(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	if store == nil {
		store = &fakeStore{objects: map[string]string{}}
	}
	if sched == nil {
		sched = &fakeScheduler{}
	}
	m := New(api, store, sched, clk, slog.New(slog.DiscardHandler), "export-bucket", "arn:aws:iam::123:role/export")
	return m, clk
}

func TestExportReadsGzippedRecords(t *testing.T) {
	api := newFakeAPI()
	m, clk := newTestMigrator(api, nil, nil)
	prefix := fmt.Sprintf("exports/%s/", seminar.FormatCompact(clk.Now()))

	store := m.store.(*fakeStore)
	store.objects[prefix+"part-1.gz"] = gzipped(t,
		`{"Id":"abc","Address":"+8109011112222","Attributes":{"ItemName":["Go講座"]}}`,
		`{"Id":"def","Address":"+8109033334444"}`)
	store.objects[prefix+"part-2.gz"] = gzipped(t,
		`{"Id":"ghi","Address":"+8109055556666"}`)
	store.objects[prefix+"manifest.json"] = "not gzip"

	endpoints, err := m.Export(context.Background())
	require.NoError(t, err)
	assert.Len(t, endpoints, 3)
	assert.Equal(t, "s3://export-bucket/"+prefix, api.exportPrefix)
	assert.Equal(t, 1, api.polls)
}

func TestExportProceedsAtPollCeiling(t *testing.T) {
	api := newFakeAPI()
	api.jobStatuses = []string{"PROCESSING"}
	m, _ := newTestMigrator(api, nil, nil)
	m.pollCeiling = m.pollInterval

	endpoints, err := m.Export(context.Background())
	require.NoError(t, err)
	assert.Empty(t, endpoints)
	assert.Equal(t, 1, api.polls)
}

func TestReconcileMergesLegacyRecords(t *testing.T) {
	api := newFakeAPI()
	sched := &fakeScheduler{}
	m, clk := newTestMigrator(api, nil, sched)
	future := clk.Now().Add(48 * time.Hour)
	futureToken := seminar.EncodeToken("既存の講座", &future)

	endpoints := []pinpoint.EndpointResponse{
		{
			ID:      "legacy-1",
			Address: "+8109012345678",
			Attributes: map[string][]string{
				"ItemName": {"Go講座"},
				"DateTime": {future.Format(time.RFC3339)},
			},
			User: &pinpoint.EndpointUser{UserAttributes: map[string][]string{"Name": {"山田太郎"}}},
		},
		{
			ID:         "legacy-2",
			Address:    "+8109012345678",
			Attributes: map[string][]string{"ItemName": {"未定の講座"}},
		},
		{
			ID:      "8109012345678",
			Address: "+8109012345678",
			Attributes: map[string][]string{
				seminar.SeminarsAttribute: {futureToken},
			},
		},
	}

	require.NoError(t, m.Reconcile(context.Background(), endpoints))

	req := api.endpointWrites["8109012345678"]
	require.NotNil(t, req)
	assert.Equal(t, "+8109012345678", req.Address)
	assert.Equal(t, []string{"山田太郎"}, req.User.UserAttributes["Name"])
	tokens := req.Attributes[seminar.SeminarsAttribute]
	assert.Len(t, tokens, 3)
	assert.Contains(t, tokens, "未定の講座")
	assert.Contains(t, tokens, futureToken)
	assert.Len(t, sched.tokens, 2)
}

func TestReconcileIdempotent(t *testing.T) {
	api := newFakeAPI()
	m, clk := newTestMigrator(api, nil, nil)
	future := clk.Now().Add(48 * time.Hour)
	token := seminar.EncodeToken("Go講座", &future)

	endpoints := []pinpoint.EndpointResponse{
		{
			ID:      "8109012345678",
			Address: "+8109012345678",
			Attributes: map[string][]string{
				seminar.SeminarsAttribute: {token},
			},
		},
	}

	require.NoError(t, m.Reconcile(context.Background(), endpoints))
	require.NoError(t, m.Reconcile(context.Background(), endpoints))

	assert.Equal(t, []string{token}, api.endpointWrites["8109012345678"].Attributes[seminar.SeminarsAttribute])
}

func TestReconcileSkipsAllExpired(t *testing.T) {
	api := newFakeAPI()
	m, clk := newTestMigrator(api, nil, nil)
	past := clk.Now().Add(-time.Hour)

	endpoints := []pinpoint.EndpointResponse{
		{
			ID:      "legacy-1",
			Address: "+8109012345678",
			Attributes: map[string][]string{
				"ItemName": {"終わった講座"},
				"DateTime": {past.Format(time.RFC3339)},
			},
		},
	}

	require.NoError(t, m.Reconcile(context.Background(), endpoints))
	assert.Empty(t, api.endpointWrites)
}

func TestDeleteSuperseded(t *testing.T) {
	api := newFakeAPI()
	m, _ := newTestMigrator(api, nil, nil)

	endpoints := []pinpoint.EndpointResponse{
		{ID: "legacy-1", Address: "+8109012345678"},
		{ID: "8109012345678", Address: "+8109012345678"},
		{ID: "legacy-2", Address: "+8109033334444"},
	}

	require.NoError(t, m.DeleteSuperseded(context.Background(), endpoints))
	assert.ElementsMatch(t, []string{"legacy-1", "legacy-2"}, api.deletedEndpoints)
}

func TestRunDeletesExistingCampaignsFirst(t *testing.T) {
	api := newFakeAPI()
	api.campaignPages = []pinpoint.CampaignsResponse{
		{
			Item: []pinpoint.CampaignResponse{
				{ID: "c1", SegmentID: "s1"},
				{ID: "c2", SegmentID: "s1"},
				{ID: "c3", SegmentID: "s2"},
			},
		},
	}
	m, _ := newTestMigrator(api, nil, nil)

	require.NoError(t, m.Run(context.Background()))
	assert.ElementsMatch(t, []string{"c1", "c2", "c3"}, api.deletedCampaigns)
	assert.ElementsMatch(t, []string{"s1", "s2"}, api.deletedSegments)
}

func TestCleanupCompleted(t *testing.T) {
	api := newFakeAPI()
	m, clk := newTestMigrator(api, nil, nil)
	old := clk.Now().AddDate(0, -2, 0).Format(time.RFC3339)
	recent := clk.Now().AddDate(0, 0, -3).Format(time.RFC3339)

	api.campaignPages = []pinpoint.CampaignsResponse{
		{
			Item: []pinpoint.CampaignResponse{
				{
					ID:        "old-1day",
					SegmentID: "seg-old",
					State:     &pinpoint.CampaignState{CampaignStatus: pinpoint.CampaignStatusCompleted},
					Schedule:  &pinpoint.Schedule{StartTime: old, Frequency: pinpoint.FrequencyOnce},
				},
				{
					ID:        "old-1hour",
					SegmentID: "seg-old",
					State:     &pinpoint.CampaignState{CampaignStatus: pinpoint.CampaignStatusDeleted},
					Schedule:  &pinpoint.Schedule{StartTime: old, Frequency: pinpoint.FrequencyOnce},
				},
				{
					ID:        "recent",
					SegmentID: "seg-recent",
					State:     &pinpoint.CampaignState{CampaignStatus: pinpoint.CampaignStatusCompleted},
					Schedule:  &pinpoint.Schedule{StartTime: recent, Frequency: pinpoint.FrequencyOnce},
				},
				{
					ID:        "scheduled",
					SegmentID: "seg-live",
					State:     &pinpoint.CampaignState{CampaignStatus: "SCHEDULED"},
					Schedule:  &pinpoint.Schedule{StartTime: old, Frequency: pinpoint.FrequencyOnce},
				},
			},
		},
	}

	require.NoError(t, m.CleanupCompleted(context.Background()))
	assert.ElementsMatch(t, []string{"old-1day", "old-1hour"}, api.deletedCampaigns)
	assert.Equal(t, []string{"seg-old"}, api.deletedSegments)
}

func TestCleanupSkipsFailedDeletes(t *testing.T) {
	api := newFakeAPI()
	m, clk := newTestMigrator(api, nil, nil)
	old := clk.Now().AddDate(0, -2, 0).Format(time.RFC3339)

	api.failCampaign = "stuck"
	api.campaignPages = []pinpoint.CampaignsResponse{
		{
			Item: []pinpoint.CampaignResponse{
				{
					ID:        "stuck",
					SegmentID: "seg-stuck",
					State:     &pinpoint.CampaignState{CampaignStatus: pinpoint.CampaignStatusCompleted},
					Schedule:  &pinpoint.Schedule{StartTime: old, Frequency: pinpoint.FrequencyOnce},
				},
				{
					ID:        "fine",
					SegmentID: "seg-fine",
					State:     &pinpoint.CampaignState{CampaignStatus: pinpoint.CampaignStatusCompleted},
					Schedule:  &pinpoint.Schedule{StartTime: old, Frequency: pinpoint.FrequencyOnce},
				},
			},
		},
	}

	require.NoError(t, m.CleanupCompleted(context.Background()))
	assert.Equal(t, []string{"fine"}, api.deletedCampaigns)
	assert.Equal(t, []string{"seg-fine"}, api.deletedSegments)
}
