package pinpoint

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestValidateNumberNormalizesInput(t *testing.T) {
	var gotBody struct {
		NumberValidateRequest NumberValidateRequest `json:"NumberValidateRequest"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/phone/number/validate" {
			t.Errorf("path = %q, want /v1/phone/number/validate", r.URL.Path)
		}
		if r.Header.Get("api-key") != "secret" {
			t.Errorf("api-key header = %q, want %q", r.Header.Get("api-key"), "secret")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"NumberValidateResponse":{"CleansedPhoneNumberE164":"+819012345678","PhoneTypeCode":0,"Timezone":"Asia/Tokyo"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", "project-1", testLogger())
	resp, err := c.ValidateNumber(context.Background(), "090-1234-5678")
	if err != nil {
		t.Fatalf("ValidateNumber() error = %v", err)
	}

	if gotBody.NumberValidateRequest.PhoneNumber != "+8109012345678" {
		t.Errorf("sent phone number = %q, want normalized %q",
			gotBody.NumberValidateRequest.PhoneNumber, "+8109012345678")
	}
	if gotBody.NumberValidateRequest.IsoCountryCode != "JA" {
		t.Errorf("country code = %q, want JA", gotBody.NumberValidateRequest.IsoCountryCode)
	}
	if !resp.SMSCapable() {
		t.Error("SMSCapable() = false, want true")
	}
	if resp.CleansedPhoneNumberE164 != "+819012345678" {
		t.Errorf("CleansedPhoneNumberE164 = %q", resp.CleansedPhoneNumberE164)
	}
}

func TestEndpointNotFound(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", "project-1", testLogger())
	_, err := c.Endpoint(context.Background(), "819012345678")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Endpoint() error = %v, want ErrNotFound", err)
	}
	if calls != 1 {
		t.Errorf("404 was retried %d times, want a single call", calls)
	}
}

func TestSegmentsPaging(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/apps/project-1/segments" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("page-size"); got != "200" {
			t.Errorf("page-size = %q, want 200", got)
		}
		switch r.URL.Query().Get("token") {
		case "":
			_, _ = w.Write([]byte(`{"SegmentsResponse":{"Item":[{"Id":"s1","tags":{"uid":"aaa"}}],"NextToken":"page2"}}`))
		case "page2":
			_, _ = w.Write([]byte(`{"SegmentsResponse":{"Item":[{"Id":"s2","tags":{"uid":"bbb"}}]}}`))
		default:
			t.Errorf("unexpected token %q", r.URL.Query().Get("token"))
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", "project-1", testLogger())

	page, err := c.Segments(context.Background(), "")
	if err != nil {
		t.Fatalf("Segments() error = %v", err)
	}
	if len(page.Item) != 1 || page.Item[0].ID != "s1" || page.NextToken != "page2" {
		t.Fatalf("first page = %+v", page)
	}

	page, err = c.Segments(context.Background(), page.NextToken)
	if err != nil {
		t.Fatalf("Segments(page2) error = %v", err)
	}
	if len(page.Item) != 1 || page.Item[0].ID != "s2" || page.NextToken != "" {
		t.Fatalf("second page = %+v", page)
	}
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", "project-1", testLogger())
	if err := c.SendMessage(context.Background(), "819012345678", "hello"); err == nil {
		t.Fatal("SendMessage() error = nil, want HTTP 400 failure")
	}
	if calls != 1 {
		t.Errorf("400 was retried %d times, want a single call", calls)
	}
}

func TestSMSTemplateVersionQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/templates/reminder_1day/sms" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("version"); got != "3" {
			t.Errorf("version = %q, want 3", got)
		}
		_, _ = w.Write([]byte(`{"SMSTemplateResponse":{"Body":"__seminar.name__","Version":"3"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", "project-1", testLogger())
	body, err := c.SMSTemplate(context.Background(), "reminder_1day", "3")
	if err != nil {
		t.Fatalf("SMSTemplate() error = %v", err)
	}
	if body != "__seminar.name__" {
		t.Errorf("body = %q", body)
	}
}
