package pinpoint

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"seminar-notifier/pkg/seminar"
)

// ValidateNumber normalizes a user-entered phone number and asks the service
// to validate and cleanse it.
func (c *Client) ValidateNumber(ctx context.Context, phoneNumber string) (*NumberValidateResponse, error) {
	in := struct {
		NumberValidateRequest NumberValidateRequest `json:"NumberValidateRequest"`
	}{
		NumberValidateRequest: NumberValidateRequest{
			IsoCountryCode: "JA",
			PhoneNumber:    seminar.NormalizeNumber(phoneNumber),
		},
	}
	var out struct {
		NumberValidateResponse NumberValidateResponse `json:"NumberValidateResponse"`
	}

	if err := c.do(ctx, http.MethodPost, "/v1/phone/number/validate", nil, in, &out); err != nil {
		return nil, fmt.Errorf("validate number: %w", err)
	}
	return &out.NumberValidateResponse, nil
}

// Endpoint fetches one endpoint record. Returns ErrNotFound when it does not
// exist.
func (c *Client) Endpoint(ctx context.Context, endpointID string) (*EndpointResponse, error) {
	var out struct {
		EndpointResponse EndpointResponse `json:"EndpointResponse"`
	}

	err := c.do(ctx, http.MethodGet, c.appPath("/endpoints/%s", url.PathEscape(endpointID)), nil, nil, &out)
	if err != nil {
		return nil, err
	}
	return &out.EndpointResponse, nil
}

// UpdateEndpoint writes an endpoint record in full. The service upserts, so
// this both creates and overwrites.
func (c *Client) UpdateEndpoint(ctx context.Context, endpointID string, req *EndpointRequest) error {
	in := struct {
		EndpointRequest *EndpointRequest `json:"EndpointRequest"`
	}{EndpointRequest: req}

	err := c.do(ctx, http.MethodPut, c.appPath("/endpoints/%s", url.PathEscape(endpointID)), nil, in, nil)
	if err != nil {
		return fmt.Errorf("update endpoint %s: %w", endpointID, err)
	}
	c.logger.Info("Endpoint updated", "endpoint_id", endpointID)
	return nil
}

// DeleteEndpoint removes an endpoint record.
func (c *Client) DeleteEndpoint(ctx context.Context, endpointID string) error {
	err := c.do(ctx, http.MethodDelete, c.appPath("/endpoints/%s", url.PathEscape(endpointID)), nil, nil, nil)
	if err != nil {
		return fmt.Errorf("delete endpoint %s: %w", endpointID, err)
	}
	c.logger.Info("Endpoint deleted", "endpoint_id", endpointID)
	return nil
}

// SendMessage sends a transactional SMS to one endpoint.
func (c *Client) SendMessage(ctx context.Context, endpointID, body string) error {
	in := struct {
		MessageRequest MessageRequest `json:"MessageRequest"`
	}{
		MessageRequest: MessageRequest{
			Endpoints: map[string]struct{}{endpointID: {}},
			MessageConfiguration: &MessageConfiguration{
				SMSMessage: &SMSMessage{
					Body:        body,
					MessageType: MessageTypeTransactional,
				},
			},
		},
	}

	if err := c.do(ctx, http.MethodPost, c.appPath("/messages"), nil, in, nil); err != nil {
		return fmt.Errorf("send message to %s: %w", endpointID, err)
	}
	c.logger.Info("Message sent", "endpoint_id", endpointID)
	return nil
}
