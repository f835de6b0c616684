package pinpoint

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// SMSTemplate fetches the body of a stored SMS template. version may be
// empty to fetch the active version.
func (c *Client) SMSTemplate(ctx context.Context, name, version string) (string, error) {
	var query url.Values
	if version != "" {
		query = url.Values{"version": {version}}
	}

	var out struct {
		SMSTemplateResponse SMSTemplateResponse `json:"SMSTemplateResponse"`
	}
	path := "/v1/templates/" + url.PathEscape(name) + "/sms"
	if err := c.do(ctx, http.MethodGet, path, query, nil, &out); err != nil {
		return "", fmt.Errorf("get sms template %q: %w", name, err)
	}
	if out.SMSTemplateResponse.Body == "" {
		return "", fmt.Errorf("sms template %q has no body", name)
	}
	return out.SMSTemplateResponse.Body, nil
}
