package pinpoint

// Wire types mirror the external service's JSON shapes (PascalCase fields).

const (
	// MessageTypeTransactional marks reminder and confirmation SMS as
	// transactional rather than promotional.
	MessageTypeTransactional = "TRANSACTIONAL"

	// FrequencyOnce schedules a campaign for a single send.
	FrequencyOnce = "ONCE"

	// SegmentUIDTag is the segment tag carrying the token hash used for
	// deduplication.
	SegmentUIDTag = "uid"

	// JobStatusCompleted is the terminal success state of an export job.
	JobStatusCompleted = "COMPLETED"

	CampaignStatusCompleted = "COMPLETED"
	CampaignStatusDeleted   = "DELETED"

	// AttributeTypeInclusive selects endpoints whose attribute contains one
	// of the dimension values.
	AttributeTypeInclusive = "INCLUSIVE"
)

// NumberValidateRequest asks the service to validate and cleanse a phone
// number.
type NumberValidateRequest struct {
	IsoCountryCode string `json:"IsoCountryCode"`
	PhoneNumber    string `json:"PhoneNumber"`
}

// NumberValidateResponse carries the cleansed number and its metadata.
// PhoneTypeCode 0 means the number can receive SMS.
type NumberValidateResponse struct {
	CleansedPhoneNumberE164 string `json:"CleansedPhoneNumberE164"`
	City                    string `json:"City"`
	CountryCodeIso2         string `json:"CountryCodeIso2"`
	Timezone                string `json:"Timezone"`
	ZipCode                 string `json:"ZipCode"`
	PhoneTypeCode           int    `json:"PhoneTypeCode"`
}

// SMSCapable reports whether the validated number can receive SMS.
func (r *NumberValidateResponse) SMSCapable() bool {
	return r.PhoneTypeCode == 0
}

// EndpointLocation holds the geographic fields of an endpoint.
type EndpointLocation struct {
	City       string `json:"City,omitempty"`
	Country    string `json:"Country,omitempty"`
	PostalCode string `json:"PostalCode,omitempty"`
}

// EndpointDemographic holds the timezone of an endpoint.
type EndpointDemographic struct {
	Timezone string `json:"Timezone,omitempty"`
}

// EndpointUser carries the subscriber's user attributes (display name).
type EndpointUser struct {
	UserAttributes map[string][]string `json:"UserAttributes,omitempty"`
	UserID         string              `json:"UserId,omitempty"`
}

// EndpointRequest is the full-overwrite write shape for an endpoint.
type EndpointRequest struct {
	Attributes  map[string][]string  `json:"Attributes,omitempty"`
	Location    *EndpointLocation    `json:"Location,omitempty"`
	Demographic *EndpointDemographic `json:"Demographic,omitempty"`
	User        *EndpointUser        `json:"User,omitempty"`
	Address     string               `json:"Address,omitempty"`
	ChannelType string               `json:"ChannelType,omitempty"`
	OptOut      string               `json:"OptOut,omitempty"`
}

// EndpointResponse is the stored endpoint record.
type EndpointResponse struct {
	Attributes  map[string][]string  `json:"Attributes,omitempty"`
	Location    *EndpointLocation    `json:"Location,omitempty"`
	Demographic *EndpointDemographic `json:"Demographic,omitempty"`
	User        *EndpointUser        `json:"User,omitempty"`
	ID          string               `json:"Id"`
	Address     string               `json:"Address,omitempty"`
	ChannelType string               `json:"ChannelType,omitempty"`
	OptOut      string               `json:"OptOut,omitempty"`
}

// AttributeDimension filters a segment on endpoint attribute values.
type AttributeDimension struct {
	AttributeType string   `json:"AttributeType"`
	Values        []string `json:"Values"`
}

// SegmentDimensions is the filter definition of a segment.
type SegmentDimensions struct {
	Attributes map[string]AttributeDimension `json:"Attributes,omitempty"`
}

// WriteSegmentRequest creates a segment.
type WriteSegmentRequest struct {
	Dimensions *SegmentDimensions `json:"Dimensions,omitempty"`
	Tags       map[string]string  `json:"tags,omitempty"`
	Name       string             `json:"Name"`
}

// SegmentResponse is one stored segment.
type SegmentResponse struct {
	Tags map[string]string `json:"tags,omitempty"`
	ID   string            `json:"Id"`
	Name string            `json:"Name,omitempty"`
}

// SegmentsResponse is one page of the segment listing.
type SegmentsResponse struct {
	Item      []SegmentResponse `json:"Item"`
	NextToken string            `json:"NextToken,omitempty"`
}

// SMSMessage is the SMS payload of a campaign or direct message.
type SMSMessage struct {
	Body        string `json:"Body"`
	MessageType string `json:"MessageType"`
}

// MessageConfiguration wraps the channel payloads of a campaign.
type MessageConfiguration struct {
	SMSMessage *SMSMessage `json:"SMSMessage,omitempty"`
}

// Schedule is a campaign schedule. StartTime is RFC 3339.
type Schedule struct {
	StartTime string `json:"StartTime,omitempty"`
	Frequency string `json:"Frequency,omitempty"`
	Timezone  string `json:"Timezone,omitempty"`
}

// WriteCampaignRequest creates a campaign targeting a segment.
type WriteCampaignRequest struct {
	MessageConfiguration *MessageConfiguration `json:"MessageConfiguration,omitempty"`
	Schedule             *Schedule             `json:"Schedule,omitempty"`
	Name                 string                `json:"Name"`
	SegmentID            string                `json:"SegmentId"`
}

// CampaignState carries the lifecycle status of a campaign.
type CampaignState struct {
	CampaignStatus string `json:"CampaignStatus,omitempty"`
}

// CampaignResponse is one stored campaign.
type CampaignResponse struct {
	Schedule  *Schedule      `json:"Schedule,omitempty"`
	State     *CampaignState `json:"State,omitempty"`
	ID        string         `json:"Id"`
	Name      string         `json:"Name,omitempty"`
	SegmentID string         `json:"SegmentId,omitempty"`
}

// CampaignsResponse is one page of the campaign listing.
type CampaignsResponse struct {
	Item      []CampaignResponse `json:"Item"`
	NextToken string             `json:"NextToken,omitempty"`
}

// MessageRequest sends a direct message to specific endpoints.
type MessageRequest struct {
	Endpoints            map[string]struct{}   `json:"Endpoints"`
	MessageConfiguration *MessageConfiguration `json:"MessageConfiguration"`
}

// SMSTemplateResponse is a stored SMS message template.
type SMSTemplateResponse struct {
	Body    string `json:"Body"`
	Version string `json:"Version,omitempty"`
}

// ExportJobRequest starts an endpoint export to object storage.
type ExportJobRequest struct {
	DestinationURLPrefix string `json:"S3UrlPrefix"`
	RoleArn              string `json:"RoleArn,omitempty"`
}

// ExportJobResponse reports an export job and its status.
type ExportJobResponse struct {
	ID        string `json:"Id"`
	JobStatus string `json:"JobStatus,omitempty"`
}
