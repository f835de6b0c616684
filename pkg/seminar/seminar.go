// Package seminar contains the core domain types for the seminar reminder
// service: the reminder record itself and the codec that packs an item name
// and an optional date-time into the bounded endpoint attribute value used
// for segment matching.
package seminar

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

const (
	// Separator joins the item name and the compact date-time inside a token.
	Separator = "_"

	// AttributeMaxLength is the per-value length bound of endpoint attributes
	// in the messaging service.
	AttributeMaxLength = 100

	// CampaignNameMaxLength bounds campaign names. Segment names are used as
	// campaign name prefixes, so their budget is derived from this.
	CampaignNameMaxLength = 64

	// SeminarsAttribute is the endpoint attribute holding the token sequence.
	SeminarsAttribute = "Seminars"

	// MaxCount caps the number of reminders kept per endpoint.
	MaxCount = 50
)

// Seminar is one decoded reminder. ID is the 0-based position of the token in
// the endpoint's Seminars attribute; it is positional, not stable, and shifts
// whenever an earlier entry is removed. A nil DateTime means the reminder is
// on hold (no scheduled date yet).
type Seminar struct {
	DateTime   *time.Time `json:"dateTime,omitempty"`
	EndpointID string     `json:"endpointId"`
	ItemName   string     `json:"itemName"`
	ID         int        `json:"id"`
}

// Token re-encodes the seminar into its attribute value.
func (s Seminar) Token() string {
	return EncodeToken(s.ItemName, s.DateTime)
}

// Expired reports whether the seminar has a date-time that is not in the
// future. On-hold seminars never expire.
func (s Seminar) Expired(now time.Time) bool {
	return s.DateTime != nil && !s.DateTime.After(now)
}

// EncodeToken packs an item name and an optional date-time into a single
// token of at most AttributeMaxLength runes. The item name is truncated to
// leave room for the date suffix; truncation is lossy and irreversible.
func EncodeToken(itemName string, dt *time.Time) string {
	var suffix string
	if dt != nil {
		suffix = Separator + FormatCompact(*dt)
	}
	return truncate(itemName, AttributeMaxLength-len(suffix)) + suffix
}

// DecodeToken splits a token back into item name and date-time. The split
// point is the last occurrence of Separator. Tokens without one, and tokens
// whose tail is not a compact date-time (an item name that itself contains
// the separator), decode as on-hold reminders carrying the whole token as
// the item name. Decoding never fails: a stored sequence must stay readable
// no matter what a past write put in it.
func DecodeToken(endpointID string, id int, token string) Seminar {
	idx := strings.LastIndex(token, Separator)
	if idx < 0 {
		return Seminar{EndpointID: endpointID, ID: id, ItemName: token}
	}

	dt, err := ParseCompact(token[idx+1:])
	if err != nil {
		return Seminar{EndpointID: endpointID, ID: id, ItemName: token}
	}

	return Seminar{
		EndpointID: endpointID,
		ID:         id,
		ItemName:   token[:idx],
		DateTime:   &dt,
	}
}

// DecodeTokens decodes a full attribute sequence, assigning positional IDs in
// order.
func DecodeTokens(endpointID string, tokens []string) []Seminar {
	seminars := make([]Seminar, 0, len(tokens))
	for i, token := range tokens {
		seminars = append(seminars, DecodeToken(endpointID, i, token))
	}
	return seminars
}

// EncodeTokens re-encodes a seminar sequence into attribute values.
func EncodeTokens(seminars []Seminar) []string {
	tokens := make([]string, 0, len(seminars))
	for _, s := range seminars {
		tokens = append(tokens, s.Token())
	}
	return tokens
}

// SegmentName builds the segment name for an item/date pair. The budget is
// the campaign name bound minus the date suffix and the longest configured
// campaign name suffix, since campaign names are segmentName+suffix.
func SegmentName(itemName string, dt time.Time, reserve int) string {
	suffix := Separator + FormatCompact(dt)
	return truncate(itemName, CampaignNameMaxLength-len(suffix)-reserve) + suffix
}

// Hash returns the hex SHA-256 of a token, used as the segment uid tag value.
func Hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// truncate shortens s to at most n runes. Attribute length limits in the
// external service count characters, not bytes, and item names are usually
// Japanese.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
