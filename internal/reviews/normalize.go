package reviews

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ProviderReview is one review as normalized from a provider page
type ProviderReview struct {
	ExternalID string    `json:"externalId,omitempty"`
	AuthorName string    `json:"authorName"`
	Rating     float64   `json:"rating"`
	Text       string    `json:"text"`
	OwnerReply string    `json:"ownerReply,omitempty"`
	Date       time.Time `json:"date"` // zero when the provider gave no usable date
}

// Page is one normalized provider response
type Page struct {
	Reviews           []ProviderReview
	ContinuationToken string
}

// reviewMarkers are the fields whose presence makes an object a review
var reviewMarkers = []string{"rating", "user", "snippet", "text"}

// wrapperKeys hold the review array inside a wrapped response, in lookup order
var wrapperKeys = []string{"data", "reviews", "result"}

// NormalizePage converts every observed response shape into a Page:
//   - a bare array of reviews (last page)
//   - an array whose trailing element is a continuation token
//   - an object wrapping the array under data/reviews/result
//
// now anchors relative dates such as "3 weeks ago".
func NormalizePage(raw []byte, now time.Time) (*Page, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return &Page{}, nil
	}

	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("failed to decode review array: %w", err)
		}
		return normalizeArray(items, now), nil

	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("failed to decode review object: %w", err)
		}
		return normalizeWrapped(obj, now)

	default:
		return nil, fmt.Errorf("unexpected response shape starting with %q", raw[0])
	}
}

func normalizeArray(items []json.RawMessage, now time.Time) *Page {
	page := &Page{}
	if len(items) == 0 {
		return page
	}

	last := items[len(items)-1]
	if token, ok := trailingToken(last); ok {
		page.ContinuationToken = token
		items = items[:len(items)-1]
	}

	page.Reviews = make([]ProviderReview, 0, len(items))
	for _, item := range items {
		obj, ok := decodeObject(item)
		if !ok || !isReview(obj) {
			continue
		}
		page.Reviews = append(page.Reviews, normalizeReview(obj, now))
	}
	return page
}

// trailingToken reports whether the last array element is a token rather
// than a review. Strings are tokens verbatim; a non-review object yields its
// token field when present, else its raw JSON.
func trailingToken(item json.RawMessage) (string, bool) {
	item = bytes.TrimSpace(item)
	if len(item) == 0 {
		return "", false
	}

	if item[0] == '"' {
		var s string
		if err := json.Unmarshal(item, &s); err != nil || s == "" {
			return "", false
		}
		return s, true
	}

	obj, ok := decodeObject(item)
	if !ok || isReview(obj) {
		return "", false
	}
	if token := firstString(obj, "next_page_token", "token"); token != "" {
		return token, true
	}
	return string(item), true
}

func normalizeWrapped(obj map[string]json.RawMessage, now time.Time) (*Page, error) {
	page := &Page{}
	for _, key := range wrapperKeys {
		inner, ok := obj[key]
		if !ok {
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(inner, &items); err != nil {
			continue
		}
		page = normalizeArray(items, now)
		break
	}

	if token := wrapperToken(obj); token != "" {
		page.ContinuationToken = token
	}
	return page, nil
}

func wrapperToken(obj map[string]json.RawMessage) string {
	if token := firstString(obj, "next_page_token", "token"); token != "" {
		return token
	}
	for _, key := range []string{"pagination", "serpapi_pagination"} {
		if nested, ok := decodeObject(obj[key]); ok {
			if token := firstString(nested, "next_page_token"); token != "" {
				return token
			}
		}
	}
	return ""
}

func isReview(obj map[string]json.RawMessage) bool {
	for _, k := range reviewMarkers {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}

func normalizeReview(obj map[string]json.RawMessage, now time.Time) ProviderReview {
	r := ProviderReview{
		ExternalID: firstString(obj, "review_id", "id"),
		Rating:     parseRating(obj["rating"]),
		Text:       strings.TrimSpace(firstString(obj, "snippet", "text")),
	}

	if r.Text == "" {
		if extracted, ok := decodeObject(obj["extracted_snippet"]); ok {
			r.Text = strings.TrimSpace(firstString(extracted, "original"))
		}
	}
	if r.Text == "" {
		r.Text = strings.TrimSpace(firstString(obj, "comment"))
	}

	if user, ok := decodeObject(obj["user"]); ok {
		r.AuthorName = firstString(user, "name")
	}
	if r.AuthorName == "" {
		r.AuthorName = firstString(obj, "author_name", "author")
	}
	r.AuthorName = strings.TrimSpace(r.AuthorName)

	if response, ok := decodeObject(obj["response"]); ok {
		r.OwnerReply = firstString(response, "snippet")
	}
	if r.OwnerReply == "" {
		r.OwnerReply = firstString(obj, "owner_reply")
	}

	for _, key := range []string{"iso_date", "date", "published_at"} {
		if d, ok := parseDate(firstString(obj, key), now); ok {
			r.Date = d
			break
		}
	}
	return r
}

func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// firstString returns the first key holding a non-empty string
func firstString(obj map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		raw, ok := obj[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}

// parseRating accepts a JSON number or numeric string
func parseRating(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
	}
	return 0
}

var relativeDateRe = regexp.MustCompile(`^(a|an|\d+)\s+(minute|hour|day|week|month|year)s?\s+ago$`)

func parseDate(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	lower := strings.ToLower(s)
	switch lower {
	case "today", "just now":
		return now, true
	case "yesterday":
		return now.AddDate(0, 0, -1), true
	}

	m := relativeDateRe.FindStringSubmatch(lower)
	if m == nil {
		return time.Time{}, false
	}
	n := 1
	if m[1] != "a" && m[1] != "an" {
		n, _ = strconv.Atoi(m[1])
	}
	switch m[2] {
	case "minute":
		return now.Add(-time.Duration(n) * time.Minute), true
	case "hour":
		return now.Add(-time.Duration(n) * time.Hour), true
	case "day":
		return now.AddDate(0, 0, -n), true
	case "week":
		return now.AddDate(0, 0, -7*n), true
	case "month":
		return now.AddDate(0, -n, 0), true
	default:
		return now.AddDate(-n, 0, 0), true
	}
}
