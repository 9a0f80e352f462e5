package candidate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ReviewStatus is the verdict on an inbound connection request.
type ReviewStatus string

const (
	ReviewAccepted ReviewStatus = "accepted"
	ReviewRejected ReviewStatus = "rejected"
)

// Valid reports whether s is a known review status.
func (s ReviewStatus) Valid() bool {
	return s == ReviewAccepted || s == ReviewRejected
}

// Request is a pending inbound connection request.
type Request struct {
	ID   string     `json:"_id"`
	From *Candidate `json:"fromUserId"`
}

// Sender returns the requesting profile, or a placeholder when absent.
func (r Request) Sender() Candidate {
	if r.From == nil {
		return Candidate{FirstName: "Unknown"}
	}
	return *r.From
}

// DecodeRequests parses `{"data": [...]}`. Entries that fail to decode, lack
// an id, or lack a sender first name are dropped. A body that is not an object
// or has no `data` array yields an empty list.
func DecodeRequests(body []byte) ([]Request, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return nil, nil
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("candidate: decode requests: %w", err)
	}
	if !isArray(env.Data) {
		return nil, nil
	}
	raw := mustArray(env.Data)
	out := make([]Request, 0, len(raw))
	for _, item := range raw {
		var r *Request
		if err := json.Unmarshal(item, &r); err != nil || r == nil {
			continue
		}
		if strings.TrimSpace(r.ID) == "" {
			continue
		}
		if r.From == nil || r.From.FirstName == "" {
			continue
		}
		r.ID = strings.TrimSpace(r.ID)
		out = append(out, *r)
	}
	return out, nil
}
