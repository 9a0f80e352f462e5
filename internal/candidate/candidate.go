// Package candidate models the profile records served by the discovery feed.
package candidate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DefaultPhotoURL is rendered when a profile carries no photo reference.
const DefaultPhotoURL = "/default-avatar.jpg"

// Candidate is a profile awaiting a decision. Values are never mutated once
// decoded; optional fields are left at their zero value when absent.
type Candidate struct {
	ID        string `json:"_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	PhotoURL  string `json:"photoUrl,omitempty"`
	Age       int    `json:"age,omitempty"`
	Gender    string `json:"gender,omitempty"`
	About     string `json:"about,omitempty"`
}

type wireCandidate struct {
	MongoID   string          `json:"_id"`
	ID        string          `json:"id"`
	FirstName string          `json:"firstName"`
	LastName  string          `json:"lastName"`
	PhotoURL  string          `json:"photoUrl"`
	Age       json.RawMessage `json:"age"`
	Gender    string          `json:"gender"`
	About     string          `json:"about"`
}

// UnmarshalJSON accepts either `_id` or `id` and tolerates ages sent as
// strings.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	var w wireCandidate
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	id := strings.TrimSpace(w.MongoID)
	if id == "" {
		id = strings.TrimSpace(w.ID)
	}
	*c = Candidate{
		ID:        id,
		FirstName: strings.TrimSpace(w.FirstName),
		LastName:  strings.TrimSpace(w.LastName),
		PhotoURL:  strings.TrimSpace(w.PhotoURL),
		Age:       parseAge(w.Age),
		Gender:    strings.TrimSpace(w.Gender),
		About:     strings.TrimSpace(w.About),
	}
	return nil
}

func parseAge(raw json.RawMessage) int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return v
		}
	}
	return 0
}

// DisplayName joins the name parts, skipping empty ones.
func (c Candidate) DisplayName() string {
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if name == "" {
		return "Unknown"
	}
	return name
}

// Badge renders the "age, gender" summary shown beside the name. It returns
// an empty string when neither is known.
func (c Candidate) Badge() string {
	var parts []string
	if c.Age > 0 {
		parts = append(parts, strconv.Itoa(c.Age))
	}
	if c.Gender != "" {
		parts = append(parts, c.Gender)
	}
	return strings.Join(parts, ", ")
}

// Photo returns the photo reference or the default avatar.
func (c Candidate) Photo() string {
	if c.PhotoURL == "" {
		return DefaultPhotoURL
	}
	return c.PhotoURL
}

// Valid reports whether the record can be queued.
func (c Candidate) Valid() bool {
	return c.ID != ""
}

type listEnvelope struct {
	Data        json.RawMessage `json:"data"`
	Connections json.RawMessage `json:"connections"`
}

// DecodeList normalizes the three shapes the backend is known to return:
// `{"data": [...]}`, `{"connections": [...]}` and a bare array. Null entries
// and records without an id are dropped. An object with neither key yields an
// empty list.
func DecodeList(body []byte) ([]Candidate, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}
	var raw []json.RawMessage
	switch body[0] {
	case '[':
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("candidate: decode list: %w", err)
		}
	case '{':
		var env listEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, fmt.Errorf("candidate: decode envelope: %w", err)
		}
		switch {
		case isArray(env.Data):
			raw = mustArray(env.Data)
		case isArray(env.Connections):
			raw = mustArray(env.Connections)
		}
	case 'n':
		return nil, nil
	default:
		return nil, fmt.Errorf("candidate: unexpected payload starting with %q", body[0])
	}
	out := make([]Candidate, 0, len(raw))
	for _, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || bytes.Equal(item, []byte("null")) {
			continue
		}
		var c Candidate
		if err := json.Unmarshal(item, &c); err != nil {
			continue
		}
		if !c.Valid() {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func mustArray(raw json.RawMessage) []json.RawMessage {
	var out []json.RawMessage
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
