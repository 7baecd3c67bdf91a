package conversation

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/kendrekaran/AI-Chatbots/pkg/settings"
)

// ErrMalformedSnapshot is returned when an imported snapshot is missing
// required fields or has the wrong shape. Importing a malformed snapshot
// leaves the current session untouched.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// Snapshot is the complete serialized representation of a session and its
// settings at a point in time. It is both the durable auto-persisted state
// and the export/import file format.
type Snapshot struct {
	Messages   []*Message         `json:"messages"`
	Settings   *settings.Settings `json:"settings"`
	ExportedAt time.Time          `json:"exportedAt"`
}

func (s *Snapshot) Marshal() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// ParseSnapshot decodes and validates snapshot data. Both messages and
// settings must be present; their absence or a type mismatch yields
// ErrMalformedSnapshot.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var raw struct {
		Messages   *[]*Message        `json:"messages"`
		Settings   *settings.Settings `json:"settings"`
		ExportedAt time.Time          `json:"exportedAt"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(ErrMalformedSnapshot, "%s", err.Error())
	}
	if raw.Messages == nil {
		return nil, errors.Wrap(ErrMalformedSnapshot, "missing messages")
	}
	if raw.Settings == nil {
		return nil, errors.Wrap(ErrMalformedSnapshot, "missing settings")
	}

	for _, m := range *raw.Messages {
		if m == nil {
			return nil, errors.Wrap(ErrMalformedSnapshot, "null message")
		}
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return nil, errors.Wrapf(ErrMalformedSnapshot, "unknown role %q", m.Role)
		}
	}

	return &Snapshot{
		Messages:   *raw.Messages,
		Settings:   raw.Settings.Normalize(),
		ExportedAt: raw.ExportedAt,
	}, nil
}
