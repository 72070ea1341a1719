// internal/bridge/payload.go
package bridge

import (
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrEmptyPayload is returned for frames that carry no data.
var ErrEmptyPayload = errors.New("bridge: empty payload")

// Envelope is the cloud event wrapper carried in an SSE data line.
type Envelope struct {
	Data        string `json:"data"`
	TTL         int    `json:"ttl"`
	PublishedAt string `json:"published_at"`
	CoreID      string `json:"coreid"`
}

// KV is one expanded key/value pair, in payload order.
type KV struct {
	Key   string
	Value string
}

// DecodeEnvelope parses one SSE data line.
func DecodeEnvelope(data string) (Envelope, error) {
	var env Envelope
	if strings.TrimSpace(data) == "" {
		return env, ErrEmptyPayload
	}
	if err := json.UnmarshalFromString(data, &env); err != nil {
		return env, fmt.Errorf("bridge: decode envelope: %w", err)
	}
	return env, nil
}

// ExpandCompact expands the compact "k:v,k:v" device payload.
// Keys are trimmed; a pair without ':' or with an empty key is an error.
func ExpandCompact(raw string) ([]KV, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyPayload
	}

	parts := strings.Split(raw, ",")
	out := make([]KV, 0, len(parts))

	for _, p := range parts {
		k, v, ok := strings.Cut(p, ":")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("bridge: malformed pair %q", p)
		}
		out = append(out, KV{Key: k, Value: strings.TrimSpace(v)})
	}
	return out, nil
}
