// internal/publicip/lookup.go
package publicip

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tamzrod/ssh-relay/internal/netaddr"
)

// maxBody bounds the lookup response; a dotted quad is at most 15 bytes.
const maxBody = 64

// Lookup fetches the public address from a plain-text HTTP endpoint
// (e.g. https://api.ipify.org) and returns it as a dotted quad.
func Lookup(ctx context.Context, client *http.Client, url string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("publicip: build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("publicip: lookup %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("publicip: lookup %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("publicip: read body: %w", err)
	}

	a, err := netaddr.ParseIPv4(strings.TrimSpace(string(body)))
	if err != nil {
		return "", fmt.Errorf("publicip: %w", err)
	}
	return netaddr.IPToString(a), nil
}
