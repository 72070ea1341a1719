// internal/publicip/resolver.go
package publicip

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/ssh-relay/internal/netaddr"
	"github.com/tamzrod/ssh-relay/internal/status"
)

// Requester publishes the public-IP request event to the cloud.
type Requester interface {
	PublishEvent(ctx context.Context, name, data string) error
}

// Options configures a Resolver. Zero values disable the optional parts.
type Options struct {
	// LookupURL enables a direct HTTP lookup alongside the cloud request.
	LookupURL string
	Timeout   time.Duration
	Client    *http.Client
}

// Resolver turns cloud responses and lookups into completed Pending values.
// Nothing here touches reporter state; the main loop drains Pending.
type Resolver struct {
	pending *Pending
	req     Requester
	opts    Options
	logger  *zap.Logger
}

func NewResolver(p *Pending, req Requester, opts Options, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &Resolver{pending: p, req: req, opts: opts, logger: logger}
}

// Handler is the subscription callback for the public-IP topic.
// Payloads that are not a dotted quad are ignored.
func (r *Resolver) Handler(eventName, data string) {
	a, err := netaddr.ParseIPv4(strings.TrimSpace(data))
	if err != nil {
		r.logger.Debug("ignoring public ip payload",
			zap.String("event", eventName),
			zap.String("data", data),
			zap.Error(err),
		)
		return
	}
	r.pending.Complete(netaddr.IPToString(a))
}

// GetPublicIP is the remote function body: 0 on request sent, -1 on failure.
func (r *Resolver) GetPublicIP(_ string) int {
	ctx, cancel := context.WithTimeout(context.Background(), r.opts.Timeout)
	defer cancel()

	if err := r.Request(ctx); err != nil {
		return -1
	}
	return 0
}

// Request asks the cloud for the public address and, when configured,
// starts an HTTP lookup in the background. The answer arrives via Pending.
func (r *Resolver) Request(ctx context.Context) error {
	if r.opts.LookupURL != "" {
		go r.lookup()
	}

	if r.req == nil {
		return nil
	}
	if err := r.req.PublishEvent(ctx, status.NamePublicIPTopic, ""); err != nil {
		r.logger.Warn("public ip request failed", zap.Error(err))
		return err
	}
	return nil
}

func (r *Resolver) lookup() {
	ctx, cancel := context.WithTimeout(context.Background(), r.opts.Timeout)
	defer cancel()

	addr, err := Lookup(ctx, r.opts.Client, r.opts.LookupURL)
	if err != nil {
		r.logger.Warn("public ip lookup failed", zap.Error(err))
		return
	}
	r.pending.Complete(addr)
}
