// internal/publicip/pending.go
package publicip

import "sync"

// Pending is a single-slot holder for an asynchronously resolved public IP.
//
// Writers (cloud callbacks, HTTP lookups) call Complete from any goroutine.
// The main loop drains it with Take; a newer result overwrites an older one.
type Pending struct {
	mu   sync.Mutex
	addr string
	set  bool
}

// Complete stores addr, replacing any value not yet taken.
func (p *Pending) Complete(addr string) {
	p.mu.Lock()
	p.addr = addr
	p.set = true
	p.mu.Unlock()
}

// Take returns the stored value and clears the slot.
func (p *Pending) Take() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.set {
		return "", false
	}
	addr := p.addr
	p.addr, p.set = "", false
	return addr, true
}
