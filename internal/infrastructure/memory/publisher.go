package memory

import (
	"context"
	"sync"

	"github.com/baechuer/marketplace-auth/internal/application/auth"
)

// Outbox is a Notifier that keeps every message in memory.
// Tests and local tooling read links back out of it instead of a mailbox.
type Outbox struct {
	mu   sync.Mutex
	msgs []auth.Message
	err  error
}

func NewOutbox() *Outbox { return &Outbox{} }

func (o *Outbox) Send(ctx context.Context, msg auth.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.msgs = append(o.msgs, msg)
	return nil
}

// FailWith makes every later Send return err. Nil restores delivery.
func (o *Outbox) FailWith(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.err = err
}

func (o *Outbox) Messages() []auth.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]auth.Message, len(o.msgs))
	copy(out, o.msgs)
	return out
}

// Last returns the most recent message sent to addr.
func (o *Outbox) Last(addr string) (auth.Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.msgs) - 1; i >= 0; i-- {
		if o.msgs[i].To == addr {
			return o.msgs[i], true
		}
	}
	return auth.Message{}, false
}
