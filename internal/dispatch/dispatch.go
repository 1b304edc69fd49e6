// Package dispatch sends one outreach batch to a capped recipient
// list. A batch opens a single transport session, attempts every
// recipient exactly once, and partitions the outcome into successes
// and per-recipient failures. There is no retry and no dedup; the
// caller owns the recipient list.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/osteele/liquid"

	"github.com/ignite/cdp-console/internal/pkg/logger"
)

// ErrEmptyBatch signals a batch with no recipients. It is a
// configuration error: no session is opened and nothing is attempted.
var ErrEmptyBatch = errors.New("dispatch: empty recipient list")

// Transport produces one Session per batch. Opening the session is
// where connectivity and credentials are exercised; a failure there is
// batch-fatal with zero recipients attempted.
type Transport interface {
	Open(ctx context.Context) (Session, error)
	From() string
}

// Session is an open delivery channel. Send failures are per-recipient
// delivery errors, not session errors.
type Session interface {
	Send(from, to, subject, body string) error
	Close() error
}

// Failure records one recipient the batch could not deliver to.
type Failure struct {
	Recipient string `json:"recipient"`
	Reason    string `json:"reason"`
}

// Result is the outcome of one batch, in send order.
type Result struct {
	BatchID     uuid.UUID `json:"batch_id"`
	Successes   []string  `json:"successes"`
	Failures    []Failure `json:"failures"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Dispatcher renders the shared subject/body per recipient and drives
// the send loop over one transport session.
type Dispatcher struct {
	transport Transport
	engine    *liquid.Engine
}

// NewDispatcher creates a dispatcher over the given transport.
func NewDispatcher(transport Transport) *Dispatcher {
	return &Dispatcher{
		transport: transport,
		engine:    liquid.NewEngine(),
	}
}

// SendBatch delivers subject/body to every recipient. Subject and body
// are Liquid templates; {{ email }} binds to the recipient address.
// Configuration errors (empty list, unparsable template, session that
// cannot be opened) return a non-nil error with nothing attempted.
// Once the session is open every recipient is attempted exactly once;
// individual delivery failures accumulate in the result and never
// abort the remainder of the batch.
func (d *Dispatcher) SendBatch(ctx context.Context, recipients []string, subject, body string) (*Result, error) {
	if len(recipients) == 0 {
		return nil, ErrEmptyBatch
	}

	subjectTpl, perr := d.engine.ParseString(subject)
	if perr != nil {
		return nil, fmt.Errorf("dispatch: parse subject template: %w", perr)
	}
	bodyTpl, perr := d.engine.ParseString(body)
	if perr != nil {
		return nil, fmt.Errorf("dispatch: parse body template: %w", perr)
	}

	session, err := d.transport.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("dispatch: open session: %w", err)
	}
	defer session.Close()

	result := &Result{
		BatchID:   uuid.New(),
		StartedAt: time.Now(),
	}
	from := d.transport.From()

	for _, to := range recipients {
		bindings := liquid.Bindings{"email": to}

		var rerr error
		subj, serr := subjectTpl.RenderString(bindings)
		if serr != nil {
			rerr = serr
		} else if msg, berr := bodyTpl.RenderString(bindings); berr != nil {
			rerr = berr
		} else {
			rerr = session.Send(from, to, subj, msg)
		}

		if rerr != nil {
			logger.Warn("outreach send failed",
				"batch_id", result.BatchID.String(),
				"recipient", logger.RedactEmail(to),
				"error", rerr.Error())
			result.Failures = append(result.Failures, Failure{Recipient: to, Reason: rerr.Error()})
			continue
		}
		result.Successes = append(result.Successes, to)
	}

	result.CompletedAt = time.Now()
	logger.Info("outreach batch complete",
		"batch_id", result.BatchID.String(),
		"sent", len(result.Successes),
		"failed", len(result.Failures))
	return result, nil
}
