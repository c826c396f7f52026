// Package verify checks record email slots against the verification
// provider, pacing outbound calls to stay inside its rate limits.
package verify

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BlendBerisha/businessscrapper/internal/model"
	"github.com/BlendBerisha/businessscrapper/pkg/millionverifier"
)

// DefaultPacing is the minimum interval between verification calls.
const DefaultPacing = 300 * time.Millisecond

// Pacer gates each outbound verification call.
type Pacer interface {
	Wait(ctx context.Context) error
}

// IntervalPacer paces calls to at most one per interval.
type IntervalPacer struct {
	limiter *rate.Limiter
}

// NewIntervalPacer creates a Pacer allowing one call per interval.
func NewIntervalPacer(interval time.Duration) *IntervalPacer {
	return &IntervalPacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

func (p *IntervalPacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Verifier runs slot-level email verification over raw records.
type Verifier struct {
	client millionverifier.Client
	pacer  Pacer
}

// NewVerifier creates a Verifier over the given provider client and
// pacer.
func NewVerifier(client millionverifier.Client, pacer Pacer) *Verifier {
	if pacer == nil {
		pacer = NewIntervalPacer(DefaultPacing)
	}
	return &Verifier{client: client, pacer: pacer}
}

// VerifyRecord checks every populated email slot of r independently and
// marks the record valid when at least one slot verifies.
//
// Slots without an "@" are invalid without a provider call. A provider
// error on one slot marks only that slot invalid; the remaining slots
// are still checked. Only context cancellation aborts the record.
func (v *Verifier) VerifyRecord(ctx context.Context, r *model.RawRecord) error {
	r.SlotValid = [model.NumEmailSlots]bool{}
	r.IsEmailValid = false

	for i := 0; i < model.NumEmailSlots; i++ {
		email := r.Slot(i).Email
		if email == "" || !strings.Contains(email, "@") {
			continue
		}

		if err := v.pacer.Wait(ctx); err != nil {
			return err
		}

		result, err := v.client.Verify(ctx, email)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			zap.L().Warn("email verification call failed",
				zap.String("email", email),
				zap.Error(err),
			)
			continue
		}

		if result.IsValid() {
			r.SlotValid[i] = true
			r.IsEmailValid = true
		}
	}
	return nil
}

// VerifyAll verifies records in order, mutating each in place.
func (v *Verifier) VerifyAll(ctx context.Context, records []model.RawRecord) error {
	for i := range records {
		if err := v.VerifyRecord(ctx, &records[i]); err != nil {
			return err
		}
	}
	return nil
}
