package transcribe

import (
	"context"
	"errors"

	apperrors "github.com/GriffinCanCode/pushtalk/internal/errors"
	"github.com/GriffinCanCode/pushtalk/internal/resilience"
	"github.com/GriffinCanCode/pushtalk/internal/trace"
)

type guardedProvider struct {
	Provider
	breaker *resilience.Breaker
}

// Chain tries providers in order. Each provider sits behind its own circuit
// breaker and retry loop; the first success wins.
type Chain struct {
	providers []guardedProvider
	retry     resilience.RetryConfig
}

// NewChain creates a chain over providers.
func NewChain(retry resilience.RetryConfig, breaker resilience.Config, providers ...Provider) *Chain {
	c := &Chain{retry: retry}
	for _, p := range providers {
		c.providers = append(c.providers, guardedProvider{
			Provider: p,
			breaker:  resilience.New(p.Name(), breaker),
		})
	}
	return c
}

// OnBreakerTransition reports state changes of every provider's breaker to fn.
func (c *Chain) OnBreakerTransition(fn resilience.TransitionFunc) {
	for _, p := range c.providers {
		p.breaker.OnTransition(fn)
	}
}

// Transcribe implements Transcriber.
func (c *Chain) Transcribe(ctx context.Context, wav []byte, mode Mode, tc Context) (Result, error) {
	ctx, span := trace.StartSpan(ctx, "transcribe")
	defer span.End()
	span.SetAttr("mode", mode.String())
	log := trace.Logger(ctx)

	var errs []error
	for _, p := range c.providers {
		if !p.Supports(mode) {
			continue
		}

		res, err := resilience.Do(p.breaker, func() (Result, error) {
			var out Result
			err := resilience.Retry(ctx, c.retry, func() error {
				r, err := p.Transcribe(ctx, wav, mode, tc)
				if err != nil {
					return err
				}
				out = r
				return nil
			})
			return out, err
		})
		if err == nil {
			span.SetAttr("provider", p.Name())
			return res, nil
		}

		log.Warn("transcription provider failed", "provider", p.Name(), "error", err)
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}

	if len(errs) == 0 {
		return Result{}, apperrors.Newf(apperrors.Unavailable, "no transcription provider supports mode %s", mode)
	}
	return Result{}, apperrors.Wrap(errors.Join(errs...), apperrors.TranscriptionFailed, "all transcription providers failed")
}
