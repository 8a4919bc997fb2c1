package speech

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"github.com/soulweave/rose/config"
	myerrors "github.com/soulweave/rose/errors"
)

// Policy unifies retry and circuit breaking around a single invoke
// capability so the CLOSED/OPEN/HALF_OPEN transitions and failure counting
// live in exactly one place, shared by both adapters.
type Policy struct {
	breaker     *gobreaker.CircuitBreaker
	maxAttempts int
}

func NewPolicy(name string, conf *config.SpeechConfig) *Policy {
	threshold := uint32(conf.BreakerThreshold)

	// The retry budget includes the first attempt; anything below one would
	// underflow the backoff counter.
	maxAttempts := conf.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &Policy{
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     conf.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			// Invalid input is the caller's problem, not a sign of a
			// degraded dependency; it must not open the circuit.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, myerrors.ErrInvalidInput)
			},
		}),
		maxAttempts: maxAttempts,
	}
}

// Do runs op under the policy: bounded exponential-backoff retries for
// transient failures inside a single breaker-counted invocation. Invalid
// input short-circuits the retries. A rejected call (breaker open) surfaces
// as ErrUnavailable without touching the network.
func (p *Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	_, err := p.breaker.Execute(func() (any, error) {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = 200 * time.Millisecond
		bo.MaxElapsedTime = 0

		return nil, backoff.Retry(func() error {
			err := op(ctx)
			if err == nil {
				return nil
			}
			if errors.Is(err, myerrors.ErrInvalidInput) {
				return backoff.Permanent(err)
			}
			return err
		}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(p.maxAttempts-1)), ctx))
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Wrapf(myerrors.ErrUnavailable, "%s circuit open", p.breaker.Name())
	}

	return err
}

// State exposes the breaker state for observability and tests.
func (p *Policy) State() gobreaker.State {
	return p.breaker.State()
}

type (
	// ResilientTranscriber guards a Transcriber with a per-call timeout and
	// the shared retry/breaker policy.
	ResilientTranscriber struct {
		inner   Transcriber
		policy  *Policy
		timeout time.Duration
	}

	// ResilientSynthesizer does the same for a Synthesizer.
	ResilientSynthesizer struct {
		inner   Synthesizer
		policy  *Policy
		timeout time.Duration
	}
)

var (
	_ Transcriber = (*ResilientTranscriber)(nil)
	_ Synthesizer = (*ResilientSynthesizer)(nil)
)

func NewResilientTranscriber(inner Transcriber, conf *config.SpeechConfig) *ResilientTranscriber {
	return &ResilientTranscriber{
		inner:   inner,
		policy:  NewPolicy("stt", conf),
		timeout: conf.STTTimeout,
	}
}

func NewResilientSynthesizer(inner Synthesizer, conf *config.SpeechConfig) *ResilientSynthesizer {
	return &ResilientSynthesizer{
		inner:   inner,
		policy:  NewPolicy("tts", conf),
		timeout: conf.TTSTimeout,
	}
}

func (r *ResilientTranscriber) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	var out string
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		text, err := r.inner.Transcribe(ctx, audio, format)
		if err != nil {
			return err
		}
		out = text
		return nil
	})
	return out, err
}

func (r *ResilientTranscriber) Policy() *Policy {
	return r.policy
}

func (r *ResilientSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	var out []byte
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		audio, err := r.inner.Synthesize(ctx, text)
		if err != nil {
			return err
		}
		out = audio
		return nil
	})
	return out, err
}

func (r *ResilientSynthesizer) Policy() *Policy {
	return r.policy
}
