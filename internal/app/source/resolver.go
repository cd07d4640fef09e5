// Package source resolves a playable audio source for a collection.
//
// Locators are tried in order. For each candidate the stream source is set,
// a load is triggered and the resolver waits, bounded by a timeout, for the
// stream to report metadata, readiness or an error.
package source

import (
	"context"
	"math"
	"time"

	"github.com/osa030/versesync/internal/domain/media"
	"github.com/osa030/versesync/internal/infra/logger"
)

var log = logger.Component("source")

// DefaultTimeout bounds the wait for a single candidate source.
const DefaultTimeout = 4000 * time.Millisecond

// Loader is the part of a stream the resolver drives.
type Loader interface {
	SetSource(src string)
	Load()
	Subscribe(fn func(media.Signal)) func()
	Duration() float64
	SetDuration(sec float64)
}

// Outcome is the result of waiting for one candidate source.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeError
	OutcomeTimeout
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeError:
		return "error"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Result describes the resolved source. Callers must not play when Ready is false.
type Result struct {
	Ready       bool
	DurationSec float64
	Source      string
}

// Resolver finds the first locator whose source the stream can load.
type Resolver struct {
	stream   Loader
	meta     Metadata
	locators []Locator
	timeout  time.Duration
}

// NewResolver creates a new resolver. A non-positive timeout selects DefaultTimeout.
func NewResolver(stream Loader, meta Metadata, locators []Locator, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{
		stream:   stream,
		meta:     meta,
		locators: locators,
		timeout:  timeout,
	}
}

// Resolve points the stream at the first loadable source for the collection.
func (r *Resolver) Resolve(ctx context.Context, collection int) Result {
	for i, l := range r.locators {
		src, ok := l.Locate(collection)
		if !ok {
			log.Debug().Msgf("locator has no source: collection=%d locator=%s", collection, l.Name())
			continue
		}

		log.Debug().Msgf("trying locator: index=%d total=%d collection=%d locator=%s src=%s",
			i+1, len(r.locators), collection, l.Name(), src)

		outcome := r.await(ctx, src)
		if outcome != OutcomeOK {
			log.Warn().Msgf("locator failed, trying next: collection=%d locator=%s outcome=%s", collection, l.Name(), outcome)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		result := Result{Ready: true, Source: src, DurationSec: r.stream.Duration()}
		if !validDuration(result.DurationSec) {
			result.DurationSec = 0
			if r.meta != nil {
				if _, d, ok := r.meta.AudioMeta(collection); ok && validDuration(d) {
					result.DurationSec = d
					// The stream needs it to report the end.
					r.stream.SetDuration(d)
				}
			}
		}
		log.Info().Msgf("resolved: collection=%d locator=%s duration=%.3f", collection, l.Name(), result.DurationSec)
		return result
	}

	log.Warn().Msgf("no loadable source: collection=%d", collection)
	return Result{}
}

// await sets the source, triggers a load and waits for the first load signal.
// The listener is registered before the source changes so no signal is missed.
func (r *Resolver) await(ctx context.Context, src string) Outcome {
	settled := make(chan media.SignalType, 1)
	unsubscribe := r.stream.Subscribe(func(s media.Signal) {
		if !s.Type.IsLoad() || s.Source != src {
			return
		}
		select {
		case settled <- s.Type:
		default:
		}
	})
	defer unsubscribe()

	r.stream.SetSource(src)
	r.stream.Load()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case t := <-settled:
		if t == media.SignalError {
			return OutcomeError
		}
		return OutcomeOK
	case <-timer.C:
		return OutcomeTimeout
	case <-ctx.Done():
		return OutcomeError
	}
}

func validDuration(d float64) bool {
	return d > 0 && !math.IsNaN(d) && !math.IsInf(d, 0)
}
