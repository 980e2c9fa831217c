// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/bending/bendboot/internal/isolation"
	"github.com/bending/bendboot/pkg/manifest"
)

const (
	// DefaultWorkers bounds concurrent fetches.
	DefaultWorkers = 4
	// DefaultFetchTimeout bounds one fetch attempt of one artifact.
	DefaultFetchTimeout = 30 * time.Second
	// DefaultRetries is the number of retries after the first attempt for transient errors.
	DefaultRetries = 3

	defaultRetryInterval = 250 * time.Millisecond
	maxRetryInterval     = 5 * time.Second

	tracerName = "github.com/bending/bendboot/internal/provision"
)

type (
	// Provisioner fetches and attaches missing dependencies. It holds no
	// per-call state and may be reused; each Provision call gets a fresh boundary.
	Provisioner struct {
		cache         *Cache
		namespace     string
		sources       []Source
		workers       int
		fetchTimeout  time.Duration
		retries       int
		retryInterval time.Duration
		logger        *log.Logger
		tracer        trace.Tracer
	}

	// Option configures a Provisioner.
	Option func(*Provisioner)
)

// WithSources sets the fetch sources, tried in order.
func WithSources(sources ...Source) Option {
	return func(p *Provisioner) { p.sources = append(p.sources, sources...) }
}

// WithWorkers bounds concurrent fetches. Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(p *Provisioner) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithFetchTimeout bounds each fetch attempt. Values <= 0 are ignored.
func WithFetchTimeout(d time.Duration) Option {
	return func(p *Provisioner) {
		if d > 0 {
			p.fetchTimeout = d
		}
	}
}

// WithRetries sets how many times a transient failure is retried. 0 disables retries.
func WithRetries(n int) Option {
	return func(p *Provisioner) {
		if n >= 0 {
			p.retries = n
		}
	}
}

// WithRetryInterval sets the initial backoff interval.
func WithRetryInterval(d time.Duration) Option {
	return func(p *Provisioner) {
		if d > 0 {
			p.retryInterval = d
		}
	}
}

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(logger *log.Logger) Option {
	return func(p *Provisioner) { p.logger = logger }
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Provisioner) { p.tracer = tp.Tracer(tracerName) }
}

// New creates a Provisioner that attaches into boundaries named namespace.
func New(cache *Cache, namespace string, opts ...Option) *Provisioner {
	p := &Provisioner{
		cache:         cache,
		namespace:     namespace,
		workers:       DefaultWorkers,
		fetchTimeout:  DefaultFetchTimeout,
		retries:       DefaultRetries,
		retryInterval: defaultRetryInterval,
		logger:        log.New(io.Discard),
		tracer:        otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Namespace returns the isolation namespace boundaries are created with.
func (p *Provisioner) Namespace() string { return p.namespace }

// Provision makes every entry of missing available in a new, sealed boundary.
//
// If a required entry fails the boundary is closed and nil is returned together
// with the error; the Report is returned in every case. Cancelling ctx fails the
// call as a whole once any entry was left unprovisioned, optional ones included.
func (p *Provisioner) Provision(ctx context.Context, missing []manifest.Entry) (*isolation.Boundary, Report, error) {
	boundary, err := isolation.New(p.namespace)
	if err != nil {
		return nil, Report{}, err
	}

	ctx, span := p.tracer.Start(ctx, "provision", trace.WithAttributes(
		attribute.String("bendboot.namespace", p.namespace),
		attribute.Int("bendboot.entries", len(missing)),
	))
	defer span.End()

	var fetches atomic.Int64
	outcomes := make([]Outcome, len(missing))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, e := range missing {
		g.Go(func() error {
			out, err := p.provisionOne(gctx, e, &fetches)
			if err == nil {
				err = boundary.Attach(e, out.Path)
			}
			if err != nil {
				outcomes[i] = Outcome{Entry: e, Source: out.Source, Err: err}
				if e.Required {
					return err
				}
				p.logger.Warn("optional dependency skipped", "coordinate", e.Coordinate, "version", e.Version, "err", err)
				return nil
			}
			outcomes[i] = out
			return nil
		})
	}
	err = g.Wait()
	if err == nil && ctx.Err() != nil {
		err = interrupted(ctx.Err(), outcomes)
	}

	report := newReport(outcomes, fetches.Load())
	span.SetAttributes(attribute.Int("bendboot.fetches", report.Fetches), attribute.Int("bendboot.cache_hits", report.CacheHits()))

	if err != nil {
		_ = boundary.Close()
		span.RecordError(err)
		span.SetStatus(codes.Error, "required dependency failed")
		return nil, report, err
	}

	boundary.Seal()
	p.logger.Info("dependencies provisioned",
		"attached", len(report.Attached), "cached", report.CacheHits(), "skipped", len(report.Skipped), "fetches", report.Fetches)
	return boundary, report, nil
}

// interrupted returns a *FetchError for the first entry cancellation left
// without an artifact, or nil when every entry was already provisioned.
func interrupted(cause error, outcomes []Outcome) error {
	for _, o := range outcomes {
		if o.Err != nil {
			return &FetchError{Entry: o.Entry, Source: o.Source, Err: cause}
		}
	}
	return nil
}

func (p *Provisioner) provisionOne(ctx context.Context, e manifest.Entry, fetches *atomic.Int64) (out Outcome, err error) {
	ctx, span := p.tracer.Start(ctx, "provision.fetch", trace.WithAttributes(
		attribute.String("bendboot.coordinate", string(e.Coordinate)),
		attribute.String("bendboot.version", e.Version),
		attribute.Bool("bendboot.required", e.Required),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	out = Outcome{Entry: e}

	path, hit, err := p.cache.Verified(e)
	switch {
	case hit:
		span.SetAttributes(attribute.Bool("bendboot.cached", true))
		p.logger.Debug("dependency cached", "coordinate", e.Coordinate, "version", e.Version)
		out.Path, out.Source, out.Cached = path, cacheSourceName, true
		return out, nil
	case errors.Is(err, ErrIntegrityFailure):
		p.logger.Warn("cached artifact failed verification; refetching", "coordinate", e.Coordinate, "path", path)
	case err != nil:
		return out, fmt.Errorf("reading cache for %s: %w", e, err)
	}

	if len(p.sources) == 0 {
		return out, &FetchError{Entry: e, Err: ErrNoSources}
	}

	var (
		lastErr   error
		integrity *IntegrityError
	)
	for _, src := range p.sources {
		path, err := p.fetchFrom(ctx, src, e, fetches)
		if err == nil {
			p.logger.Info("dependency fetched", "coordinate", e.Coordinate, "version", e.Version, "source", src.Name())
			out.Path, out.Source = path, src.Name()
			return out, nil
		}
		if ctx.Err() != nil {
			return out, err
		}

		var ie *IntegrityError
		if errors.As(err, &ie) {
			// Another source may serve the genuine bytes; these are never retried.
			p.logger.Warn("checksum mismatch", "coordinate", e.Coordinate, "source", src.Name(), "got", ie.Got.Hex())
			integrity = ie
			continue
		}
		p.logger.Debug("source failed", "coordinate", e.Coordinate, "source", src.Name(), "err", err)
		lastErr = err
	}

	if integrity != nil {
		return out, integrity
	}
	return out, lastErr
}

// fetchFrom retrieves e from one source, retrying transient failures with
// exponential backoff. Not-found and integrity failures are permanent.
func (p *Provisioner) fetchFrom(ctx context.Context, src Source, e manifest.Entry, fetches *atomic.Int64) (string, error) {
	var path string
	op := func() error {
		fetchCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
		defer cancel()

		fetches.Add(1)
		body, err := src.Fetch(fetchCtx, e)
		if err != nil {
			return p.classify(ctx, fetchCtx, src, e, err)
		}
		defer func() { _ = body.Close() }() // read-only response body

		path, err = p.cache.Store(e, src.Name(), body)
		if err != nil {
			if errors.Is(err, ErrIntegrityFailure) {
				return backoff.Permanent(err)
			}
			return p.classify(ctx, fetchCtx, src, e, err)
		}
		return nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = p.retryInterval
	expo.MaxInterval = maxRetryInterval
	expo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(p.retries)), ctx)

	notify := func(err error, wait time.Duration) {
		p.logger.Warn("fetch failed; retrying", "coordinate", e.Coordinate, "source", src.Name(), "wait", wait, "err", err)
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		var fe *FetchError
		var ie *IntegrityError
		if errors.As(err, &fe) || errors.As(err, &ie) {
			return "", err
		}
		return "", &FetchError{Entry: e, Source: src.Name(), Err: err}
	}
	return path, nil
}

// classify wraps err in a *FetchError and marks it permanent unless retrying
// could help.
func (p *Provisioner) classify(ctx, fetchCtx context.Context, src Source, e manifest.Entry, err error) error {
	fe := &FetchError{Entry: e, Source: src.Name(), Err: err}

	if ctx.Err() != nil {
		fe.Err = ctx.Err()
		return backoff.Permanent(fe)
	}
	if errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
		fe.Timeout = true
		fe.Err = fmt.Errorf("no response within %s: %w", p.fetchTimeout, err)
		return fe
	}
	if errors.Is(err, ErrArtifactNotFound) {
		return backoff.Permanent(fe)
	}
	var se *StatusError
	if errors.As(err, &se) && !se.Temporary() {
		return backoff.Permanent(fe)
	}
	return fe
}
