// Package provider implements the Provider Registry: URL recognition,
// descriptor extraction, and playable-URL resolution for every supported
// source. Each source gets its own rate limiter and circuit breaker so a
// struggling upstream (netease rate-limiting us, a dead soundcloud embed
// endpoint) degrades only that source's admissions, not the whole registry.
package provider

import (
	"context"
	"time"

	"github.com/sonanterra/queueengine/internal/errkind"
	"github.com/sonanterra/queueengine/internal/track"
)

// Resolver turns a Descriptor into a directly-streamable URL. Sources whose
// canonical URL already points at a raw media file (catbox, generic) can
// resolve locally; sources that require a platform-specific extraction step
// (youtube, bilibili, netease, soundcloud) delegate to an injected Resolver,
// since that step typically needs a capability (e.g. an external extractor
// process) this module does not ship.
type Resolver interface {
	ResolvePlayable(ctx context.Context, d track.Descriptor) (string, error)
}

// IdentityResolver resolves a descriptor to its own canonical URL unchanged.
type IdentityResolver struct{}

func (IdentityResolver) ResolvePlayable(_ context.Context, d track.Descriptor) (string, error) {
	return d.CanonicalURL, nil
}

// UnsupportedResolver always reports errkind.Unsupported. It is the default
// for sources that need an external resolver to be wired in before they can
// produce a playable URL.
type UnsupportedResolver struct{ SourceName string }

func (u UnsupportedResolver) ResolvePlayable(context.Context, track.Descriptor) (string, error) {
	return "", errkind.New(errkind.Unsupported, u.SourceName+" requires an external resolver to produce a playable URL")
}

// Provider recognizes and extracts metadata for one source.
type Provider interface {
	Name() string
	Recognize(url string) bool
	Extract(ctx context.Context, url string) (track.Descriptor, error)
	Resolver
}

// Registry dispatches recognize/extract/resolve_playable to the first
// Provider (in registration order) that recognizes a URL, wrapping each
// upstream call in that provider's rate limiter and circuit breaker.
type Registry struct {
	providers []Provider
	guards    map[string]*providerGuard
}

type providerGuard struct {
	breaker *Breaker
	limiter limiterWaiter
}

type limiterWaiter interface {
	Wait(ctx context.Context) error
}

// NewRegistry builds a Registry over providers, in the exact order they
// should be matched against an incoming URL.
func NewRegistry(observer BreakerObserver, providers ...Provider) *Registry {
	r := &Registry{providers: providers, guards: make(map[string]*providerGuard)}
	for _, p := range providers {
		r.guards[p.Name()] = &providerGuard{
			breaker: NewBreaker(p.Name(), 3, 5, 60*time.Second, 30*time.Second, observer),
			limiter: newLimiter(2, 4),
		}
	}
	return r
}

// Recognize returns the first provider (in registration order) that claims
// url, or (nil, false) if none does.
func (r *Registry) Recognize(url string) (Provider, bool) {
	for _, p := range r.providers {
		if p.Recognize(url) {
			return p, true
		}
	}
	return nil, false
}

// Extract recognizes url and extracts its descriptor, subject to that
// source's rate limit and circuit breaker.
func (r *Registry) Extract(ctx context.Context, url string) (track.Descriptor, error) {
	p, ok := r.Recognize(url)
	if !ok {
		return track.Descriptor{}, errkind.New(errkind.Unsupported, "no provider recognizes this url")
	}

	var d track.Descriptor
	err := r.guarded(ctx, p.Name(), func() error {
		var innerErr error
		d, innerErr = p.Extract(ctx, url)
		return innerErr
	})
	return d, err
}

// ResolvePlayable resolves d to a directly-streamable URL, subject to
// d.Source's rate limit and circuit breaker.
func (r *Registry) ResolvePlayable(ctx context.Context, d track.Descriptor) (string, error) {
	for _, p := range r.providers {
		if providerSource(p) != d.Source {
			continue
		}
		var playURL string
		err := r.guarded(ctx, p.Name(), func() error {
			var innerErr error
			playURL, innerErr = p.ResolvePlayable(ctx, d)
			return innerErr
		})
		return playURL, err
	}
	return "", errkind.New(errkind.Unsupported, "no provider registered for source "+string(d.Source))
}

func (r *Registry) guarded(ctx context.Context, name string, fn func() error) error {
	g, ok := r.guards[name]
	if !ok {
		return fn()
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return errkind.Wrap(errkind.RateLimited, "rate limit wait cancelled", err)
	}
	err := g.breaker.Execute(fn)
	if err == ErrBreakerOpen {
		return errkind.New(errkind.RateLimited, "provider circuit breaker is open")
	}
	return err
}

// sourceNamed is implemented by providers whose declared source is fixed,
// letting the registry match ResolvePlayable calls without a type switch
// over every concrete provider type.
type sourceNamed interface {
	Source() track.SourceTag
}

func providerSource(p Provider) track.SourceTag {
	if sn, ok := p.(sourceNamed); ok {
		return sn.Source()
	}
	return track.SourceGeneric
}
