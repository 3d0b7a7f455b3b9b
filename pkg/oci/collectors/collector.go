// Package ocicollectors fetches OCI resources page by page and returns them as
// normalized records. Each collector wraps one SDK client behind a narrow
// interface so tests can substitute fakes.
package ocicollectors

import (
	"context"
	"log/slog"

	"golang.org/x/time/rate"

	ocierrors "github.com/praetorian-inc/ocigraph/pkg/oci/errors"
	"github.com/praetorian-inc/ocigraph/pkg/oci/normalize"
	ocitypes "github.com/praetorian-inc/ocigraph/pkg/types/oci"
)

// OpaqueKeys hold user data; their keys are never rewritten.
var OpaqueKeys = []string{
	ocitypes.KeyDefinedTags,
	ocitypes.KeyFreeformTags,
	"system-tags",
	"metadata",
	"extended-metadata",
	// load balancer maps keyed by user-chosen names
	"listeners",
	"backend-sets",
	"certificates",
	"hostnames",
	"path-route-sets",
	"rule-sets",
	"routing-policies",
	"ssl-cipher-suites",
}

// WireNormalizer maps the Go SDK's camelCase JSON onto the hyphenated wire names.
var WireNormalizer = normalize.New(
	normalize.WithKeyFunc(normalize.WireKey),
	normalize.WithOpaqueKeys(OpaqueKeys...),
)

type Option func(*base)

// WithLimiter waits on l before every API call.
func WithLimiter(l *rate.Limiter) Option {
	return func(b *base) { b.limiter = l }
}

// WithNormalizer replaces WireNormalizer.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(b *base) { b.normalizer = n }
}

type base struct {
	limiter    *rate.Limiter
	normalizer *normalize.Normalizer
}

func newBase(opts []Option) base {
	b := base{normalizer: WireNormalizer}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b base) wait(ctx context.Context) error {
	if b.limiter == nil {
		return nil
	}
	return b.limiter.Wait(ctx)
}

// call runs a single non-paginated request under the limiter.
func call[R any](ctx context.Context, b base, op string, fn func(context.Context) (R, error)) (R, error) {
	var zero R
	if err := b.wait(ctx); err != nil {
		return zero, ocierrors.Transport(op, err)
	}
	resp, err := fn(ctx)
	if err != nil {
		logFailure(op, err)
		return zero, ocierrors.Transport(op, err)
	}
	return resp, nil
}

// listAll follows the next-page token until the API stops returning one.
func listAll[T any](ctx context.Context, b base, op string, fetch func(ctx context.Context, page *string) ([]T, *string, error)) ([]T, error) {
	items := make([]T, 0)
	var page *string
	for pages := 1; ; pages++ {
		if err := b.wait(ctx); err != nil {
			return nil, ocierrors.Transport(op, err)
		}
		batch, next, err := fetch(ctx, page)
		if err != nil {
			logFailure(op, err)
			return nil, ocierrors.Transport(op, err)
		}
		items = append(items, batch...)
		if next == nil || *next == "" {
			slog.Debug("listed", "op", op, "pages", pages, "items", len(items))
			return items, nil
		}
		page = next
	}
}

// records normalizes SDK items. An empty listing yields no records.
func records[T any](b base, items []T) ([]ocitypes.Record, error) {
	if len(items) == 0 {
		return []ocitypes.Record{}, nil
	}
	return b.normalizer.Normalize(items)
}

func logFailure(op string, err error) {
	switch {
	case ocierrors.IsThrottled(err):
		slog.Warn("request throttled", "op", op, "opc-request-id", ocierrors.RequestID(err))
	case ocierrors.IsNotAuthorizedOrNotFound(err):
		slog.Warn("not authorized or not found", "op", op, "opc-request-id", ocierrors.RequestID(err))
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
