// Package overlap trims the records a granule shares with its chronological
// neighbours before they reach downstream consumers.
//
// A Resolver is selected explicitly at construction time:
//
//   - KindNull passes records through unchanged.
//   - KindFirstline drops records at or below the boundary stored in the
//     firstline index.
//   - KindBestLine would pick the best of overlapping alternatives from the
//     neighbouring granules. It is not implemented and always fails.
package overlap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xtxerr/firstline/internal/errors"
	"github.com/xtxerr/firstline/internal/granule"
	"github.com/xtxerr/firstline/internal/index"
	"github.com/xtxerr/firstline/internal/logging"
)

// Resolver removes overlapping records from one granule.
type Resolver interface {
	// ResolveOverlap returns the records of the granule ref, described by h,
	// that are not duplicates of records in a neighbouring granule.
	ResolveOverlap(ctx context.Context, ref granule.Ref, h granule.Header, recs granule.Records) (granule.Records, error)
}

// Kind names a Resolver variant.
type Kind int

const (
	KindNull Kind = iota
	KindFirstline
	KindBestLine
)

// String returns the configuration name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindFirstline:
		return "firstline"
	case KindBestLine:
		return "bestline"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// ParseKind parses "null", "firstline" or "bestline".
func ParseKind(s string) (Kind, error) {
	switch s {
	case "null", "none":
		return KindNull, nil
	case "firstline", "":
		return KindFirstline, nil
	case "bestline":
		return KindBestLine, nil
	default:
		return 0, errors.NewInvalidValue("resolver", s, "must be null, firstline or bestline")
	}
}

// MissingPolicy decides what the firstline resolver does with a granule
// that has no index entry yet.
type MissingPolicy int

const (
	// MissingFail propagates ErrLabelNotFound to the caller.
	MissingFail MissingPolicy = iota

	// MissingPassThrough treats an unindexed granule as having no overlap.
	MissingPassThrough
)

// String returns the configuration name of the policy.
func (p MissingPolicy) String() string {
	switch p {
	case MissingFail:
		return "fail"
	case MissingPassThrough:
		return "pass"
	default:
		return fmt.Sprintf("unknown(%d)", p)
	}
}

// ParseMissingPolicy parses "fail" or "pass".
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch s {
	case "fail", "":
		return MissingFail, nil
	case "pass", "passthrough":
		return MissingPassThrough, nil
	default:
		return 0, errors.NewInvalidValue("missing", s, "must be fail or pass")
	}
}

// Deps holds what the resolver variants need. Only KindFirstline uses it.
type Deps struct {
	Index   *index.Index
	Labeler granule.Labeler
	Missing MissingPolicy
	Logger  *slog.Logger
}

// New creates the resolver of the given kind.
func New(kind Kind, deps Deps) (Resolver, error) {
	switch kind {
	case KindNull:
		return Null{}, nil
	case KindFirstline:
		return NewFirstline(deps)
	case KindBestLine:
		return BestLine{}, nil
	default:
		return nil, errors.NewInvalidValue("resolver", kind, "unknown resolver kind")
	}
}

// =============================================================================
// Null
// =============================================================================

// Null returns records unchanged.
type Null struct{}

// ResolveOverlap implements Resolver.
func (Null) ResolveOverlap(_ context.Context, _ granule.Ref, _ granule.Header, recs granule.Records) (granule.Records, error) {
	return recs, nil
}

// =============================================================================
// Firstline
// =============================================================================

// Firstline trims granules using the firstline index. It does not own the
// index; the caller closes it.
type Firstline struct {
	idx     *index.Index
	labeler granule.Labeler
	missing MissingPolicy
	log     *slog.Logger
}

// NewFirstline creates a Firstline resolver.
func NewFirstline(deps Deps) (*Firstline, error) {
	v := errors.NewValidationErrors()
	if deps.Index == nil {
		v.AddMissing("index")
	}
	if deps.Labeler == nil {
		v.AddMissing("labeler")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	log := deps.Logger
	if log == nil {
		log = logging.Component("overlap")
	}
	return &Firstline{
		idx:     deps.Index,
		labeler: deps.Labeler,
		missing: deps.Missing,
		log:     log,
	}, nil
}

// ResolveOverlap implements Resolver.
func (f *Firstline) ResolveOverlap(ctx context.Context, ref granule.Ref, h granule.Header, recs granule.Records) (granule.Records, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	label := f.labeler(h)
	out, err := f.idx.Filter(label, recs)
	if err == nil {
		f.log.Debug("resolved overlap", "label", label, "kept", len(out), "total", len(recs))
		return out, nil
	}
	if errors.Is(err, errors.ErrLabelNotFound) && f.missing == MissingPassThrough {
		f.log.Debug("granule not indexed, passing through", "label", label, "ref", ref)
		return recs, nil
	}
	return nil, fmt.Errorf("resolve overlap of %s: %w", ref, err)
}

// =============================================================================
// BestLine
// =============================================================================

// BestLine is meant to read the neighbouring granules of ref independently
// and keep, for every overlapping scanline, the best of the alternatives.
// How conflicting records from three neighbours are reconciled is not
// decided, so it always fails with ErrNotImplemented.
type BestLine struct{}

// ResolveOverlap implements Resolver.
func (BestLine) ResolveOverlap(_ context.Context, ref granule.Ref, _ granule.Header, _ granule.Records) (granule.Records, error) {
	return nil, fmt.Errorf("best line overlap resolution of %s: %w", ref, errors.ErrNotImplemented)
}

var (
	_ Resolver = Null{}
	_ Resolver = (*Firstline)(nil)
	_ Resolver = BestLine{}
)
