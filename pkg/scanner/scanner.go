package scanner

import (
	"context"
	"errors"

	"lanekit/pkg/logging"

	"github.com/rs/zerolog"
)

// ErrUnavailable marks a scan tier that cannot run at all, as opposed to a
// tier that ran and found nothing. A clean no-match is authoritative and
// stops the tier chain; only ErrUnavailable falls through.
var ErrUnavailable = errors.New("scan tier unavailable")

// Signal is one localized pattern match.
type Signal struct {
	File        string `json:"file"`
	Line        int    `json:"line"`
	MatchedText string `json:"matched_text"`
}

// placeholderFiles are filenames emitted by scan mechanisms that could not
// localize a match. Signals carrying them must not be trusted as evidence.
var placeholderFiles = map[string]bool{
	"":          true,
	"<unknown>": true,
	"<stdin>":   true,
	"-":         true,
}

// Credible reports whether the signal points at a real file.
func (s Signal) Credible() bool {
	return !placeholderFiles[s.File]
}

// Query describes one scan over a source tree.
type Query struct {
	// Globs restrict the scan to matching relative paths (doublestar
	// patterns). Empty means every file.
	Globs []string

	// Needles are matched as fixed strings unless Regex is set, in which
	// case they are compiled as a single alternation.
	Needles []string

	Regex bool
}

// Strategy is one scan tier. Implementations return ErrUnavailable when the
// tier cannot run so the caller can fall through.
type Strategy interface {
	Name() string
	Scan(ctx context.Context, root string, q Query) ([]Signal, error)
}

// Scanner evaluates an ordered list of tiers with short-circuiting: the
// first tier that runs to completion is authoritative.
type Scanner struct {
	strategies []Strategy
	logger     zerolog.Logger
}

// New returns a Scanner with the standard tier order: ripgrep, tracked-file
// line scan, filesystem walk.
func New(logger zerolog.Logger) *Scanner {
	return NewWithStrategies(logging.Component(logger, "scanner"),
		RipgrepTier(), GitFilesTier(), WalkTier())
}

// NewWithStrategies returns a Scanner over a custom tier list.
func NewWithStrategies(logger zerolog.Logger, strategies ...Strategy) *Scanner {
	return &Scanner{strategies: strategies, logger: logger}
}

// RipgrepTier returns the external-tool tier.
func RipgrepTier() Strategy { return &ripgrepStrategy{} }

// GitFilesTier returns the tracked-file line-scan tier.
func GitFilesTier() Strategy { return &gitFilesStrategy{} }

// WalkTier returns the direct filesystem-walk tier.
func WalkTier() Strategy { return &walkStrategy{} }

// Find returns the matches from the first usable tier. An empty result with
// a nil error is a definitive no-match.
func (s *Scanner) Find(ctx context.Context, root string, q Query) ([]Signal, error) {
	var lastErr error
	for _, strat := range s.strategies {
		signals, err := strat.Scan(ctx, root, q)
		if err == nil {
			return signals, nil
		}
		if !errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		s.logger.Debug().Str("tier", strat.Name()).Msg("scan tier unavailable, falling through")
		lastErr = err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, nil
}

// Exists reports whether any of the fixed-string needles occurs in files
// matching the globs.
func (s *Scanner) Exists(ctx context.Context, root string, globs, needles []string) bool {
	signals, err := s.Find(ctx, root, Query{Globs: globs, Needles: needles})
	return err == nil && len(signals) > 0
}

// ExistsRegex is the explicit regex fallback for constructs the fixed-string
// pass misses through formatting variance (e.g. `runtime  =  "edge"`).
func (s *Scanner) ExistsRegex(ctx context.Context, root string, globs, patterns []string) bool {
	signals, err := s.Find(ctx, root, Query{Globs: globs, Needles: patterns, Regex: true})
	return err == nil && len(signals) > 0
}
