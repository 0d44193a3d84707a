// Package resolver expands macros in trigger texts against the configuration
// and history stores.
package resolver

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bcnelson/trigger-macros/internal/history"
	"github.com/bcnelson/trigger-macros/internal/storage"
)

// Mode selects how value macros are answered.
type Mode int

const (
	// ModeTrigger answers ITEM.VALUE with the latest value.
	ModeTrigger Mode = iota
	// ModeEventDescription answers ITEM.VALUE with the value at the event time.
	ModeEventDescription
)

func (m Mode) String() string {
	switch m {
	case ModeTrigger:
		return "trigger"
	case ModeEventDescription:
		return "event"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode parses "trigger" or "event".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "trigger":
		return ModeTrigger, nil
	case "event", "event_description":
		return ModeEventDescription, nil
	}
	return 0, fmt.Errorf("unknown resolver mode %q", s)
}

// UnresolvedPolicy decides what an entity macro without a value becomes.
type UnresolvedPolicy int

const (
	// UnresolvedLiteral keeps the macro text verbatim.
	UnresolvedLiteral UnresolvedPolicy = iota
	// UnresolvedPlaceholder writes history.UnresolvedString.
	UnresolvedPlaceholder
)

func (p UnresolvedPolicy) String() string {
	switch p {
	case UnresolvedLiteral:
		return "literal"
	case UnresolvedPlaceholder:
		return "placeholder"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// ParseUnresolvedPolicy parses "literal" or "placeholder".
func ParseUnresolvedPolicy(s string) (UnresolvedPolicy, error) {
	switch strings.ToLower(s) {
	case "", "literal":
		return UnresolvedLiteral, nil
	case "placeholder":
		return UnresolvedPlaceholder, nil
	}
	return 0, fmt.Errorf("unknown unresolved policy %q", s)
}

// DefaultHistoryPeriod bounds how far back ITEM.LASTVALUE looks.
const DefaultHistoryPeriod = 24 * time.Hour

// Resolver holds immutable configuration and may be shared between goroutines.
type Resolver struct {
	config        storage.ConfigReader
	history       storage.HistoryReader
	formatter     history.Formatter
	mode          Mode
	policy        UnresolvedPolicy
	historyPeriod time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMode sets the default operating mode.
func WithMode(m Mode) Option {
	return func(r *Resolver) { r.mode = m }
}

// WithUnresolvedPolicy sets how unresolved entity macros are substituted.
func WithUnresolvedPolicy(p UnresolvedPolicy) Option {
	return func(r *Resolver) { r.policy = p }
}

// WithHistoryPeriod sets the look-back window for latest values.
func WithHistoryPeriod(d time.Duration) Option {
	return func(r *Resolver) { r.historyPeriod = d }
}

// WithFormatter replaces the default history formatter.
func WithFormatter(f history.Formatter) Option {
	return func(r *Resolver) { r.formatter = f }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New creates a Resolver over the given stores.
func New(config storage.ConfigReader, hist storage.HistoryReader, opts ...Option) *Resolver {
	r := &Resolver{
		config:        config,
		history:       hist,
		formatter:     history.NewDefaultFormatter(),
		historyPeriod: DefaultHistoryPeriod,
		now:           time.Now,
		logger:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mode returns the configured operating mode.
func (r *Resolver) Mode() Mode {
	return r.mode
}

// InMode returns a copy of r operating in mode m.
func (r *Resolver) InMode(m Mode) *Resolver {
	c := *r
	c.mode = m
	return &c
}
