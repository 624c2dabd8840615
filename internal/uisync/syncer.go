// Package uisync drains the pending-update set on the idle tick and turns
// each raised flag into exactly one resend to the presentation layer.
package uisync

import (
	"github.com/rs/zerolog"

	"github.com/tphakala/go-resynth/internal/module"
	"github.com/tphakala/go-resynth/internal/pending"
)

// Presenter is the presentation layer as seen from the engine.
type Presenter interface {
	SendBrainSummary()
	SendConfig()
	NotifyHost()
	SendModuleSchema(role module.Role)
}

// Syncer is the single consumer of the presentation flags.
type Syncer struct {
	pending   *pending.Set
	presenter Presenter
	logger    zerolog.Logger
}

// New returns a syncer. A nil presenter discards every resend.
func New(set *pending.Set, presenter Presenter, logger zerolog.Logger) *Syncer {
	if presenter == nil {
		presenter = Discard{}
	}
	return &Syncer{
		pending:   set,
		presenter: presenter,
		logger:    logger.With().Str("component", "uisync").Logger(),
	}
}

var actions = []struct {
	flag pending.Flag
	send func(Presenter)
}{
	{pending.BrainSummaryDirty, Presenter.SendBrainSummary},
	{pending.ConfigDirty, Presenter.SendConfig},
	{pending.HostDirty, Presenter.NotifyHost},
	{pending.RebuildTransformUI, func(p Presenter) { p.SendModuleSchema(module.RoleTransform) }},
	{pending.RebuildMorphUI, func(p Presenter) { p.SendModuleSchema(module.RoleMorph) }},
}

// Tick test-and-clears each presentation flag and performs one resend per
// flag found. SuppressReanalysis is left alone. It returns the flags
// handled.
func (s *Syncer) Tick() pending.Flag {
	var handled pending.Flag
	for _, a := range actions {
		if s.pending.TestAndClear(a.flag) {
			a.send(s.presenter)
			handled |= a.flag
		}
	}
	if handled != 0 {
		s.logger.Trace().Stringer("flags", handled).Msg("presentation refreshed")
	}
	return handled
}

// Discard is a Presenter that does nothing.
type Discard struct{}

func (Discard) SendBrainSummary()            {}
func (Discard) SendConfig()                  {}
func (Discard) NotifyHost()                  {}
func (Discard) SendModuleSchema(module.Role) {}
