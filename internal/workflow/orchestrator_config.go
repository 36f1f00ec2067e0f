package workflow

import (
	"fmt"
	"log/slog"

	"brieflow/internal/config"
	"brieflow/internal/services"
	"brieflow/internal/stage"
)

// Registry maps stage names to implementations.
type Registry map[string]stage.Stage

// Register adds stages keyed by their names.
func (r Registry) Register(stages ...stage.Stage) Registry {
	for _, st := range stages {
		if st != nil {
			r[st.Name()] = st
		}
	}
	return r
}

// NewFromConfig builds an orchestrator with the stage order, must-produce
// slot, and heartbeat interval from cfg.
func NewFromConfig(cfg *config.Config, registry Registry, logger *slog.Logger, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "orchestrator", "config is nil", nil)
	}
	stages := make([]stage.Stage, 0, len(cfg.Pipeline.Stages))
	for _, name := range cfg.Pipeline.Stages {
		st, ok := registry[name]
		if !ok {
			return nil, services.Wrap(services.ErrConfiguration, name, "orchestrator", fmt.Sprintf("no stage registered as %q", name), nil)
		}
		stages = append(stages, st)
	}
	base := []Option{
		WithLogger(logger),
		WithMustProduce(cfg.Pipeline.MustProduce),
		WithHeartbeat(cfg.HeartbeatInterval()),
	}
	return New(stages, append(base, opts...)...)
}
