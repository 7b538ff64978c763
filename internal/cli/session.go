package cli

import (
	"context"
	"log/slog"

	"github.com/roach88/nsreg/internal/config"
	"github.com/roach88/nsreg/internal/journal"
	"github.com/roach88/nsreg/internal/registry"
)

// settings returns the loaded configuration, loading defaults when the root
// command did not run.
func (o *RootOptions) settings() (*config.Config, error) {
	if o.Config != nil {
		return o.Config, nil
	}
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	o.Config = cfg
	return cfg, nil
}

// session is a registry with its optional journal.
type session struct {
	reg     *registry.Registry
	journal *journal.Journal
}

// openSession creates a registry from the configuration. When a journal path
// is configured every lifecycle event is recorded there.
func (o *RootOptions) openSession(ctx context.Context, extra ...registry.Option) (*session, error) {
	cfg, err := o.settings()
	if err != nil {
		return nil, err
	}

	opts := append([]registry.Option{registry.WithConfig(cfg.RegistryConfig())}, extra...)
	s := &session{reg: registry.New(opts...)}

	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			_ = s.reg.Close()
			return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		j.Attach(ctx, s.reg)
		s.journal = j
		slog.Debug("journal attached", "path", cfg.Journal.Path)
	}
	return s, nil
}

// Close drains the registry before closing the journal so late events are
// still recorded.
func (s *session) Close() {
	if err := s.reg.Close(); err != nil {
		slog.Error("error closing registry", "error", err)
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			slog.Error("error closing journal", "error", err)
		}
	}
}

// classify maps a registry error to an output code and exit code.
func classify(err error) (code string, exit int) {
	switch {
	case registry.IsInvalidIdentifier(err):
		return CodeInvalidIdentifier, ExitCommandError
	case registry.IsTransportUnavailable(err):
		return CodeTransportUnavailable, ExitCommandError
	case registry.IsMissingBinding(err):
		return CodeMissingBinding, ExitFailure
	case registry.IsLoadFailed(err):
		return CodeLoadFailed, ExitFailure
	default:
		return CodeEvaluation, ExitFailure
	}
}

// reportError writes err through f and returns the matching ExitError.
func reportError(f *OutputFormatter, message string, err error) error {
	code, exit := classify(err)
	if outErr := f.Error(code, message, err.Error()); outErr != nil {
		return outErr
	}
	return WrapExitError(exit, message, err)
}
