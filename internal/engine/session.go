package engine

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"reel/internal/config"
	"reel/internal/logging"
	"reel/internal/media"
	"reel/internal/services"
)

// Conversion pipeline identifiers recorded on jobs and progress events.
const (
	ModeReal      = "real"
	ModeSimulated = "simulated"
)

// Progress is one conversion progress event.
type Progress struct {
	Percent int
	Elapsed time.Duration
	Speed   string
	Mode    string
}

// ProgressFunc receives progress events during a conversion.
type ProgressFunc func(Progress)

// Result is the outcome of one conversion.
type Result struct {
	Output []byte
	Mode   string
	Speed  string
}

// Toolchain holds the resolved engine binaries.
type Toolchain struct {
	FFmpeg  string
	FFprobe string
}

// Session owns the engine lifecycle for one process. Conversions are
// serialized by the batch coordinator; the mutex only guards lifecycle state
// so Terminate stays safe to call from another goroutine mid-conversion.
type Session struct {
	cfg    *config.Config
	logger *slog.Logger

	mu          sync.Mutex
	initialized bool
	degraded    bool
	injected    bool
	tools       Toolchain
	workDir     string
	closed      bool

	terminated chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithToolchain skips artifact acquisition and uses the provided binaries.
func WithToolchain(tools Toolchain) Option {
	return func(s *Session) {
		s.tools = tools
		s.injected = tools.FFmpeg != "" && tools.FFprobe != ""
	}
}

// NewSession constructs an engine session bound to the given configuration.
func NewSession(cfg *config.Config, logger *slog.Logger, opts ...Option) *Session {
	s := &Session{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "engine"),
		terminated: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize prepares the session for conversions. The first call resolves
// the engine toolchain and creates the session workspace; acquisition
// failures degrade the session to the simulated pipeline instead of
// surfacing to batch callers. Subsequent calls are no-ops.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initLocked(ctx)
}

func (s *Session) initLocked(ctx context.Context) error {
	if s.closed {
		return services.Wrap(services.ErrEngineUnavailable, "engine", "initialize", "Session already terminated", nil)
	}
	if s.initialized {
		return nil
	}

	if !s.injected {
		tools, err := s.resolveToolchain(ctx)
		if err != nil {
			s.degraded = true
			logging.WarnWithContext(s.logger, "engine toolchain unavailable; conversions will use the simulated pipeline", "engine_degraded",
				logging.Error(services.Wrap(services.ErrEngineInit, "engine", "initialize", "Toolchain acquisition failed", err)),
			)
		} else {
			s.tools = tools
		}
	}

	if !s.degraded {
		if err := os.MkdirAll(s.cfg.Paths.StagingDir, 0o755); err == nil {
			if workDir, err := os.MkdirTemp(s.cfg.Paths.StagingDir, "engine-"); err == nil {
				s.workDir = workDir
			} else {
				s.degraded = true
				logging.WarnWithContext(s.logger, "engine workspace unavailable; conversions will use the simulated pipeline", "engine_degraded", logging.Error(err))
			}
		} else {
			s.degraded = true
			logging.WarnWithContext(s.logger, "staging directory unavailable; conversions will use the simulated pipeline", "engine_degraded", logging.Error(err))
		}
	}

	s.initialized = true
	s.logger.Info("engine session ready", logging.String(logging.FieldEngineMode, s.modeLocked()))
	return nil
}

// Convert runs one conversion. It initializes the session on first use,
// prefers the real engine when available, and falls back to the simulated
// pipeline for this call alone when real execution fails. The final progress
// event on success always reports 100.
func (s *Session) Convert(ctx context.Context, input []byte, sourceName string, target media.Format, quality media.Quality, onProgress ProgressFunc) (Result, error) {
	s.mu.Lock()
	if err := s.initLocked(ctx); err != nil {
		s.mu.Unlock()
		return Result{}, err
	}
	degraded := s.degraded
	tools := s.tools
	workDir := s.workDir
	s.mu.Unlock()

	select {
	case <-s.terminated:
		return Result{}, services.Wrap(services.ErrEngineUnavailable, "engine", "convert", "Session terminated", nil)
	default:
	}

	if degraded && !s.cfg.Engine.AllowSimulation {
		return Result{}, services.Wrap(services.ErrEngineInit, "engine", "convert", "Engine toolchain unavailable and simulation disabled", nil)
	}

	if !degraded {
		out, speed, err := s.runReal(ctx, tools, workDir, input, sourceName, target, quality, onProgress)
		if err == nil {
			return Result{Output: out, Mode: ModeReal, Speed: speed}, nil
		}
		select {
		case <-s.terminated:
			return Result{}, services.Wrap(services.ErrEngineUnavailable, "engine", "convert", "Session terminated during conversion", err)
		default:
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		if !s.cfg.Engine.AllowSimulation {
			return Result{}, services.Wrap(services.ErrConversion, "engine", "convert", "Engine execution failed", err)
		}
		logging.WarnWithContext(s.logger, "engine execution failed; converting through the simulated pipeline", "engine_fallback",
			logging.Error(err),
			logging.String("source_file", sourceName),
		)
	}

	out, err := s.simulate(ctx, input, quality, onProgress)
	if err != nil {
		return Result{}, err
	}
	return Result{Output: out, Mode: ModeSimulated, Speed: quality.SimulatedSpeedLabel()}, nil
}

// Terminate releases the session workspace and marks the session unusable.
// In-flight conversions abort with an engine-unavailable failure; later
// conversions fail the same way without touching the engine.
func (s *Session) Terminate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.terminated)
	if s.workDir != "" {
		if err := os.RemoveAll(s.workDir); err != nil {
			s.logger.Warn("failed to remove engine workspace", logging.Error(err), logging.String("directory", s.workDir))
		}
		s.workDir = ""
	}
	s.logger.Info("engine session terminated")
}

// Terminated reports whether the session has been shut down.
func (s *Session) Terminated() bool {
	select {
	case <-s.terminated:
		return true
	default:
		return false
	}
}

// Mode reports which pipeline conversions will prefer. Empty until the
// session has initialized.
func (s *Session) Mode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ""
	}
	return s.modeLocked()
}

func (s *Session) modeLocked() string {
	if s.degraded {
		return ModeSimulated
	}
	return ModeReal
}

func (s *Session) resolveToolchain(ctx context.Context) (Toolchain, error) {
	fetcher := &artifactFetcher{
		baseURL: s.cfg.Engine.ArtifactBaseURL,
		dir:     s.cfg.Paths.ArtifactDir,
		ffmpeg:  s.cfg.FFmpegBinary(),
		ffprobe: s.cfg.FFprobeBinary(),
		client:  &http.Client{Timeout: time.Duration(s.cfg.Engine.FetchTimeout) * time.Second},
		logger:  s.logger,
	}
	return fetcher.Resolve(ctx)
}
