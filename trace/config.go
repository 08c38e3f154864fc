package trace

import (
	"sync"

	"go.uber.org/zap"
)

// Config represents the global tracing configuration.
type Config struct {
	// DefaultSampler is the sampler consulted when creating new spans with no
	// per-call sampler override.
	DefaultSampler Sampler

	// IDGenerator produces new trace and span identifiers.
	IDGenerator IDGenerator

	// Logger receives diagnostic output from the tracing core.
	Logger *zap.Logger
}

var globalConfig = struct {
	sync.RWMutex
	Config
}{
	Config: Config{
		DefaultSampler: ProbabilitySampler(defaultSamplingProbability),
		IDGenerator:    newDefaultIDGenerator(),
		Logger:         zap.NewNop(),
	},
}

// SetDefaultSampler sets the sampler used when creating new spans. A nil
// sampler is ignored.
func SetDefaultSampler(s Sampler) {
	if s == nil {
		return
	}
	globalConfig.Lock()
	globalConfig.DefaultSampler = s
	globalConfig.Unlock()
}

// SetIDGenerator sets the generator used for new trace and span identifiers.
// A nil generator is ignored.
func SetIDGenerator(g IDGenerator) {
	if g == nil {
		return
	}
	globalConfig.Lock()
	globalConfig.IDGenerator = g
	globalConfig.Unlock()
}

// SetLogger sets the logger used for diagnostic output. A nil logger is
// ignored.
func SetLogger(l *zap.Logger) {
	if l == nil {
		return
	}
	globalConfig.Lock()
	globalConfig.Logger = l
	globalConfig.Unlock()
}

// LoadConfig returns a copy of the current global tracing configuration.
func LoadConfig() Config {
	globalConfig.RLock()
	c := globalConfig.Config
	globalConfig.RUnlock()
	return c
}
