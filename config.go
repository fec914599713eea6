package mmsession

import "context"

const (
	defGPULayers     = 32
	defContextWindow = 4 * 1024
	defNBatch        = 512
)

// Logger provides a function for logging messages from different APIs.
type Logger func(ctx context.Context, msg string, args ...any)

// Config represents session level configuration. The defaults are used when
// these values are set to 0.
//
// Log receives structured log events from the session. When nil, logging
// is disabled.
//
// GPULayers is the number of model layers to offload to the GPU.
// When set to 0, the default value is 32.
//
// ContextWindow (often referred to as context length) is the maximum number
// of tokens the model can process and consider at one time when generating a
// response. When set to 0, the default value is 4096.
//
// NBatch is the maximum number of tokens that can be in a single forward
// pass through the model at any given time. It also sizes the owned token
// batch buffer. When set to 0, the default value is 512.
//
// JinjaFile is the path to a jinja template file. This is not required and
// can be used to override the template provided by the model metadata or a
// named template passed to InitChatTemplate.
//
// Sampling configures the sampler chain built by InitSampler.
type Config struct {
	Log           Logger
	GPULayers     int
	ContextWindow int
	NBatch        int
	JinjaFile     string
	Sampling      Params
}

func adjustConfig(cfg Config) Config {
	if cfg.GPULayers <= 0 {
		cfg.GPULayers = defGPULayers
	}

	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = defContextWindow
	}

	if cfg.NBatch <= 0 {
		cfg.NBatch = defNBatch
	}

	cfg.Sampling = adjustParams(cfg.Sampling)

	return cfg
}
