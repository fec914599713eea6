package mmsession

import (
	"context"
	"fmt"
	"time"

	"github.com/ardanlabs/mmsession/observ/metrics"
	"github.com/hybridgroup/yzma/pkg/llama"
	"github.com/hybridgroup/yzma/pkg/mtmd"
	"github.com/nikolalohinski/gonja/v2/exec"
)

// Session owns every backend resource needed to run multimodal chat turns
// against a single model: the language model, the vision projection context,
// the decode context, the token batch buffer, and the sampler. A Session is
// not safe for concurrent use. Call Close when finished so the native
// resources are released.
type Session struct {
	cfg Config
	log Logger

	model     llama.Model
	vocab     llama.Vocab
	visionCtx mtmd.Context
	lctx      llama.Context
	ctxParams llama.ContextParams

	batch      llama.Batch
	batchOwned bool
	sampler    llama.Sampler

	template   string
	jinja      *exec.Template
	stopTokens []llama.Token

	nPast   llama.Pos
	bitmaps []mtmd.Bitmap
}

// NewSession constructs a session with the specified configuration. No
// backend resources are acquired until the Load and Init methods are called.
// Init must have been called before constructing a session.
func NewSession(cfg Config) (*Session, error) {
	if libraryLocation == "" {
		return nil, fmt.Errorf("new-session: %w: call Init first", ErrPrerequisiteMissing)
	}

	cfg = adjustConfig(cfg)

	l := cfg.Log
	if l == nil {
		l = func(ctx context.Context, msg string, args ...any) {}
	}

	s := Session{
		cfg: cfg,
		log: l,
	}

	return &s, nil
}

// LoadLanguageModel loads the language model weights from the specified GGUF
// file. Any resources held from a previous load are released first, so a
// session can be pointed at a new model by calling the Load and Init methods
// again. After this call the context, batch, sampler, and chat template must
// be re-initialized.
func (s *Session) LoadLanguageModel(modelFile string) error {
	ctx := context.Background()

	s.cleanup(ctx)

	s.log(ctx, "load-language-model", "status", "loading", "file", modelFile)

	mparams := llama.ModelDefaultParams()
	mparams.NGpuLayers = int32(s.cfg.GPULayers)

	now := time.Now()

	mdl, err := llama.ModelLoadFromFile(modelFile, mparams)
	if err != nil {
		return fmt.Errorf("load-language-model: %w: %w", ErrResourceLoad, err)
	}

	metrics.AddModelFileLoadTime(time.Since(now))

	s.model = mdl
	s.vocab = llama.ModelGetVocab(mdl)

	s.log(ctx, "load-language-model", "status", "loaded", "file", modelFile, "time", time.Since(now).String())

	return nil
}

// LoadVisionModel loads the multimodal projection weights from the specified
// GGUF file and binds them to the loaded language model. The language model
// must be loaded first.
func (s *Session) LoadVisionModel(projFile string) error {
	ctx := context.Background()

	if s.model == 0 {
		return fmt.Errorf("load-vision-model: %w: language model not loaded", ErrPrerequisiteMissing)
	}

	if s.visionCtx != 0 {
		mtmd.Free(s.visionCtx)
		s.visionCtx = 0
	}

	s.log(ctx, "load-vision-model", "status", "loading", "file", projFile)

	mctxParams := mtmd.ContextParamsDefault()
	mctxParams.UseGPU = true
	mctxParams.FlashAttentionType = llama.FlashAttentionTypeAuto

	now := time.Now()

	mtmdCtx, err := mtmd.InitFromFile(projFile, s.model, mctxParams)
	if err != nil {
		return fmt.Errorf("load-vision-model: %w: %w", ErrResourceLoad, err)
	}

	metrics.AddProjFileLoadTime(time.Since(now))

	s.visionCtx = mtmdCtx

	s.log(ctx, "load-vision-model", "status", "loaded", "file", projFile, "time", time.Since(now).String())

	return nil
}

// InitContext creates the decode context sized by the configured context
// window and batch capacity. The language model must be loaded first. Any
// previous context is released, which discards the conversation state, so
// the position counter is reset as well.
func (s *Session) InitContext() error {
	if s.model == 0 {
		return fmt.Errorf("init-context: %w: language model not loaded", ErrPrerequisiteMissing)
	}

	if s.lctx != 0 {
		llama.Synchronize(s.lctx)
		llama.Free(s.lctx)
		s.lctx = 0
	}

	ctxParams := llama.ContextDefaultParams()
	ctxParams.NCtx = uint32(s.cfg.ContextWindow)
	ctxParams.NBatch = uint32(s.cfg.NBatch)
	ctxParams.NUbatch = uint32(s.cfg.NBatch)

	lctx, err := llama.InitFromModel(s.model, ctxParams)
	if err != nil {
		return fmt.Errorf("init-context: %w: %w", ErrResourceLoad, err)
	}

	s.lctx = lctx
	s.ctxParams = ctxParams
	s.nPast = 0

	return nil
}

// InitBatch allocates the token batch buffer used to feed sampled tokens
// back through the model during generation. The buffer is sized by the
// configured batch capacity and is owned by the session. The language model
// must be loaded first.
func (s *Session) InitBatch() error {
	if s.model == 0 {
		return fmt.Errorf("init-batch: %w: language model not loaded", ErrPrerequisiteMissing)
	}

	if s.batchOwned {
		llama.BatchFree(s.batch)
		s.batch = llama.Batch{}
		s.batchOwned = false
	}

	s.batch = llama.BatchInit(int32(s.cfg.NBatch), 0, 1)
	s.batchOwned = true

	return nil
}

// InitSampler builds the sampler chain from the configured sampling
// parameters. Any previous sampler is released. The language model must be
// loaded first.
func (s *Session) InitSampler() error {
	if s.model == 0 {
		return fmt.Errorf("init-sampler: %w: language model not loaded", ErrPrerequisiteMissing)
	}

	if s.sampler != 0 {
		llama.SamplerFree(s.sampler)
		s.sampler = 0
	}

	s.sampler = toSampler(s.cfg.Sampling)

	return nil
}

// Ready reports whether the session can run generation: the language model,
// the vision projection context, and the decode context must all be
// initialized. The vision context is required even for text-only turns
// because every turn is tokenized through the joint tokenizer.
func (s *Session) Ready() bool {
	return s.model != 0 && s.visionCtx != 0 && s.lctx != 0
}

// NPast returns the number of positions the decode context has consumed so
// far in the current conversation.
func (s *Session) NPast() llama.Pos {
	return s.nPast
}

// SetNPast overrides the position counter. This is only useful when the
// caller manages the KV cache directly, such as rolling back to a snapshot.
func (s *Session) SetNPast(n llama.Pos) {
	s.nPast = n
}

// StopTokens returns the token sequence installed by InitChatTemplate that
// terminates generation when the model emits it. The result is nil when the
// active template has no stop sequence.
func (s *Session) StopTokens() []llama.Token {
	return s.stopTokens
}

// Close releases every resource the session holds. It is safe to call
// multiple times and on a session that never loaded anything.
func (s *Session) Close() {
	s.cleanup(context.Background())
}

// cleanup releases resources in reverse dependency order and returns the
// session to its freshly constructed state.
func (s *Session) cleanup(ctx context.Context) {
	if s.sampler != 0 {
		llama.SamplerFree(s.sampler)
		s.sampler = 0
	}

	if s.batchOwned {
		llama.BatchFree(s.batch)
		s.batch = llama.Batch{}
		s.batchOwned = false
	}

	if s.lctx != 0 {
		llama.Synchronize(s.lctx)
		llama.Free(s.lctx)
		s.lctx = 0
	}

	if s.model != 0 {
		llama.ModelFree(s.model)
		s.model = 0
		s.vocab = 0
	}

	if s.visionCtx != 0 {
		mtmd.Free(s.visionCtx)
		s.visionCtx = 0
	}

	s.ClearBitmaps()

	s.template = ""
	s.jinja = nil
	s.stopTokens = nil
	s.nPast = 0

	s.log(ctx, "cleanup", "status", "released")
}
