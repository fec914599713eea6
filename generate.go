package mmsession

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/ardanlabs/mmsession/observ/metrics"
	"github.com/google/uuid"
	"github.com/hybridgroup/yzma/pkg/llama"
)

// Stream evaluates the prompt as a new turn and returns an iterator that
// yields response text one piece at a time. The iterator yields a non-nil
// error exactly once and stops if the turn cannot be evaluated or a decode
// fails mid-generation. Generation stops at an end-of-generation token, the
// template's stop sequence, or after maxTokens sampled tokens, whichever
// comes first. Breaking out of the range loop stops generation cleanly.
//
// The sampler, the batch buffer, and a chat template must be initialized in
// addition to the Ready resources. The last sampled token is never fed back
// through the model, so a follow-up turn continues from the last decoded
// position.
func (s *Session) Stream(prompt string, maxTokens int) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx := context.Background()
		id := uuid.NewString()

		if !s.Ready() {
			yield("", fmt.Errorf("stream: %w: session not ready", ErrPrerequisiteMissing))
			return
		}

		if s.sampler == 0 {
			yield("", fmt.Errorf("stream: %w: sampler not initialized", ErrPrerequisiteMissing))
			return
		}

		if !s.batchOwned {
			yield("", fmt.Errorf("stream: %w: batch not initialized", ErrPrerequisiteMissing))
			return
		}

		if err := s.EvalMessage(prompt, s.nPast == 0); err != nil {
			yield("", fmt.Errorf("stream: %w", err))
			return
		}

		metrics.AddGeneration()

		s.log(ctx, "stream", "status", "started", "id", id, "max-tokens", maxTokens, "n-past", s.nPast)

		const bufferSize = 32 * 1024
		buf := make([]byte, bufferSize)

		var generated []llama.Token
		var outputTokens int
		var sawFirst bool

		now := time.Now()

		for i := 0; i < maxTokens; i++ {
			token := llama.SamplerSample(s.sampler, s.lctx, -1)
			generated = append(generated, token)
			llama.SamplerAccept(s.sampler, token)

			if llama.VocabIsEOG(s.vocab, token) {
				break
			}

			if checkAntiprompt(generated, s.stopTokens) {
				break
			}

			l := llama.TokenToPiece(s.vocab, token, buf, 0, true)
			if l > 0 {
				if !sawFirst {
					metrics.AddTimeToFirstToken(time.Since(now))
					sawFirst = true
				}

				outputTokens++

				if !yield(string(buf[:l]), nil) {
					return
				}
			}

			// The last sampled token is never fed back through the model.
			if i == maxTokens-1 {
				break
			}

			batchClear(&s.batch)
			batchAdd(&s.batch, token, s.nPast, 0, true)

			ret, err := llama.Decode(s.lctx, s.batch)
			if err != nil || ret != 0 {
				if err == nil {
					err = fmt.Errorf("ret %d", ret)
				}
				yield("", fmt.Errorf("stream: %w: %w", ErrDecode, err))
				return
			}

			s.nPast++
		}

		elapsed := time.Since(now)
		tokensPerSecond := float64(outputTokens) / elapsed.Seconds()
		metrics.AddGenerationUsage(outputTokens, tokensPerSecond)

		s.log(ctx, "stream", "status", "completed", "id", id, "output", outputTokens,
			"n-past", s.nPast, "down", fmt.Sprintf("TPS: %.2f", tokensPerSecond))
	}
}

// Generate evaluates the prompt as a new turn and blocks until the full
// response is available.
func (s *Session) Generate(prompt string, maxTokens int) (string, error) {
	var response strings.Builder

	for piece, err := range s.Stream(prompt, maxTokens) {
		if err != nil {
			return "", fmt.Errorf("generate: %w", err)
		}

		response.WriteString(piece)
	}

	return response.String(), nil
}

// GenerateStream evaluates the prompt as a new turn and invokes onToken for
// each piece of response text as it is produced. Returning an error from the
// callback stops generation and is reported to the caller.
func (s *Session) GenerateStream(prompt string, maxTokens int, onToken func(piece string) error) error {
	for piece, err := range s.Stream(prompt, maxTokens) {
		if err != nil {
			return fmt.Errorf("generate-stream: %w", err)
		}

		if onToken == nil {
			continue
		}

		if err := onToken(piece); err != nil {
			return fmt.Errorf("generate-stream: callback: %w", err)
		}
	}

	return nil
}
