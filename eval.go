package mmsession

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ardanlabs/mmsession/observ/metrics"
	"github.com/hybridgroup/yzma/pkg/llama"
	"github.com/hybridgroup/yzma/pkg/mtmd"
)

// ensureMediaMarker returns the user text with the media marker injected at
// the front, wrapped in spaces, when the text does not already contain one.
// Injection happens before the turn is formatted so the image chunks land
// inside the user turn. The joint tokenizer replaces each marker occurrence
// with the chunks for one staged image, so the marker count must match the
// staged image count.
func ensureMediaMarker(text string, marker string) string {
	if strings.Contains(text, marker) {
		return text
	}

	return " " + marker + " " + text
}

// EvalMessage formats the user text through the active chat template,
// tokenizes it jointly with any staged images, and evaluates the resulting
// chunks into the decode context starting at the current position. On
// success the position counter advances past the evaluated chunks.
//
// The staging buffer is drained on every call, success or failure, so a
// rejected turn never leaks bitmaps into the next one. addSpecial controls
// whether the tokenizer adds the model's BOS token, which is wanted on the
// first turn of a conversation only.
func (s *Session) EvalMessage(text string, addSpecial bool) error {
	ctx := context.Background()

	if !s.Ready() {
		return fmt.Errorf("eval-message: %w: session not ready", ErrPrerequisiteMissing)
	}

	bitmaps := s.bitmaps
	s.bitmaps = nil

	defer func() {
		for _, bitmap := range bitmaps {
			if bitmap != 0 {
				mtmd.BitmapFree(bitmap)
			}
		}
	}()

	if len(bitmaps) > 0 {
		text = ensureMediaMarker(text, mtmd.DefaultMarker())
	}

	now := time.Now()

	prompt, err := s.renderPrompt(text)
	if err != nil {
		return fmt.Errorf("eval-message: %w", err)
	}

	metrics.AddPromptFormatTime(time.Since(now))

	chunks := mtmd.InputChunksInit()
	defer mtmd.InputChunksFree(chunks)

	input := mtmd.NewInputText(prompt, addSpecial, true)

	if ret := mtmd.Tokenize(s.visionCtx, chunks, input, bitmaps); ret != 0 {
		return fmt.Errorf("eval-message: %w: code %d", ErrTokenize, ret)
	}

	now = time.Now()

	var n llama.Pos
	if ret := mtmd.HelperEvalChunks(s.visionCtx, s.lctx, chunks, s.nPast, 0, int32(s.ctxParams.NBatch), true, &n); ret != 0 {
		return fmt.Errorf("eval-message: %w: code %d", ErrDecode, ret)
	}

	metrics.AddPrefillTime(time.Since(now))

	s.nPast = n

	s.log(ctx, "eval-message", "images", len(bitmaps), "n-past", s.nPast, "prefill", time.Since(now).String())

	return nil
}
