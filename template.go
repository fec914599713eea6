package mmsession

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/hybridgroup/yzma/pkg/llama"
	"github.com/nikolalohinski/gonja/v2"
	"github.com/nikolalohinski/gonja/v2/builtins"
	"github.com/nikolalohinski/gonja/v2/exec"
	"github.com/nikolalohinski/gonja/v2/loaders"
)

// legacyStopPhrase maps template names that predate end-of-generation tokens
// to the phrase that terminates their turns. Models formatted with these
// templates keep generating past the assistant turn, so the phrase is
// tokenized and watched for during generation.
func legacyStopPhrase(name string) (string, bool) {
	switch name {
	case "vicuna":
		return "ASSISTANT:", true

	case "deepseek":
		return "###", true
	}

	return "", false
}

// InitChatTemplate selects the chat template used to format turns. The
// resolution order is: the configured jinja override file, then the named
// template (llama.cpp resolves well known names like "chatml" or "vicuna"),
// then the template embedded in the model metadata. ErrTemplateMissing is
// reported when none of the three is available. For the legacy "vicuna" and
// "deepseek" templates a stop token sequence is installed as well.
func (s *Session) InitChatTemplate(name string) error {
	ctx := context.Background()

	if s.model == 0 {
		return fmt.Errorf("init-chat-template: %w: language model not loaded", ErrPrerequisiteMissing)
	}

	s.template = ""
	s.jinja = nil
	s.stopTokens = nil

	switch {
	case s.cfg.JinjaFile != "":
		data, err := readJinjaTemplate(s.cfg.JinjaFile)
		if err != nil {
			return fmt.Errorf("init-chat-template: %w", err)
		}

		if data == "" {
			return fmt.Errorf("init-chat-template: jinja template is empty")
		}

		t, err := newTemplateWithFixedItems(data)
		if err != nil {
			return fmt.Errorf("init-chat-template: failed to parse jinja template: %w", err)
		}

		s.jinja = t

	case name != "":
		s.template = name

	default:
		data := llama.ModelChatTemplate(s.model, "")
		if data == "" {
			data, _ = llama.ModelMetaValStr(s.model, "tokenizer.chat_template")
		}

		if data == "" {
			return fmt.Errorf("init-chat-template: %w", ErrTemplateMissing)
		}

		s.template = data
	}

	if phrase, found := legacyStopPhrase(name); found {
		s.stopTokens = llama.Tokenize(s.vocab, phrase, false, true)
	}

	s.log(ctx, "init-chat-template", "name", name, "jinja", s.jinja != nil, "stop-tokens", len(s.stopTokens))

	return nil
}

// renderPrompt formats a single user turn through the active template.
func (s *Session) renderPrompt(text string) (string, error) {
	if s.jinja != nil {
		gonja.DefaultLoader = &noFSLoader{}

		data := exec.NewContext(map[string]any{
			"messages": []map[string]any{
				{"role": "user", "content": text},
			},
			"add_generation_prompt": true,
		})

		prompt, err := s.jinja.ExecuteToString(data)
		if err != nil {
			return "", fmt.Errorf("render-prompt: failed to execute jinja template: %w", err)
		}

		return prompt, nil
	}

	if s.template == "" {
		return "", fmt.Errorf("render-prompt: %w", ErrTemplateMissing)
	}

	msgs := []llama.ChatMessage{
		llama.NewChatMessage("user", text),
	}

	buf := make([]byte, s.cfg.ContextWindow)

	// A negative length means the template string was not recognized. A
	// length past the buffer means the formatted turn did not fit.
	l := llama.ChatApplyTemplate(s.template, msgs, true, buf)
	if l < 0 || int(l) > len(buf) {
		return "", fmt.Errorf("render-prompt: %w: unable to apply template: length %d", ErrTemplateMissing, l)
	}

	return string(buf[:l]), nil
}

// =============================================================================

type noFSLoader struct{}

func (nl *noFSLoader) Read(path string) (io.Reader, error) {
	return nil, errors.New("no-fs-loader-read: filesystem access disabled")
}

func (nl *noFSLoader) Resolve(path string) (string, error) {
	return "", errors.New("no-fs-loader-resolve: filesystem access disabled")
}

func (nl *noFSLoader) Inherit(from string) (loaders.Loader, error) {
	return nil, errors.New("no-fs-loader-inherit: filesystem access disabled")
}

// =============================================================================

// newTemplateWithFixedItems creates a gonja template with a fixed items()
// method that properly returns key-value pairs (the built-in one only returns
// values).
func newTemplateWithFixedItems(source string) (*exec.Template, error) {
	rootID := fmt.Sprintf("root-%s", string(sha256.New().Sum([]byte(source))))

	loader, err := loaders.NewFileSystemLoader("")
	if err != nil {
		return nil, err
	}

	shiftedLoader, err := loaders.NewShiftedLoader(rootID, bytes.NewReader([]byte(source)), loader)
	if err != nil {
		return nil, err
	}

	customContext := builtins.GlobalFunctions.Inherit()
	customContext.Set("add_generation_prompt", true)
	customContext.Set("strftime_now", func(format string) string {
		return time.Now().Format("2006-01-02")
	})
	customContext.Set("raise_exception", func(msg string) (string, error) {
		return "", errors.New(msg)
	})

	customFilters := builtins.Filters.Update(exec.NewFilterSet(map[string]exec.FilterFunction{}))
	customFilters.Register("items", func(e *exec.Evaluator, in *exec.Value, params *exec.VarArgs) *exec.Value {
		if !in.IsDict() {
			return exec.AsValue([][]any{})
		}
		dict := in.ToGoSimpleType(false)
		if m, ok := dict.(map[string]any); ok {
			items := make([][]any, 0, len(m))
			for key, value := range m {
				items = append(items, []any{key, value})
			}
			return exec.AsValue(items)
		}
		return exec.AsValue([][]any{})
	})

	env := exec.Environment{
		Context:           customContext,
		Filters:           customFilters,
		Tests:             builtins.Tests,
		ControlStructures: builtins.ControlStructures,
		Methods: exec.Methods{
			Dict: exec.NewMethodSet(map[string]exec.Method[map[string]any]{
				"keys": func(self map[string]any, selfValue *exec.Value, arguments *exec.VarArgs) (any, error) {
					if err := arguments.Take(); err != nil {
						return nil, err
					}
					keys := make([]string, 0, len(self))
					for key := range self {
						keys = append(keys, key)
					}
					sort.Strings(keys)
					return keys, nil
				},
				"items": func(self map[string]any, selfValue *exec.Value, arguments *exec.VarArgs) (any, error) {
					if err := arguments.Take(); err != nil {
						return nil, err
					}
					items := make([][]any, 0, len(self))
					for key, value := range self {
						items = append(items, []any{key, value})
					}
					return items, nil
				},
			}),
			Str:   builtins.Methods.Str,
			List:  builtins.Methods.List,
			Bool:  builtins.Methods.Bool,
			Float: builtins.Methods.Float,
			Int:   builtins.Methods.Int,
		},
	}

	return exec.NewTemplate(rootID, gonja.DefaultConfig, shiftedLoader, &env)
}

func readJinjaTemplate(fileName string) (string, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return "", fmt.Errorf("read-jinja-template: failed to read file: %w", err)
	}

	return string(data), nil
}
