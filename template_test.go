package mmsession

import (
	"context"
	"testing"
)

func Test_LegacyStopPhrase(t *testing.T) {
	phrase, found := legacyStopPhrase("vicuna")
	if !found || phrase != "ASSISTANT:" {
		t.Fatalf("vicuna: expected %q, got %q found %v", "ASSISTANT:", phrase, found)
	}

	phrase, found = legacyStopPhrase("deepseek")
	if !found || phrase != "###" {
		t.Fatalf("deepseek: expected %q, got %q found %v", "###", phrase, found)
	}

	if _, found := legacyStopPhrase("chatml"); found {
		t.Fatal("chatml should not have a stop phrase")
	}

	if _, found := legacyStopPhrase(""); found {
		t.Fatal("empty name should not have a stop phrase")
	}
}

func Test_JinjaRenderPrompt(t *testing.T) {
	script := "{% for message in messages %}{{ message.role }}: {{ message.content }}\n{% endfor %}"

	tmpl, err := newTemplateWithFixedItems(script)
	if err != nil {
		t.Fatalf("unable to parse template: %s", err)
	}

	s := Session{
		cfg:   adjustConfig(Config{}),
		log:   func(ctx context.Context, msg string, args ...any) {},
		jinja: tmpl,
	}

	prompt, err := s.renderPrompt("hello")
	if err != nil {
		t.Fatalf("unable to render prompt: %s", err)
	}

	exp := "user: hello\n"
	if prompt != exp {
		t.Fatalf("prompt mismatch\ngot:[%s]\nexp:[%s]", prompt, exp)
	}
}
