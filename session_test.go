package mmsession

import (
	"context"
	"errors"
	"testing"
)

func emptySession() *Session {
	return &Session{
		cfg: adjustConfig(Config{}),
		log: func(ctx context.Context, msg string, args ...any) {},
	}
}

func Test_NewSessionRequiresInit(t *testing.T) {
	if libraryLocation != "" {
		t.Skip("backend already initialized")
	}

	if _, err := NewSession(Config{}); !errors.Is(err, ErrPrerequisiteMissing) {
		t.Fatalf("expected ErrPrerequisiteMissing, got %v", err)
	}
}

func Test_SessionPrerequisites(t *testing.T) {
	s := emptySession()

	if err := s.LoadVisionModel("proj.gguf"); !errors.Is(err, ErrPrerequisiteMissing) {
		t.Fatalf("LoadVisionModel: expected ErrPrerequisiteMissing, got %v", err)
	}

	if err := s.InitContext(); !errors.Is(err, ErrPrerequisiteMissing) {
		t.Fatalf("InitContext: expected ErrPrerequisiteMissing, got %v", err)
	}

	if err := s.InitBatch(); !errors.Is(err, ErrPrerequisiteMissing) {
		t.Fatalf("InitBatch: expected ErrPrerequisiteMissing, got %v", err)
	}

	if err := s.InitSampler(); !errors.Is(err, ErrPrerequisiteMissing) {
		t.Fatalf("InitSampler: expected ErrPrerequisiteMissing, got %v", err)
	}

	if s.batchOwned || s.sampler != 0 {
		t.Fatal("batch and sampler must stay unset while no model is loaded")
	}

	if err := s.InitChatTemplate("vicuna"); !errors.Is(err, ErrPrerequisiteMissing) {
		t.Fatalf("InitChatTemplate: expected ErrPrerequisiteMissing, got %v", err)
	}

	if err := s.StageImage("image.jpg"); !errors.Is(err, ErrPrerequisiteMissing) {
		t.Fatalf("StageImage: expected ErrPrerequisiteMissing, got %v", err)
	}

	if err := s.EvalMessage("hello", true); !errors.Is(err, ErrPrerequisiteMissing) {
		t.Fatalf("EvalMessage: expected ErrPrerequisiteMissing, got %v", err)
	}

	if _, err := s.Generate("hello", 8); !errors.Is(err, ErrPrerequisiteMissing) {
		t.Fatalf("Generate: expected ErrPrerequisiteMissing, got %v", err)
	}

	if s.Ready() {
		t.Fatal("empty session should not be ready")
	}
}

func Test_StreamPrerequisiteYieldsOnce(t *testing.T) {
	s := emptySession()

	var pieces int
	var errs int

	for piece, err := range s.Stream("hello", 8) {
		switch {
		case err != nil:
			errs++
			if !errors.Is(err, ErrPrerequisiteMissing) {
				t.Fatalf("expected ErrPrerequisiteMissing, got %v", err)
			}

		default:
			pieces++
			_ = piece
		}
	}

	if errs != 1 || pieces != 0 {
		t.Fatalf("expected exactly one error and no pieces, got %d errors %d pieces", errs, pieces)
	}
}

func Test_CloseIdempotent(t *testing.T) {
	s := emptySession()

	s.SetNPast(42)
	s.AddBitmap(0)

	s.Close()
	s.Close()

	if s.NPast() != 0 {
		t.Fatalf("expected position counter reset, got %d", s.NPast())
	}

	if s.StagedImages() != 0 {
		t.Fatalf("expected staging buffer cleared, got %d", s.StagedImages())
	}

	if s.StopTokens() != nil {
		t.Fatal("expected stop tokens cleared")
	}
}
