package mmsession

import "testing"

func Test_AdjustConfig(t *testing.T) {
	cfg := adjustConfig(Config{})

	if cfg.GPULayers != defGPULayers {
		t.Fatalf("expected GPULayers %d, got %d", defGPULayers, cfg.GPULayers)
	}

	if cfg.ContextWindow != defContextWindow {
		t.Fatalf("expected ContextWindow %d, got %d", defContextWindow, cfg.ContextWindow)
	}

	if cfg.NBatch != defNBatch {
		t.Fatalf("expected NBatch %d, got %d", defNBatch, cfg.NBatch)
	}

	cfg = adjustConfig(Config{
		GPULayers:     12,
		ContextWindow: 2048,
		NBatch:        256,
	})

	if cfg.GPULayers != 12 || cfg.ContextWindow != 2048 || cfg.NBatch != 256 {
		t.Fatalf("configured values should be kept, got %+v", cfg)
	}
}

func Test_AdjustParams(t *testing.T) {
	p := adjustParams(Params{})

	if p.Temperature != defTemp {
		t.Fatalf("expected Temperature %v, got %v", defTemp, p.Temperature)
	}

	if p.TopK != defTopK {
		t.Fatalf("expected TopK %d, got %d", defTopK, p.TopK)
	}

	if p.TopP != defTopP {
		t.Fatalf("expected TopP %v, got %v", defTopP, p.TopP)
	}

	p = adjustParams(Params{Temperature: 0.7, TopK: 20, TopP: 0.5})

	if p.Temperature != 0.7 || p.TopK != 20 || p.TopP != 0.5 {
		t.Fatalf("configured values should be kept, got %+v", p)
	}
}
