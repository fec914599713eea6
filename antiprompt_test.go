package mmsession

import (
	"testing"

	"github.com/hybridgroup/yzma/pkg/llama"
)

func Test_CheckAntiprompt(t *testing.T) {
	tests := []struct {
		name      string
		generated []llama.Token
		stop      []llama.Token
		want      bool
	}{
		{
			name:      "empty-stop",
			generated: []llama.Token{1, 2, 3},
			stop:      nil,
			want:      false,
		},
		{
			name:      "exact-suffix",
			generated: []llama.Token{5, 6, 7, 8},
			stop:      []llama.Token{7, 8},
			want:      true,
		},
		{
			name:      "whole-sequence",
			generated: []llama.Token{7, 8},
			stop:      []llama.Token{7, 8},
			want:      true,
		},
		{
			name:      "match-not-at-end",
			generated: []llama.Token{7, 8, 9},
			stop:      []llama.Token{7, 8},
			want:      false,
		},
		{
			name:      "generated-shorter-than-stop",
			generated: []llama.Token{8},
			stop:      []llama.Token{7, 8},
			want:      false,
		},
		{
			name:      "partial-suffix",
			generated: []llama.Token{5, 6, 7, 9},
			stop:      []llama.Token{7, 8},
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checkAntiprompt(tt.generated, tt.stop); got != tt.want {
				t.Fatalf("checkAntiprompt(%v, %v) = %v, want %v", tt.generated, tt.stop, got, tt.want)
			}
		})
	}
}
