package mmsession

import "github.com/hybridgroup/yzma/pkg/llama"

// checkAntiprompt reports whether the generated tokens end with the stop
// sequence. An empty stop sequence never matches.
func checkAntiprompt(generated []llama.Token, stop []llama.Token) bool {
	if len(stop) == 0 || len(generated) < len(stop) {
		return false
	}

	tail := generated[len(generated)-len(stop):]
	for i := range stop {
		if tail[i] != stop[i] {
			return false
		}
	}

	return true
}
