// Package metrics constructs the metrics the session will track.
package metrics

import (
	"expvar"
	"time"
)

var m metrics

type metrics struct {
	generations       *expvar.Int
	modelFileLoadTime *avgMetric
	projFileLoadTime  *avgMetric
	promptFormatTime  *avgMetric
	prefillTime       *avgMetric
	timeToFirstToken  *avgMetric
	generationUsage   *usage
}

func init() {
	m = metrics{
		generations:       expvar.NewInt("session_generations"),
		modelFileLoadTime: newAvgMetric("model_load"),
		projFileLoadTime:  newAvgMetric("model_load_proj"),
		promptFormatTime:  newAvgMetric("model_prompt_format"),
		prefillTime:       newAvgMetric("model_prefill"),
		timeToFirstToken:  newAvgMetric("model_ttft"),
		generationUsage:   newUsage("usage_generations"),
	}
}

// AddGeneration increments the generations metric by 1.
func AddGeneration() int64 {
	m.generations.Add(1)
	return m.generations.Value()
}

// AddModelFileLoadTime captures the specified duration for loading a model file.
func AddModelFileLoadTime(duration time.Duration) {
	m.modelFileLoadTime.add(duration.Seconds())
}

// AddProjFileLoadTime captures the specified duration for loading a proj file.
func AddProjFileLoadTime(duration time.Duration) {
	m.projFileLoadTime.add(duration.Seconds())
}

// AddPromptFormatTime captures the specified duration for formatting a turn.
func AddPromptFormatTime(duration time.Duration) {
	m.promptFormatTime.add(duration.Seconds())
}

// AddPrefillTime captures the specified duration for evaluating a turn.
func AddPrefillTime(duration time.Duration) {
	m.prefillTime.add(duration.Seconds())
}

// AddTimeToFirstToken captures the specified duration for ttft.
func AddTimeToFirstToken(duration time.Duration) {
	m.timeToFirstToken.add(duration.Seconds())
}

// AddGenerationUsage captures the specified usage values for a generation.
func AddGenerationUsage(outputTokens int, tokensPerSecond float64) {
	data := usageData{
		OutputTokens:    outputTokens,
		TokensPerSecond: tokensPerSecond,
	}

	m.generationUsage.add(data)
}
