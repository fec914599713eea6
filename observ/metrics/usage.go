package metrics

type usageData struct {
	OutputTokens    int
	TokensPerSecond float64
}

type usage struct {
	outputTokens    *avgMetric
	tokensPerSecond *avgMetric
}

func newUsage(name string) *usage {
	return &usage{
		outputTokens:    newAvgMetric(name + "_tkns_output"),
		tokensPerSecond: newAvgMetric(name + "_tkns_persecond"),
	}
}

func (u *usage) add(data usageData) {
	u.outputTokens.add(float64(data.OutputTokens))
	u.tokensPerSecond.add(data.TokensPerSecond)
}
