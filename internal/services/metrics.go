package services

// MetricsRecorder receives authentication outcome counts
type MetricsRecorder interface {
	ObserveLogin(result string)
	ObserveRegistration(result string)
	ObserveTokens(flow, result string)
	ObserveIPBlock()
}

type noopMetrics struct{}

func (noopMetrics) ObserveLogin(string)          {}
func (noopMetrics) ObserveRegistration(string)   {}
func (noopMetrics) ObserveTokens(string, string) {}
func (noopMetrics) ObserveIPBlock()              {}

func metricsOrNoop(m MetricsRecorder) MetricsRecorder {
	if m == nil {
		return noopMetrics{}
	}
	return m
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
