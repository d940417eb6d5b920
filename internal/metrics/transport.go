package metrics

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

type roundTripper func(*http.Request) (*http.Response, error)

func (f roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// InstrumentTransport wraps next so every outbound request is counted, timed
// and logged at debug level. A nil next uses http.DefaultTransport.
func InstrumentTransport(reg *Registry, logger *zap.Logger, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return roundTripper(func(req *http.Request) (*http.Response, error) {
		reg.InFlightInc()
		defer reg.InFlightDec()

		start := time.Now()
		resp, err := next.RoundTrip(req)
		duration := time.Since(start)

		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		reg.RecordRequest(req.URL.Host, status, duration.Seconds())

		fields := []zap.Field{
			zap.String("method", req.Method),
			zap.String("host", req.URL.Host),
			zap.String("path", req.URL.Path),
			zap.Int("status", status),
			zap.Int64("duration_ms", duration.Milliseconds()),
		}
		if err != nil {
			logger.Warn("http request failed", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("http request", fields...)
		}

		return resp, err
	})
}
