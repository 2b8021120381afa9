// Package metrics provides pipeline metrics for quicksip.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no call site needs a nil check:
//
//	recorder := metrics.NoopRecorder{}
//	if cfg.Metrics.Listen != "" {
//	    reg := metrics.NewRegistry()
//	    recorder = metrics.NewPrometheusRecorder(reg)
//	    http.Handle("/metrics", metrics.HTTPHandler(reg))
//	}
//
// Metric families are namespaced "quicksip" and labeled by pipeline prefix.
package metrics
