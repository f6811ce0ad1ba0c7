package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewRegistry_RecordsObservations(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRegistry(Config{Registerer: reg, Namespace: "test"})

	r.ObserveDecision("token_bucket", "tenant1", true)
	r.ObserveScriptEval("token_bucket", "evalsha")
	r.ObserveStoreRoundTrip("evalsha", 0.002)
	r.SetScriptCacheSize(4)

	metricFamilies, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather returned error: %v", err)
	}
	if len(metricFamilies) == 0 {
		t.Fatal("expected at least one metric family to be registered")
	}
}

func TestRegistry_NilIsNoop(t *testing.T) {
	var r *Registry
	// None of these should panic on a nil Registry.
	r.ObserveDecision("token_bucket", "tenant1", false)
	r.ObserveScriptEval("token_bucket", "eval")
	r.ObserveStoreRoundTrip("eval", 0.001)
	r.SetScriptCacheSize(0)
}
