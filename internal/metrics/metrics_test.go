package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersAndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveAdvance(OutcomeAdvanced)
	m.ObserveAdvance(OutcomeAdvanced)
	m.ObserveAdvance(OutcomeBusy)
	m.ObservePersistenceError("save")
	m.SetStage("hyphae", []string{"spore", "hyphae"})

	if got := testutil.ToFloat64(m.Advances.WithLabelValues(OutcomeAdvanced)); got != 2 {
		t.Fatalf("advanced = %v", got)
	}
	if got := testutil.ToFloat64(m.Stage.WithLabelValues("spore")); got != 0 {
		t.Fatalf("spore gauge = %v", got)
	}
	if got := testutil.ToFloat64(m.Stage.WithLabelValues("hyphae")); got != 1 {
		t.Fatalf("hyphae gauge = %v", got)
	}

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `mycelium_persistence_errors_total{op="save"} 1`) {
		t.Fatalf("missing persistence counter in:\n%s", body)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveAdvance(OutcomeAdvanced)
	m.ObserveAttempt("error")
	m.ObserveDiscovery(DiscoveryFound)
	m.ObserveTranslationError()
	m.ObservePersistenceError("load")
	m.ObserveReset()
	m.SetStage("spore", []string{"spore"})
}
