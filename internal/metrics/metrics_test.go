package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func family(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric %s not found", name)
	return nil
}

func TestGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("partyhouse", reg)
	m.IncOnlinePlayers()
	m.IncOnlinePlayers()
	m.DecOnlinePlayers()
	m.SetActiveRooms(4)

	if v := family(t, reg, "partyhouse_online_players").GetMetric()[0].GetGauge().GetValue(); v != 1 {
		t.Fatalf("expected 1 online player, got %v", v)
	}
	if v := family(t, reg, "partyhouse_active_rooms").GetMetric()[0].GetGauge().GetValue(); v != 4 {
		t.Fatalf("expected 4 rooms, got %v", v)
	}
}

func TestCommandsAndParties(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("partyhouse", reg)
	m.ObserveCommand("inviteGuest", "ok", time.Millisecond)
	m.ObserveCommand("inviteGuest", "ok", time.Millisecond)
	m.ObserveCommand("inviteGuest", "not_your_turn", time.Millisecond)
	m.IncParties("trouble_overflow")

	total := 0.0
	for _, metric := range family(t, reg, "partyhouse_commands_total").GetMetric() {
		total += metric.GetCounter().GetValue()
	}
	if total != 3 {
		t.Fatalf("expected 3 commands, got %v", total)
	}
	hist := family(t, reg, "partyhouse_command_latency_seconds").GetMetric()[0].GetHistogram()
	if hist.GetSampleCount() != 3 {
		t.Fatalf("expected 3 latency samples, got %d", hist.GetSampleCount())
	}
	if v := family(t, reg, "partyhouse_parties_total").GetMetric()[0].GetCounter().GetValue(); v != 1 {
		t.Fatalf("expected 1 party, got %v", v)
	}
}

func TestHandler(t *testing.T) {
	m := New("partyhouse", nil)
	m.SetActiveRooms(2)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "partyhouse_active_rooms 2") {
		t.Fatalf("unexpected body:\n%s", rec.Body.String())
	}
}
