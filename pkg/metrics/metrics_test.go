package metrics

import "testing"

func TestNewRegistersEveryMetric(t *testing.T) {
	m := New()
	if m == nil {
		t.Fatal("expected a non-nil Metrics")
	}

	gauges := map[string]interface{ Set(float64) }{
		"ConnectedUsers":  m.ConnectedUsers,
		"ActiveDocuments": m.ActiveDocuments,
	}
	for name, g := range gauges {
		if g == nil {
			t.Errorf("expected %s to be initialized", name)
		}
	}

	counters := map[string]interface{ Inc() }{
		"OpsApplied":     m.OpsApplied,
		"RecordsRelayed": m.RecordsRelayed,
		"ProtocolErrors": m.ProtocolErrors,
		"LoginAttempts":  m.LoginAttempts,
		"LoginFailures":  m.LoginFailures,
		"BytesPersisted": m.BytesPersisted,
	}
	for name, c := range counters {
		if c == nil {
			t.Errorf("expected %s to be initialized", name)
		}
	}

	m.ConnectedUsers.Set(3)
	m.OpsApplied.Inc()
}
