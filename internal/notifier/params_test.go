package notifier

import (
	"reflect"
	"testing"
)

func TestParams_FromYAMLShapes(t *testing.T) {
	params := map[string]any{
		"host":    "smtp.example.com",
		"port":    587,
		"timeout": float64(30),
		"to":      []any{"a@example.com", "b@example.com"},
		"headers": map[string]any{"X-Token": "abc"},
	}

	if s, ok := StringParam(params, "host"); !ok || s != "smtp.example.com" {
		t.Errorf("unexpected host: %q %v", s, ok)
	}
	if n, ok := IntParam(params, "port"); !ok || n != 587 {
		t.Errorf("unexpected port: %d %v", n, ok)
	}
	if n, ok := IntParam(params, "timeout"); !ok || n != 30 {
		t.Errorf("unexpected timeout: %d %v", n, ok)
	}
	if to, ok := StringsParam(params, "to"); !ok || !reflect.DeepEqual(to, []string{"a@example.com", "b@example.com"}) {
		t.Errorf("unexpected to: %v %v", to, ok)
	}
	if h, ok := StringMapParam(params, "headers"); !ok || h["X-Token"] != "abc" {
		t.Errorf("unexpected headers: %v %v", h, ok)
	}
}

func TestParams_Missing(t *testing.T) {
	params := map[string]any{"port": "not a number"}

	if _, ok := StringParam(params, "host"); ok {
		t.Error("expected missing host")
	}
	if _, ok := IntParam(params, "port"); ok {
		t.Error("expected non-integer port to be rejected")
	}
	if _, ok := StringsParam(params, "to"); ok {
		t.Error("expected missing to")
	}
	if _, ok := StringMapParam(params, "headers"); ok {
		t.Error("expected missing headers")
	}
}
