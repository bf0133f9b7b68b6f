package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"Stage", KeyStage, "client_bundle", Stage("client_bundle")},
		{"Entry", KeyEntry, "about/index", Entry("about/index")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"Component", KeyComponent, "Counter", Component("Counter")},
		{"BuildID", KeyBuildID, "b1", BuildID("b1")},
	}
	for _, c := range cases {
		if c.attr.Key != c.attrKey {
			t.Fatalf("%s: expected key %s got %s", c.name, c.attrKey, c.attr.Key)
		}
		if c.attr.Value.String() != c.attrVal {
			t.Fatalf("%s: expected value %s got %s", c.name, c.attrVal, c.attr.Value.String())
		}
	}
}

func TestNumericAndErrorHelpers(t *testing.T) {
	if a := Port(3000); a.Key != KeyPort || a.Value.Int64() != 3000 {
		t.Fatalf("unexpected port attr %v", a)
	}
	if a := Count(7); a.Value.Int64() != 7 {
		t.Fatalf("unexpected count attr %v", a)
	}
	if a := DurationMS(1.5); a.Value.Float64() != 1.5 {
		t.Fatalf("unexpected duration attr %v", a)
	}
	if a := Error(nil); a.Value.String() != "" {
		t.Fatalf("nil error should produce empty value, got %q", a.Value.String())
	}
	if a := Error(errors.New("boom")); a.Value.String() != "boom" {
		t.Fatalf("unexpected error attr %v", a)
	}
}
