package tender

import "testing"

func TestParseMethod(t *testing.T) {
	cases := map[string]MethodKind{
		"cash":     MethodCash,
		"Cash":     MethodCash,
		" TRANSFER ": MethodTransfer,
		"card":     MethodCard,
		"cod":      MethodCOD,
	}
	for in, want := range cases {
		got, err := ParseMethod(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %s got %s", in, want, got)
		}
	}
	if _, err := ParseMethod("bitcoin"); err == nil {
		t.Fatal("expected error for unknown method")
	}
}

func TestRequiresReference(t *testing.T) {
	if MethodCash.RequiresReference() || MethodCOD.RequiresReference() {
		t.Fatal("cash and cod must not require a reference")
	}
	if !MethodTransfer.RequiresReference() || !MethodCard.RequiresReference() {
		t.Fatal("transfer and card must require a reference")
	}
}

func TestDeferred(t *testing.T) {
	if !MethodCOD.Deferred() {
		t.Fatal("cod settles later")
	}
	if MethodCash.Deferred() {
		t.Fatal("cash settles immediately")
	}
}
