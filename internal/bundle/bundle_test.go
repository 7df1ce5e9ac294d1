package bundle

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMarshalRoundTrip(t *testing.T) {
	in := Bundle{
		KeyPresenterID: "CounterPresenter:c000010000:1700000000",
		KeyHostScope:   "7d4c0f3e-0000-4000-8000-000000000000",
		"with \"quotes\"": "line\nbreak",
	}
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("bundle mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmarshal_Empty(t *testing.T) {
	out, err := Unmarshal(nil)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Fatalf("Unmarshal(nil) = %v, want empty bundle", out)
	}
}

func TestUnmarshal_Invalid(t *testing.T) {
	if _, err := Unmarshal([]byte("values = [")); err == nil {
		t.Fatalf("Unmarshal accepted invalid TOML")
	}
}

func TestNilBundle(t *testing.T) {
	var b Bundle
	if _, ok := b.Get(KeyPresenterID); ok {
		t.Fatalf("nil bundle returned a value")
	}
	if b.Clone() != nil {
		t.Fatalf("Clone of nil bundle is not nil")
	}
}

func TestClone_IsIndependent(t *testing.T) {
	b := Bundle{"a": "1"}
	c := b.Clone()
	c["a"] = "2"
	if b["a"] != "1" {
		t.Fatalf("Clone shares storage with the original")
	}
}
