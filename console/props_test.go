// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package console_test

import (
	"testing"

	"github.com/chriscoyle101/karaf/console"
)

func TestPropertiesUnboundThenBound(t *testing.T) {
	p := console.NewProperties()
	p.Put("early", 1)
	if v, ok := p.Get("early"); !ok || v != 1 {
		t.Fatalf("got %v, %v, want 1", v, ok)
	}

	target := &mapStore{}
	if err := p.Bind(target); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if !p.Bound() {
		t.Fatalf("bag not bound")
	}
	if v, ok := target.Get("early"); !ok || v != 1 {
		t.Fatalf("buffered write not replayed: got %v, %v", v, ok)
	}

	p.Put("late", "x")
	if v, _ := target.Get("late"); v != "x" {
		t.Fatalf("got %v, want writes forwarded after bind", v)
	}
	target.Put("direct", true)
	if !p.Bool("direct") {
		t.Fatalf("reads not forwarded after bind")
	}
	if err := p.Bind(&mapStore{}); err == nil {
		t.Fatalf("second bind succeeded")
	}
}

func TestPropertiesBool(t *testing.T) {
	p := console.NewProperties()
	p.Put("b", true)
	p.Put("s", "TRUE")
	p.Put("n", 1)
	p.Put("x", "nope")
	for name, want := range map[string]bool{"b": true, "s": true, "n": true, "x": false, "missing": false} {
		if got := p.Bool(name); got != want {
			t.Fatalf("Bool(%q): got %v, want %v", name, got, want)
		}
	}
}
