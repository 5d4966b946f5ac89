// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package console_test

import (
	"testing"

	"github.com/chriscoyle101/karaf/console"
)

func TestResolvePrompt(t *testing.T) {
	props := console.NewProperties()
	props.Put(console.UserProperty, "karaf")
	props.Put(console.ApplicationProperty, "root")
	props.Put(console.SubshellProperty, "")
	props.Put("A", "${B}")
	props.Put("B", "deep")
	props.Put("LOOP", "${LOOP}")

	cases := []struct {
		template string
		want     string
	}{
		{console.DefaultPrompt, "\x1b[1mkaraf\x1b[0m@root()> "},
		{"${A}> ", "deep> "},
		{"${MISSING}$ ", "${MISSING}$ "},
		{"${USER}/${USER}", "karaf/karaf"},
		{"plain", "plain"},
	}
	for _, tc := range cases {
		got, err := console.ResolvePrompt(tc.template, props)
		if err != nil {
			t.Fatalf("ResolvePrompt(%q): %v", tc.template, err)
		}
		if got != tc.want {
			t.Fatalf("ResolvePrompt(%q): got %q, want %q", tc.template, got, tc.want)
		}
	}

	if _, err := console.ResolvePrompt("${LOOP}", props); err == nil {
		t.Fatalf("self-referencing prompt resolved")
	}
}
