package validate

import (
	"strings"
	"testing"

	"github.com/cuken/overseer/pkg/types"
)

func TestSubmission_AcceptsValidTask(t *testing.T) {
	if err := Submission("write a haiku", types.ModeAsk); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSubmission_RejectsUnknownMode(t *testing.T) {
	if err := Submission("do something", types.Mode("nonexistent")); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestSubmission_RejectsEmptyDescription(t *testing.T) {
	if err := Submission("   ", types.ModeAsk); err == nil {
		t.Fatalf("expected error for empty description")
	}
}

func TestSubmission_RejectsOverlongDescription(t *testing.T) {
	if err := Submission(strings.Repeat("a", 10001), types.ModeAsk); err == nil {
		t.Fatalf("expected error for overlong description")
	}
}

func TestSubmission_RejectsScriptInjection(t *testing.T) {
	cases := []string{
		`<script>alert(1)</script>`,
		`click javascript:doEvil()`,
		`data:text/html,<h1>hi</h1>`,
		`eval(maliciousCode)`,
		`function(){ return 1; }`,
	}
	for _, c := range cases {
		if err := Submission(c, types.ModeAsk); err == nil {
			t.Errorf("expected rejection for %q", c)
		}
	}
}
