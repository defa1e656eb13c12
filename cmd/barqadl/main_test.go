package main

import (
	"strings"
	"testing"

	"github.com/Reflex-Gravity/BarqAdl/internal/judge"
	"github.com/Reflex-Gravity/BarqAdl/internal/pipeline"
)

func TestEvaluationLine(t *testing.T) {
	res := &pipeline.Result{
		Evaluation: pipeline.Summary{
			Scores:     judge.Scores{LegalAccuracy: 7, Completeness: 6, Actionability: 8, CitationQuality: 5, Total: 26},
			RetryCount: 2,
		},
		DomainsUsed: []string{"labor", "visa"},
		TraceID:     "abc",
	}

	line := evaluationLine(res)
	for _, want := range []string{"score 26/40", "below threshold", "retries=2", "agents=labor,visa", "trace=abc"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}

func TestRenderRaw(t *testing.T) {
	rawOutput = true
	t.Cleanup(func() { rawOutput = false })

	if got := render("# Title"); got != "# Title" {
		t.Errorf("raw render: %q", got)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"ask": false, "agents": false, "strategies": false, "metrics": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %s not registered", name)
		}
	}
}
