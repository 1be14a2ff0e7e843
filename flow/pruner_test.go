package flow

import "testing"

func TestPruneSkippedSuccessors_SkipsUnfulfilledHandle(t *testing.T) {
	g := NewGraph(
		[]Node{{ID: "cond", Name: NameCondition}, {ID: "yes"}, {ID: "no"}},
		[]Edge{
			{Source: "cond", SourceHandle: "cond-output-0", Target: "yes"},
			{Source: "cond", SourceHandle: "cond-output-1", Target: "no"},
		},
	)
	conditions := []Condition{{IsFullfilled: true}, {IsFullfilled: false}}
	skip := PruneSkippedSuccessors(g, "cond", conditions)

	if skip["yes"] {
		t.Error("yes should not be skipped")
	}
	if !skip["no"] {
		t.Error("no should be skipped")
	}
}

func TestParseConditions_TolerantOfMissingField(t *testing.T) {
	if got := ParseConditions(map[string]any{"output": map[string]any{}}); got != nil {
		t.Errorf("got %v, want nil", got)
	}
	if got := ParseConditions(map[string]any{}); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestParseConditions_ParsesFulfillmentFlags(t *testing.T) {
	output := map[string]any{
		"output": map[string]any{
			"conditions": []any{
				map[string]any{"isFullfilled": true},
				map[string]any{"isFullfilled": false},
			},
		},
	}
	got := ParseConditions(output)
	if len(got) != 2 || !got[0].IsFullfilled || got[1].IsFullfilled {
		t.Errorf("got %v", got)
	}
}
