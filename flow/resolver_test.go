package flow

import (
	"errors"
	"testing"
)

func TestResolveString_Question(t *testing.T) {
	ctx := &ResolveContext{Question: "what time is it"}
	got, err := ctx.ResolveString("Q: {{question}}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "Q: what time is it"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveString_QuestionWithFileAttachment(t *testing.T) {
	ctx := &ResolveContext{Question: "summarize this", FileAttachmentText: "file contents here"}
	got, _ := ctx.ResolveString("{{question}}")
	if want := "file contents here\nsummarize this"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveString_NodeReference(t *testing.T) {
	ctx := &ResolveContext{
		Checkpoint: ExecutedData{
			{NodeID: "n1", Data: map[string]any{"output": map[string]any{"content": "n1 output"}}},
		},
	}
	got, _ := ctx.ResolveString("prior: {{n1}}")
	if want := "prior: n1 output"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveString_UnresolvedReferenceLeftVerbatim(t *testing.T) {
	ctx := &ResolveContext{}
	got, err := ctx.ResolveString("{{unknown_node}}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "{{unknown_node}}"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveString_VarsAndForm(t *testing.T) {
	ctx := &ResolveContext{
		Form: map[string]any{"name": "Ada"},
		Vars: map[string]any{"env": "prod"},
	}
	got, _ := ctx.ResolveString("{{$form.name}} / {{$vars.env}}")
	if want := "Ada / prod"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveString_UnknownDollarNamespaceIsResolveError(t *testing.T) {
	ctx := &ResolveContext{Vars: map[string]any{"env": "prod"}}
	_, err := ctx.ResolveString("{{$var.env}}")
	if err == nil {
		t.Fatal("expected a ResolveError for a mistyped $ namespace")
	}
	var resolveErr *ResolveError
	if !errors.As(err, &resolveErr) {
		t.Fatalf("got %T, want *ResolveError", err)
	}
	if resolveErr.Reference != "$var.env" {
		t.Errorf("got reference %q, want %q", resolveErr.Reference, "$var.env")
	}
}

func TestResolveValue_RecursesThroughMapsAndSlices(t *testing.T) {
	ctx := &ResolveContext{Question: "hi"}
	v := map[string]any{
		"list": []any{"{{question}}", 42},
	}
	resolved, err := ctx.ResolveValue(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := resolved.(map[string]any)
	list := m["list"].([]any)
	if list[0] != "hi" {
		t.Errorf("got %v, want %q", list[0], "hi")
	}
	if list[1] != 42 {
		t.Errorf("got %v, want 42", list[1])
	}
}
