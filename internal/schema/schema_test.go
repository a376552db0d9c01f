package schema

import (
	"errors"
	"strings"
	"testing"
)

func testSpecs() []FieldSpec {
	return []FieldSpec{
		{Name: "a", Sentinel: "Not mentioned", Prompt: "A from {{.Text}}", RepairPrompt: "Again A from {{ .Text }}"},
		{Name: "b", Sentinel: "N/A", Prompt: "B from {{.Text}}"},
	}
}

func TestNew(t *testing.T) {
	s, err := New("test", testSpecs())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if s.Name() != "test" {
		t.Errorf("Name() = %q, want %q", s.Name(), "test")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
	if got := strings.Join(s.Names(), ","); got != "a,b" {
		t.Errorf("Names() = %s, want a,b", got)
	}
	if s.RepairCount() != 1 {
		t.Errorf("RepairCount() = %d, want 1", s.RepairCount())
	}

	b, ok := s.Field("b")
	if !ok {
		t.Fatal("Field(b) not found")
	}
	if b.Index() != 1 || b.Sentinel() != "N/A" || b.HasRepair() {
		t.Errorf("Field(b) = index %d sentinel %q repair %v", b.Index(), b.Sentinel(), b.HasRepair())
	}
	if _, ok := s.Field("missing"); ok {
		t.Error("Field(missing) should not be found")
	}

	if !s.IsEmptyValue("Not available") || s.IsEmptyValue("not available") {
		t.Error("IsEmptyValue() should match the default set exactly")
	}
}

func TestNew_CopiesInput(t *testing.T) {
	specs := testSpecs()
	s, err := New("test", specs)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	specs[0].Name = "changed"
	specs[0].Sentinel = "changed"

	if s.FieldAt(0).Name() != "a" || s.FieldAt(0).Sentinel() != "Not mentioned" {
		t.Error("schema changed after mutating input specs")
	}

	fields := s.Fields()
	fields[0] = nil
	if s.FieldAt(0) == nil {
		t.Error("Fields() exposed internal slice")
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name  string
		specs []FieldSpec
		want  error
	}{
		{
			name: "no fields",
			want: ErrNoFields,
		},
		{
			name:  "empty name",
			specs: []FieldSpec{{Name: " ", Sentinel: "x", Prompt: "{{.Text}}"}},
			want:  ErrInvalidField,
		},
		{
			name: "duplicate name",
			specs: []FieldSpec{
				{Name: "a", Sentinel: "x", Prompt: "{{.Text}}"},
				{Name: "a", Sentinel: "x", Prompt: "{{.Text}}"},
			},
			want: ErrDuplicateField,
		},
		{
			name:  "empty sentinel",
			specs: []FieldSpec{{Name: "a", Prompt: "{{.Text}}"}},
			want:  ErrInvalidField,
		},
		{
			name:  "no substitution",
			specs: []FieldSpec{{Name: "a", Sentinel: "x", Prompt: "Extract the title"}},
			want:  ErrInvalidField,
		},
		{
			name:  "wrong variable",
			specs: []FieldSpec{{Name: "a", Sentinel: "x", Prompt: "Read {{.Document}}"}},
			want:  ErrInvalidField,
		},
		{
			name:  "extra variable",
			specs: []FieldSpec{{Name: "a", Sentinel: "x", Prompt: "{{.Text}} {{.Field}}"}},
			want:  ErrInvalidField,
		},
		{
			name:  "substituted twice",
			specs: []FieldSpec{{Name: "a", Sentinel: "x", Prompt: "{{.Text}} and {{.Text}}"}},
			want:  ErrInvalidField,
		},
		{
			name:  "hidden reference",
			specs: []FieldSpec{{Name: "a", Sentinel: "x", Prompt: "{{if .Other}}x{{end}} {{.Text}}"}},
			want:  ErrInvalidField,
		},
		{
			name:  "unparseable",
			specs: []FieldSpec{{Name: "a", Sentinel: "x", Prompt: "{{.Text}} {{"}},
			want:  ErrInvalidField,
		},
		{
			name:  "bad repair prompt",
			specs: []FieldSpec{{Name: "a", Sentinel: "x", Prompt: "{{.Text}}", RepairPrompt: "no document"}},
			want:  ErrInvalidField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("test", tt.specs)
			if !errors.Is(err, tt.want) {
				t.Errorf("New() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWithEmptyValues(t *testing.T) {
	s, err := New("test", testSpecs(), WithEmptyValues("N/A", "None"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := strings.Join(s.EmptyValues(), ","); got != "N/A,None" {
		t.Errorf("EmptyValues() = %s, want N/A,None", got)
	}
	if s.IsEmptyValue("Not mentioned") {
		t.Error("IsEmptyValue(Not mentioned) = true after override")
	}
}

func TestField_Render(t *testing.T) {
	s, err := New("test", testSpecs())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	a := s.FieldAt(0)
	got, err := a.RenderPrompt("doc <b> & text")
	if err != nil {
		t.Fatalf("RenderPrompt() error = %v", err)
	}
	if got != "A from doc <b> & text" {
		t.Errorf("RenderPrompt() = %q", got)
	}

	got, err = a.RenderRepairPrompt("doc")
	if err != nil {
		t.Fatalf("RenderRepairPrompt() error = %v", err)
	}
	if got != "Again A from doc" {
		t.Errorf("RenderRepairPrompt() = %q", got)
	}

	if _, err := s.FieldAt(1).RenderRepairPrompt("doc"); err == nil {
		t.Error("RenderRepairPrompt() on field without repair prompt should fail")
	}
}

func TestExtractVariables(t *testing.T) {
	got := ExtractVariables("Read {{.Text}} for {{ .Field }} and {{.Text}}")
	if strings.Join(got, ",") != "Field,Text" {
		t.Errorf("ExtractVariables() = %v, want [Field Text]", got)
	}
	if got := ExtractVariables("plain"); len(got) != 0 {
		t.Errorf("ExtractVariables(plain) = %v, want empty", got)
	}
}

func TestHashText(t *testing.T) {
	a := HashText("prompt")
	if len(a) != 64 {
		t.Errorf("HashText() length = %d, want 64", len(a))
	}
	if a != HashText("prompt") {
		t.Error("HashText() not deterministic")
	}
	if a == HashText("prompt2") {
		t.Error("HashText() collided on different input")
	}
}
