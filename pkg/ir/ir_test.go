package ir

import (
	"strings"
	"testing"
)

func adcStatement() Statement {
	return Statement{
		Reads:  []Value{Var{ID: 0}, Var{ID: 1}},
		Writes: []Value{Carry{ID: 0}, Var{ID: 2}},
		Forms:  [1 << MaxWrites]string{"", "v2 = v0 + v1", "BignumADC(v2, carry, v0, v1, 0)", "BignumADC(v2, carry, v0, v1, 0)"},
	}
}

func TestValueStrings(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Literal{Value: 0}, "0"},
		{Literal{Value: 25}, "25"},
		{Var{ID: 7}, "v7"},
		{Carry{ID: 3}, "carry3"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("%#v.String() = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestMaskOf(t *testing.T) {
	s := adcStatement()
	tests := []struct {
		name string
		used map[Value]bool
		want Mask
	}{
		{"none", map[Value]bool{}, 0},
		{"sum", map[Value]bool{Var{ID: 2}: true}, 1},
		{"carry", map[Value]bool{Carry{ID: 0}: true}, 2},
		{"both", map[Value]bool{Var{ID: 2}: true, Carry{ID: 0}: true}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.MaskOf(func(v Value) bool { return tt.used[v] })
			if got != tt.want {
				t.Errorf("MaskOf = %b, want %b", got, tt.want)
			}
		})
	}
}

func TestWriteAt(t *testing.T) {
	s := adcStatement()
	if got := s.WriteAt(0); got != (Var{ID: 2}) {
		t.Errorf("WriteAt(0) = %v, want v2", got)
	}
	if got := s.WriteAt(1); got != (Carry{ID: 0}) {
		t.Errorf("WriteAt(1) = %v, want carry0", got)
	}
}

func TestWidest(t *testing.T) {
	s := adcStatement()
	tests := []struct{ m, want Mask }{
		{1, 1},
		{2, 3},
		{3, 3},
	}
	for _, tt := range tests {
		if got := s.Widest(tt.m); got != tt.want {
			t.Errorf("Widest(%b) = %b, want %b", tt.m, got, tt.want)
		}
	}
}

func TestSize(t *testing.T) {
	store := Statement{Reads: []Value{Var{ID: 0}}, Forms: [1 << MaxWrites]string{"r->w[0] = v0"}}
	if got := store.Size(); got != 1 {
		t.Errorf("store Size = %d, want 1", got)
	}
	if got := store.Form(0); got != "r->w[0] = v0" {
		t.Errorf("store Form(0) = %q", got)
	}
	s := adcStatement()
	if got := s.Size(); got != 4 {
		t.Errorf("adc Size = %d, want 4", got)
	}
}

func expectPanic(t *testing.T, substr string, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic containing %q", substr)
		}
		if msg, _ := r.(string); !strings.Contains(msg, substr) {
			t.Fatalf("panic %v does not contain %q", r, substr)
		}
	}()
	f()
}

func TestFormPanics(t *testing.T) {
	s := adcStatement()
	expectPanic(t, "no form for mask 0", func() { s.Form(0) })

	short := Statement{Writes: []Value{Var{ID: 0}}, Forms: [1 << MaxWrites]string{1: "v0 = 1"}}
	expectPanic(t, "outside form table", func() { short.Form(2) })
	expectPanic(t, "outside statement", func() { short.WriteAt(1) })
}
