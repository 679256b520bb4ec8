package main

import (
	"testing"

	"github.com/matheusfillipe/euporie/internal/config"
)

func TestKeyRegistryLookupByScope(t *testing.T) {
	r := NewKeyRegistry()

	nav := r.Lookup("j", scopeNotebook)
	if nav == nil {
		t.Fatal("expected nav binding in notebook scope")
	}
	if nav.Action != actionNavDown {
		t.Fatalf("j action = %q, want %q", nav.Action, actionNavDown)
	}

	if got := r.Lookup("a", scopeLogs); got != nil {
		t.Fatalf("did not expect add binding in logs scope, got %q", got.Action)
	}

	quit := r.Lookup("ctrl+q", scopeNotebook)
	if quit == nil {
		t.Fatal("expected quit binding to fall back to global scope")
	}
	if quit.Action != actionQuit {
		t.Fatalf("ctrl+q action = %q, want %q", quit.Action, actionQuit)
	}
}

func TestKeyRegistryUppercaseDistinctFromLowercase(t *testing.T) {
	r := NewKeyRegistry()

	lower := r.Lookup("j", scopeNotebook)
	upper := r.Lookup("J", scopeNotebook)
	if lower == nil || upper == nil {
		t.Fatal("expected both j and J bound in notebook scope")
	}
	if lower.Action != actionNavDown {
		t.Fatalf("j action = %q, want %q", lower.Action, actionNavDown)
	}
	if upper.Action != actionExtendDown {
		t.Fatalf("J action = %q, want %q", upper.Action, actionExtendDown)
	}
}

func TestKeyRegistryChordPrefixes(t *testing.T) {
	r := NewKeyRegistry()

	tests := []struct {
		key   string
		scope string
		want  bool
	}{
		{"d", scopeNotebook, true},
		{"I", scopeNotebook, true},
		{"0", scopeNotebook, true},
		{"j", scopeNotebook, false},
		{"d", scopeLogs, false},
	}
	for _, tt := range tests {
		if got := r.IsChordPrefix(tt.key, tt.scope); got != tt.want {
			t.Fatalf("IsChordPrefix(%q, %q) = %v, want %v", tt.key, tt.scope, got, tt.want)
		}
	}

	del := r.Lookup("dd", scopeNotebook)
	if del == nil || del.Action != actionDeleteCell {
		t.Fatalf("dd lookup = %+v, want %q", del, actionDeleteCell)
	}
	interrupt := r.Lookup("II", scopeNotebook)
	if interrupt == nil || interrupt.Action != actionInterruptKernel {
		t.Fatalf("II lookup = %+v, want %q", interrupt, actionInterruptKernel)
	}
}

func TestNormalizeKeyName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{" ", "space"},
		{"Control+S", "ctrl+s"},
		{"pageup", "pgup"},
		{"pagedown", "pgdown"},
		{"Return", "enter"},
		{"K", "K"},
		{"II", "II"},
		{"shift+Up", "shift+up"},
	}
	for _, tt := range tests {
		if got := normalizeKeyName(tt.in); got != tt.want {
			t.Fatalf("normalizeKeyName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKeyRegistryNoDuplicateInSameScope(t *testing.T) {
	r := &KeyRegistry{
		bindingsByScope: make(map[string][]*Binding),
		indexByScope:    make(map[string]map[string]*Binding),
	}

	r.Register(Binding{Action: actionAddAbove, Keys: []string{"x"}, Help: "first", Scopes: []string{"scope_a"}})
	r.Register(Binding{Action: actionAddBelow, Keys: []string{"x"}, Help: "duplicate", Scopes: []string{"scope_a"}})
	r.Register(Binding{Action: actionAddBelow, Keys: []string{"x"}, Help: "different scope", Scopes: []string{"scope_b"}})

	a := r.BindingsForScope("scope_a")
	if len(a) != 1 {
		t.Fatalf("scope_a bindings = %d, want 1", len(a))
	}
	if a[0].Action != actionAddAbove {
		t.Fatalf("scope_a action = %q, want %q", a[0].Action, actionAddAbove)
	}

	b := r.BindingsForScope("scope_b")
	if len(b) != 1 {
		t.Fatalf("scope_b bindings = %d, want 1", len(b))
	}
}

func TestApplyOverridesRebindsAction(t *testing.T) {
	r := NewKeyRegistry()
	err := r.ApplyOverrides([]config.KeybindingOverride{
		{Scope: scopeNotebook, Action: string(actionRunCell), Keys: []string{"ctrl+r"}},
	})
	if err != nil {
		t.Fatalf("ApplyOverrides: %v", err)
	}

	if got := r.Lookup("ctrl+r", scopeNotebook); got == nil || got.Action != actionRunCell {
		t.Fatalf("ctrl+r lookup = %+v, want %q", got, actionRunCell)
	}
	if got := r.Lookup("ctrl+e", scopeNotebook); got != nil {
		t.Fatalf("old binding ctrl+e still present: %q", got.Action)
	}
}

func TestApplyOverridesRejectsConflicts(t *testing.T) {
	r := NewKeyRegistry()
	err := r.ApplyOverrides([]config.KeybindingOverride{
		{Scope: scopeNotebook, Action: string(actionRunCell), Keys: []string{"x"}},
	})
	if err == nil {
		t.Fatal("expected conflict error rebinding run onto the cut key")
	}

	r = NewKeyRegistry()
	err = r.ApplyOverrides([]config.KeybindingOverride{
		{Scope: "bogus", Action: string(actionRunCell), Keys: []string{"r"}},
	})
	if err == nil {
		t.Fatal("expected unknown scope error")
	}
}
