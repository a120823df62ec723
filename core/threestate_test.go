package core

import "testing"

func TestTriState_And(t *testing.T) {
	tests := []struct {
		name     string
		operands []TriState
		want     TriState
	}{
		{"all true", []TriState{True, True}, True},
		{"one false wins", []TriState{True, False, Unknown}, False},
		{"false wins over unknown regardless of position", []TriState{Unknown, False}, False},
		{"unknown with no false", []TriState{True, Unknown}, Unknown},
		{"empty operands", nil, Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := And(tt.operands...); got != tt.want {
				t.Errorf("And(%v) = %v, want %v", tt.operands, got, tt.want)
			}
		})
	}
}

func TestTriState_Or(t *testing.T) {
	tests := []struct {
		name     string
		operands []TriState
		want     TriState
	}{
		{"all false", []TriState{False, False}, False},
		{"one true wins", []TriState{False, True, Unknown}, True},
		{"unknown with no true", []TriState{False, Unknown}, Unknown},
		{"empty operands", nil, Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Or(tt.operands...); got != tt.want {
				t.Errorf("Or(%v) = %v, want %v", tt.operands, got, tt.want)
			}
		})
	}
}

func TestTriState_Not(t *testing.T) {
	tests := []struct {
		name string
		in   TriState
		want TriState
	}{
		{"not true", True, False},
		{"not false", False, True},
		{"not unknown", Unknown, Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Not(); got != tt.want {
				t.Errorf("Not() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTriState_Bool(t *testing.T) {
	if True.Bool() != true {
		t.Error("True.Bool() = false, want true")
	}
	if False.Bool() != false {
		t.Error("False.Bool() = true, want false")
	}
	if Unknown.Bool() != false {
		t.Error("Unknown.Bool() = true, want false")
	}
}

func TestFromBool(t *testing.T) {
	if FromBool(true) != True {
		t.Error("FromBool(true) != True")
	}
	if FromBool(false) != False {
		t.Error("FromBool(false) != False")
	}
}

func TestTriState_String(t *testing.T) {
	tests := map[TriState]string{True: "true", False: "false", Unknown: "unknown"}
	for in, want := range tests {
		if got := in.String(); got != want {
			t.Errorf("(%d).String() = %q, want %q", in, got, want)
		}
	}
}
