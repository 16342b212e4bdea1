package validation

import (
	"strings"
	"testing"
)

type sample struct {
	Name  string   `validate:"required"`
	Level string   `validate:"oneof=debug info"`
	Tags  []string `validate:"min=1,dive,required"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		input   *sample
		wantErr string
	}{
		{"valid", &sample{Name: "x", Level: "info", Tags: []string{"a"}}, ""},
		{"missing name", &sample{Level: "info", Tags: []string{"a"}}, "sample.Name: field is required"},
		{"bad level", &sample{Name: "x", Level: "loud", Tags: []string{"a"}}, "must be one of [debug info]"},
		{"no tags", &sample{Name: "x", Level: "info"}, "must be at least 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.input)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}

	if err := Struct(nil); err == nil {
		t.Error("expected error for nil")
	}
}

func TestValidateLabel(t *testing.T) {
	tests := []struct {
		label   string
		wantErr bool
	}{
		{"Person", false},
		{"HAS_FRIEND", false},
		{"", true},
		{"bad-label", true},
		{strings.Repeat("a", 51), true},
	}
	for _, tt := range tests {
		if err := ValidateLabel(tt.label); (err != nil) != tt.wantErr {
			t.Errorf("ValidateLabel(%q) error = %v, wantErr %v", tt.label, err, tt.wantErr)
		}
	}
}

func TestValidatePropertyKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"name", false},
		{"_id", false},
		{"first_name2", false},
		{"", true},
		{"2name", true},
		{"na-me", true},
		{strings.Repeat("k", 101), true},
	}
	for _, tt := range tests {
		if err := ValidatePropertyKey(tt.key); (err != nil) != tt.wantErr {
			t.Errorf("ValidatePropertyKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
		}
	}
}

func TestValidateParameters(t *testing.T) {
	if err := ValidateParameters(map[string]any{"name": 1, "_x": 2}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateParameters(map[string]any{"bad name": 1}); err == nil {
		t.Error("expected error for invalid parameter name")
	}
}
