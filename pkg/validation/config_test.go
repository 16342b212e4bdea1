package validation

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestConfigValidator_RangeDuration(t *testing.T) {
	tests := []struct {
		name    string
		value   time.Duration
		wantErr bool
	}{
		{"below", 0, true},
		{"lower bound", time.Second, false},
		{"inside", 5 * time.Second, false},
		{"upper bound", time.Minute, false},
		{"above", 2 * time.Minute, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cv := NewConfigValidator("TestConfig")
			cv.RangeDuration("Timeout", tt.value, time.Second, time.Minute)
			if cv.HasErrors() != tt.wantErr {
				t.Errorf("HasErrors() = %v, want %v", cv.HasErrors(), tt.wantErr)
			}
		})
	}
}

func TestConfigValidator_Custom(t *testing.T) {
	sentinel := errors.New("custom validation failed")
	cv := NewConfigValidator("TestConfig")
	cv.Custom("CustomField", func() error { return sentinel })

	if !cv.HasErrors() {
		t.Fatal("Expected error from custom validation")
	}
	if !errors.Is(cv.Validate(), sentinel) {
		t.Errorf("Validate() = %v, want it to wrap the custom error", cv.Validate())
	}

	cv2 := NewConfigValidator("TestConfig")
	cv2.Custom("CustomField", func() error { return nil })
	if cv2.HasErrors() {
		t.Error("Expected no error from passing custom validation")
	}
}

func TestConfigValidator_When(t *testing.T) {
	cv := NewConfigValidator("TestConfig")
	cv.When(true, func(v *ConfigValidator) {
		v.RangeDuration("Timeout", -1, 0, time.Second)
	})
	if !cv.HasErrors() {
		t.Error("Expected error when condition is true")
	}

	cv2 := NewConfigValidator("TestConfig")
	cv2.When(false, func(v *ConfigValidator) {
		v.RangeDuration("Timeout", -1, 0, time.Second)
	})
	if cv2.HasErrors() {
		t.Error("Expected no error when condition is false")
	}
}

func TestConfigValidator_Validate(t *testing.T) {
	if err := NewConfigValidator("TestConfig").Validate(); err != nil {
		t.Errorf("Validate() on no rules = %v, want nil", err)
	}

	cv := NewConfigValidator("TestConfig")
	cv.RangeDuration("A", 0, time.Second, time.Minute)
	err := cv.Validate()
	if err == nil || err.Error() != "TestConfig.A: duration 0s is outside range [1s, 1m0s]" {
		t.Errorf("Validate() = %v", err)
	}

	cv.Custom("B", func() error { return errors.New("bad") })
	if len(cv.Errors()) != 2 {
		t.Fatalf("Errors() = %d, want 2", len(cv.Errors()))
	}
	err = cv.Validate()
	if err == nil || !strings.Contains(err.Error(), "2 errors") || !strings.Contains(err.Error(), "TestConfig.B: bad") {
		t.Errorf("Validate() = %v, want both failures listed", err)
	}
}
