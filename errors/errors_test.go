package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidBitmap, "bitmap is %dx%d", 0, 10)

	if err.Code != ErrCodeInvalidBitmap {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidBitmap)
	}
	if err.Message != "bitmap is 0x10" {
		t.Errorf("Message = %v, want %v", err.Message, "bitmap is 0x10")
	}

	expected := "INVALID_BITMAP: bitmap is 0x10"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("chrome crashed")
	err := Wrap(ErrCodeRasterization, cause, "screenshot")

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if errors.Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(err), cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	if got := err.Error(); got != "RASTERIZATION_FAILED: screenshot: chrome crashed" {
		t.Errorf("Error() = %q", got)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{"matching code", New(ErrCodeDispatch, "x"), ErrCodeDispatch, true},
		{"different code", New(ErrCodeDispatch, "x"), ErrCodeEncoding, false},
		{"wrapped by fmt", fmt.Errorf("outer: %w", New(ErrCodeConversion, "x")), ErrCodeConversion, true},
		{"plain error", errors.New("plain"), ErrCodeInternal, false},
		{"nil", nil, ErrCodeInternal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCodeAndUserMessage(t *testing.T) {
	err := fmt.Errorf("stage: %w", New(ErrCodeInvalidInput, "chunk size must be positive"))
	if got := GetCode(err); got != ErrCodeInvalidInput {
		t.Errorf("GetCode() = %q, want %q", got, ErrCodeInvalidInput)
	}
	if got := UserMessage(err); got != "chunk size must be positive" {
		t.Errorf("UserMessage() = %q", got)
	}
	if got := GetCode(errors.New("x")); got != "" {
		t.Errorf("GetCode(plain) = %q, want empty", got)
	}
	if got := UserMessage(errors.New("x")); got != "x" {
		t.Errorf("UserMessage(plain) = %q, want x", got)
	}
}

func TestSoft(t *testing.T) {
	if Soft(nil) != nil {
		t.Fatal("Soft(nil) should be nil")
	}

	cause := Wrap(ErrCodeNormalization, errors.New("bad svg"), "diagram 2")
	err := Soft(cause)
	if !IsSoft(err) {
		t.Error("IsSoft(Soft(err)) = false")
	}
	if !Is(err, ErrCodeNormalization) {
		t.Error("soft error lost its code")
	}
	if err.Error() != cause.Error() {
		t.Errorf("Error() = %q, want %q", err.Error(), cause.Error())
	}
	if IsSoft(cause) {
		t.Error("hard error reported as soft")
	}
	if !IsSoft(fmt.Errorf("prepare: %w", err)) {
		t.Error("IsSoft should see through wrapping")
	}
}
