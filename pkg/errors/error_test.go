package errors_test

import (
	"errors"
	"fmt"
	"testing"

	. "execjudge/pkg/errors"
)

func TestErrorCode_Message(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{Success, "Success"},
		{InvalidFormat, "Invalid format"},
		{RequiredFieldEmpty, "Missing required fields in request body."},
		{NoFunctionFound, "No valid function found to execute."},
		{ErrorCode(99999), "Unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.code.Message(); got != tt.want {
				t.Errorf("Message() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code       ErrorCode
		wantStatus int
	}{
		{Success, 200},
		{InvalidFormat, 400},
		{InvalidLimit, 400},
		{RequiredFieldEmpty, 400},
		{UnsupportedAction, 400},
		{NotFound, 404},
		{TooManyRequests, 429},
		{JudgeQueueFull, 500},
		{ServiceUnavailable, 503},
		{InternalServerError, 500},
	}

	for _, tt := range tests {
		t.Run(tt.code.Message(), func(t *testing.T) {
			if got := tt.code.HTTPStatus(); got != tt.wantStatus {
				t.Errorf("HTTPStatus() = %v, want %v", got, tt.wantStatus)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(InvalidLimit, "time limit %d is not positive", -1)

	want := "time limit -1 is not positive"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
	if err.Stack == "" {
		t.Error("expected stack to be captured")
	}
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("connection refused")
	wrappedErr := Wrap(originalErr, CacheError)

	if wrappedErr.Code != CacheError {
		t.Errorf("Code = %v, want %v", wrappedErr.Code, CacheError)
	}
	if wrappedErr.Unwrap() != originalErr {
		t.Error("Unwrap() should return original error")
	}
	if Wrap(nil, CacheError) != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestWrapReusesCustomError(t *testing.T) {
	inner := New(JudgeSystemError)
	outer := fmt.Errorf("judge: %w", inner)

	wrapped := Wrap(outer, JudgeQueueFull)
	if wrapped != inner {
		t.Fatal("Wrap should return the custom error found in the chain")
	}
	if wrapped.Code != JudgeQueueFull {
		t.Errorf("Code = %v, want %v", wrapped.Code, JudgeQueueFull)
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{name: "nil error", err: nil, want: Success},
		{name: "custom error", err: New(JudgeQueueFull), want: JudgeQueueFull},
		{name: "wrapped custom error", err: fmt.Errorf("ctx: %w", New(TooManyRequests)), want: TooManyRequests},
		{name: "standard error", err: errors.New("standard error"), want: InternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.want {
				t.Errorf("GetCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIs(t *testing.T) {
	err := New(JudgeQueueFull)

	if !Is(err, JudgeQueueFull) {
		t.Error("Is() should return true for matching code")
	}
	if Is(err, CacheError) {
		t.Error("Is() should return false for non-matching code")
	}
	if Is(nil, JudgeQueueFull) {
		t.Error("Is() should return false for nil error")
	}
}

func TestCommonErrorConstructors(t *testing.T) {
	t.Run("MissingFields", func(t *testing.T) {
		err := MissingFields("code", "func")
		if err.Code != RequiredFieldEmpty {
			t.Error("MissingFields should use RequiredFieldEmpty code")
		}
		fields, ok := err.Details["fields"].([]string)
		if !ok || len(fields) != 2 {
			t.Errorf("unexpected fields detail: %v", err.Details["fields"])
		}
	})
}
