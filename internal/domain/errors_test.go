package domain

import (
	"errors"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "error without wrapped error",
			appErr:   ErrNotFound,
			expected: "Image not found in gallery",
		},
		{
			name: "error with wrapped error",
			appErr: &AppError{
				Code:       "TEST_ERROR",
				Message:    "Test message",
				StatusCode: 500,
				Err:        errors.New("underlying error"),
			},
			expected: "Test message: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	appErr := &AppError{
		Code:       "TEST",
		Message:    "test",
		StatusCode: 500,
		Err:        underlying,
	}

	if got := appErr.Unwrap(); got != underlying {
		t.Errorf("Unwrap() = %v, want %v", got, underlying)
	}

	// Test with nil error
	appErrNoWrap := ErrNotFound
	if got := appErrNoWrap.Unwrap(); got != nil {
		t.Errorf("Unwrap() = %v, want nil", got)
	}
}

func TestAppError_WithError(t *testing.T) {
	underlying := errors.New("disk write failed")
	newErr := ErrStorage.WithError(underlying)

	if newErr.Code != ErrStorage.Code {
		t.Errorf("Code = %v, want %v", newErr.Code, ErrStorage.Code)
	}

	if newErr.StatusCode != ErrStorage.StatusCode {
		t.Errorf("StatusCode = %v, want %v", newErr.StatusCode, ErrStorage.StatusCode)
	}

	if newErr.Err != underlying {
		t.Errorf("Err = %v, want %v", newErr.Err, underlying)
	}

	// Check errors.Is still works
	if !errors.Is(newErr, underlying) {
		t.Errorf("errors.Is should return true for wrapped error")
	}

	// The sentinel must stay untouched
	if ErrStorage.Err != nil {
		t.Error("WithError must not mutate the sentinel")
	}
}

func TestAppError_WithMessage(t *testing.T) {
	newErr := ErrNoFaceDetected.WithMessage(`no face detected in "a.jpg"`)

	if newErr.Code != ErrNoFaceDetected.Code {
		t.Errorf("Code = %v, want %v", newErr.Code, ErrNoFaceDetected.Code)
	}

	if newErr.Message != `no face detected in "a.jpg"` {
		t.Errorf("Message = %v", newErr.Message)
	}

	if ErrNoFaceDetected.Message != "No face detected in the image" {
		t.Error("WithMessage must not mutate the sentinel")
	}
}
