package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		kind     string
		err      error
		wantMsg  string
		hasStack bool
	}{
		{
			name:     "with original error",
			op:       "GLM.Fit",
			kind:     "invalid input",
			err:      fmt.Errorf("test error"),
			wantMsg:  "scigo: GLM.Fit: invalid input: test error",
			hasStack: true,
		},
		{
			name:     "without original error",
			op:       "RandomForest.Predict",
			kind:     "not fitted",
			err:      nil,
			wantMsg:  "scigo: RandomForest.Predict: not fitted",
			hasStack: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			// 基本的なエラーメッセージの確認
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			if tt.hasStack {
				formatted := fmt.Sprintf("%+v", err)
				if !strings.Contains(formatted, "errors_test.go") {
					t.Error("Expected stack trace to contain test file name")
				}
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("GLM.Predict", 3, 4, 1)

	want := "scigo: GLM.Predict: dimension mismatch on axis 1 (features). Expected 3, got 4"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("Error should be castable to *DimensionError")
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("GradientBoosting", "Predict")

	want := "scigo: GradientBoosting: this model is not fitted yet. Call Fit() before using Predict()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
}

func TestInvalidTestCaseError(t *testing.T) {
	err := NewInvalidTestCaseError("drf_tc_01", "train dataset id is empty")

	// レポートツールはタグで検索する
	if !strings.HasPrefix(err.Error(), InvalidTag+" ") {
		t.Errorf("Error() = %q, want prefix %q", err.Error(), InvalidTag)
	}

	var invalid *InvalidTestCaseError
	if !As(err, &invalid) {
		t.Fatal("Error should be castable to *InvalidTestCaseError")
	}
	if invalid.TestcaseID != "drf_tc_01" {
		t.Errorf("TestcaseID = %q, want drf_tc_01", invalid.TestcaseID)
	}
}

func TestNotImplementedError(t *testing.T) {
	err := NewNotImplementedError("drf_tc_02", "Only AUTO family is implemented")

	if got, want := err.Error(), "[NOT IMPL] Only AUTO family is implemented"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !Is(err, ErrNotImplemented) {
		t.Error("Expected Is(err, ErrNotImplemented) to be true")
	}

	var invalid *InvalidTestCaseError
	if As(err, &invalid) {
		t.Error("NotImplementedError must not be reported as invalid")
	}
}

func TestHeaderError(t *testing.T) {
	err := NewHeaderError("drf_positive.csv", "ntrees")

	if got, want := err.Error(), "column ntrees not found in drf_positive.csv"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestNewConvergenceWarning(t *testing.T) {
	warn := NewConvergenceWarning("GLM", 50, "beta did not settle")

	want := "GLM failed to converge after 50 iterations: beta did not settle"
	if warn.Error() != want {
		t.Errorf("Error() = %v, want %v", warn.Error(), want)
	}
}

func TestWarn_UsesZerologFunc(t *testing.T) {
	var got error
	SetZerologWarnFunc(func(w error) { got = w })
	defer SetZerologWarnFunc(nil)

	w := NewUndefinedMetricWarning("AUC", "a single response class")
	Warn(w)

	if got != w {
		t.Errorf("Warn() forwarded %v, want %v", got, w)
	}
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrap(ErrTableNotFound, "glm_negative.csv")

	if !Is(wrapped, ErrTableNotFound) {
		t.Error("Expected Is(wrapped, ErrTableNotFound) to be true")
	}
	if !strings.Contains(wrapped.Error(), "glm_negative.csv") {
		t.Error("Expected wrapped error to contain wrapping message")
	}
}

func TestWrapf(t *testing.T) {
	wrapped := Wrapf(ErrEmptyData, "in %s: expected %d, got %d", "Predict", 10, 5)

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}
	expectedMsg := "in Predict: expected 10, got 5"
	if !strings.Contains(wrapped.Error(), expectedMsg) {
		t.Errorf("Expected wrapped error to contain %q", expectedMsg)
	}
}
