package domain

import (
	"errors"
	"testing"
)

func TestVector_CheckDimensions(t *testing.T) {
	v := Vector{0.1, 0.2, 0.3}

	if err := v.CheckDimensions(3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := v.CheckDimensions(1024)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	var dme *DimensionMismatchError
	if !errors.As(err, &dme) {
		t.Fatalf("expected *DimensionMismatchError, got %T", err)
	}
	if dme.Expected != 1024 || dme.Actual != 3 {
		t.Errorf("got expected=%d actual=%d, want 1024/3", dme.Expected, dme.Actual)
	}
}

func TestVector_CheckDimensions_Empty(t *testing.T) {
	if err := Vector(nil).CheckDimensions(4); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch for nil vector, got %v", err)
	}
}

func TestVector_PgLiteral(t *testing.T) {
	tests := []struct {
		name string
		v    Vector
		want string
	}{
		{"empty", Vector{}, "[]"},
		{"single", Vector{1}, "[1]"},
		{"several", Vector{0.5, -0.25, 3}, "[0.5,-0.25,3]"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.v.PgLiteral(); got != tc.want {
				t.Errorf("PgLiteral() = %q, want %q", got, tc.want)
			}
		})
	}
}
