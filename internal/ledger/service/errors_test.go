package service

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsStorageFault(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil",
			err:  nil,
			want: false,
		},
		{
			name: "storage sentinel",
			err:  ErrStorage,
			want: true,
		},
		{
			name: "wrapped storage fault",
			err:  fmt.Errorf("%w: %w", ErrStorage, errors.New("socket closed")),
			want: true,
		},
		{
			name: "validation error",
			err:  fmt.Errorf("%w: amount must be positive", ErrInvalidExpense),
			want: false,
		},
		{
			name: "unrelated error",
			err:  errors.New("boom"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsStorageFault(tt.err); got != tt.want {
				t.Fatalf("IsStorageFault() = %v, want %v", got, tt.want)
			}
		})
	}
}
