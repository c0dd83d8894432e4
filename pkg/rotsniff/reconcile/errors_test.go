package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestFirstError(t *testing.T) {
	boom := errors.New("boom")
	wrappedCancel := fmt.Errorf("walk: %w", context.Canceled)

	tests := []struct {
		name string
		errs []error
		want error
	}{
		{name: "none", errs: []error{nil, nil}, want: nil},
		{name: "real error wins over cancellation", errs: []error{wrappedCancel, boom}, want: boom},
		{name: "first real error", errs: []error{boom, errors.New("later")}, want: boom},
		{name: "only cancellation", errs: []error{nil, wrappedCancel}, want: wrappedCancel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := firstError(tt.errs...); got != tt.want {
				t.Errorf("firstError() = %v, want %v", got, tt.want)
			}
		})
	}
}
