package httputil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMapMatchesWrappedErrors(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("record not found")
	mapper := NewErrorMapper().WithMapping(sentinel, http.StatusNotFound, "Notification not found")

	info := mapper.Map(fmt.Errorf("lookup n1: %w", sentinel))
	if info.Status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", info.Status)
	}
	if info.Message != "Notification not found" {
		t.Fatalf("message = %q", info.Message)
	}
}

func TestMapFallsBackToDefault(t *testing.T) {
	t.Parallel()

	mapper := NewErrorMapper()
	info := mapper.Map(errors.New("something else"))
	if info.Status != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", info.Status)
	}
}

func TestMapContextErrors(t *testing.T) {
	t.Parallel()

	mapper := NewErrorMapper()
	if info := mapper.Map(context.DeadlineExceeded); info.Status != http.StatusGatewayTimeout {
		t.Fatalf("deadline status = %d, want 504", info.Status)
	}
	if info := mapper.Map(context.Canceled); info.Status != http.StatusServiceUnavailable {
		t.Fatalf("cancel status = %d, want 503", info.Status)
	}
}

func TestMapNilIsOK(t *testing.T) {
	t.Parallel()

	if info := NewErrorMapper().Map(nil); info.Status != http.StatusOK {
		t.Fatalf("status = %d, want 200", info.Status)
	}
}
