package firestore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestWrapErrorClassifiesStatusCodes(t *testing.T) {
	cases := []struct {
		code        codes.Code
		notFound    bool
		conflict    bool
		unavailable bool
	}{
		{code: codes.NotFound, notFound: true},
		{code: codes.Aborted, conflict: true},
		{code: codes.AlreadyExists, conflict: true},
		{code: codes.FailedPrecondition, conflict: true},
		{code: codes.Unavailable, unavailable: true},
		{code: codes.ResourceExhausted, unavailable: true},
		{code: codes.PermissionDenied},
	}
	for _, tc := range cases {
		t.Run(tc.code.String(), func(t *testing.T) {
			err := WrapError("orders.get", status.Error(tc.code, "boom"))
			var repoErr *Error
			if !errors.As(err, &repoErr) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if repoErr.IsNotFound() != tc.notFound || repoErr.IsConflict() != tc.conflict || repoErr.IsUnavailable() != tc.unavailable {
				t.Fatalf("unexpected classification for %s: %+v", tc.code, repoErr)
			}
			if repoErr.Code() != tc.code {
				t.Fatalf("expected code %s, got %s", tc.code, repoErr.Code())
			}
		})
	}
}

func TestWrapErrorPassesThroughNonStatusErrors(t *testing.T) {
	domainErr := errors.New("insufficient stock")
	if got := WrapError("transaction", domainErr); got != domainErr {
		t.Fatalf("expected domain error to pass through, got %v", got)
	}
	if got := WrapError("transaction", status.Error(codes.Canceled, "x")); !errors.Is(got, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", got)
	}
	if WrapError("x", nil) != nil {
		t.Fatalf("expected nil")
	}
}

func TestWrapErrorKeepsExistingRepositoryError(t *testing.T) {
	inner := WrapError("", status.Error(codes.NotFound, "missing"))
	wrapped := fmt.Errorf("lookup: %w", inner)
	got := WrapError("products.get", wrapped)
	if got != wrapped {
		t.Fatalf("expected wrapped error returned unchanged")
	}
	var repoErr *Error
	if !errors.As(got, &repoErr) || repoErr.op != "products.get" {
		t.Fatalf("expected op to be filled, got %+v", repoErr)
	}
}
