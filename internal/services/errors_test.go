package services_test

import (
	"errors"
	"strings"
	"testing"

	"slipstream/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrRecognition, "recognize", "run engine", "engine exited", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrRecognition) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"recognize", "run engine", "engine exited"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "store", "write blob", "disk full", nil)
	if !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected nil marker to default to ErrIO, got %v", err)
	}
}

func TestKindMapping(t *testing.T) {
	cases := []struct {
		marker error
		want   string
	}{
		{services.ErrIO, "io"},
		{services.ErrDecode, "decode"},
		{services.ErrRecognition, "recognition"},
		{services.ErrPersistence, "persistence"},
		{services.ErrValidation, "validation"},
		{services.ErrConfiguration, "configuration"},
	}
	for _, tc := range cases {
		err := services.Wrap(tc.marker, "stage", "op", "msg", nil)
		if got := services.Kind(err); got != tc.want {
			t.Fatalf("Kind(%v) = %q, want %q", tc.marker, got, tc.want)
		}
	}
	if got := services.Kind(errors.New("plain")); got != "unknown" {
		t.Fatalf("expected unknown for untagged error, got %q", got)
	}
}
