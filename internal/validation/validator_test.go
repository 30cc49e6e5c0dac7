// Nowcast - Now-Playing Aggregation and Real-Time Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nowcast

package validation

import (
	"errors"
	"strings"
	"testing"
)

type limiterSettings struct {
	Limit  int    `validate:"min=1,max=1000"`
	Window string `validate:"required"`
	Base   string `validate:"omitempty,url"`
}

func TestValidateStructOK(t *testing.T) {
	s := limiterSettings{Limit: 10, Window: "60s", Base: "https://api.listenbrainz.org"}
	if err := ValidateStruct(&s); err != nil {
		t.Fatalf("expected valid struct, got %v", err)
	}
}

func TestValidateStructFailures(t *testing.T) {
	s := limiterSettings{Limit: 0, Window: "", Base: "not-a-url"}
	err := ValidateStruct(&s)
	if err == nil {
		t.Fatal("expected validation errors")
	}

	var verrs *Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected *Errors, got %T", err)
	}
	if len(verrs.Fields) != 3 {
		t.Fatalf("expected 3 field errors, got %d: %v", len(verrs.Fields), verrs)
	}

	msg := verrs.Error()
	for _, want := range []string{"Limit must be at least 1", "Window is required", "Base must be a valid URL"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestValidatorSingleton(t *testing.T) {
	if Validator() != Validator() {
		t.Error("Validator() must return the same instance")
	}
}
