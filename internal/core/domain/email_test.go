package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestNewEmailNormalizes(t *testing.T) {
	email, err := NewEmail("  User.Name+tag@Example.COM ")
	if err != nil {
		t.Fatalf("NewEmail returned error: %v", err)
	}

	if got := email.String(); got != "user.name+tag@example.com" {
		t.Fatalf("expected normalized email, got %q", got)
	}
}

func TestNewEmailRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "whitespace only", raw: "   "},
		{name: "missing at sign", raw: "user.example.com"},
		{name: "missing domain", raw: "user@"},
		{name: "missing tld", raw: "user@example"},
		{name: "leading dot in local part", raw: ".user@example.com"},
		{name: "trailing dot in local part", raw: "user.@example.com"},
		{name: "consecutive dots", raw: "us..er@example.com"},
		{name: "too long", raw: strings.Repeat("a", 250) + "@example.com"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewEmail(tc.raw); err == nil {
				t.Fatalf("expected error for %q", tc.raw)
			}
		})
	}
}

func TestNewEmailReturnsValidationError(t *testing.T) {
	_, err := NewEmail("not-an-email")

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if ve.Field != "email" {
		t.Fatalf("expected field email, got %q", ve.Field)
	}
}

func TestEmailEquals(t *testing.T) {
	a, err := NewEmail("User@Example.com")
	if err != nil {
		t.Fatalf("NewEmail returned error: %v", err)
	}
	b, err := NewEmail("user@example.COM")
	if err != nil {
		t.Fatalf("NewEmail returned error: %v", err)
	}

	if !a.Equals(b) {
		t.Fatal("expected equal emails after normalization")
	}
}
