package auth

import (
	"errors"
	"net/http/httptest"
	"testing"

	"spreadsheet/api/internal/rbac"

	"golang.org/x/crypto/bcrypt"
)

func TestKeyCheckerDisabled(t *testing.T) {
	checker := NewKeyChecker("  ")
	if checker.Enabled() {
		t.Fatal("expected checker to be disabled without a hash")
	}
	if got := checker.RoleFor(""); got != rbac.RoleEditor {
		t.Fatalf("RoleFor() = %q, want editor", got)
	}
}

func TestKeyCheckerRoles(t *testing.T) {
	hash, err := HashKey("s3cret", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashKey() error = %v", err)
	}
	checker := NewKeyChecker(hash)

	cases := []struct {
		name   string
		header string
		want   rbac.Role
	}{
		{name: "no header", header: "", want: rbac.RoleViewer},
		{name: "wrong key", header: "Bearer nope", want: rbac.RoleViewer},
		{name: "right key", header: "Bearer s3cret", want: rbac.RoleEditor},
		{name: "scheme is case insensitive", header: "bearer s3cret", want: rbac.RoleEditor},
		{name: "basic scheme", header: "Basic s3cret", want: rbac.RoleViewer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/sheets/default", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if got := checker.RoleForRequest(req); got != tc.want {
				t.Fatalf("RoleForRequest() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestHashKeyRejectsEmpty(t *testing.T) {
	if _, err := HashKey(" ", bcrypt.MinCost); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("HashKey() error = %v, want ErrEmptyKey", err)
	}
}
