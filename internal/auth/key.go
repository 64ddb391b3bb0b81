// Package auth resolves the caller's role from an optional editor key.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"spreadsheet/api/internal/rbac"

	"golang.org/x/crypto/bcrypt"
)

var ErrEmptyKey = errors.New("editor key must not be empty")

// KeyChecker grants the editor role to callers presenting the key whose
// bcrypt hash it holds. With no hash configured every caller is an editor.
type KeyChecker struct {
	hash []byte
}

func NewKeyChecker(hash string) *KeyChecker {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return &KeyChecker{}
	}
	return &KeyChecker{hash: []byte(hash)}
}

// Enabled reports whether writes require a key.
func (c *KeyChecker) Enabled() bool {
	return len(c.hash) > 0
}

func (c *KeyChecker) RoleFor(key string) rbac.Role {
	if !c.Enabled() {
		return rbac.RoleEditor
	}
	if key == "" {
		return rbac.RoleViewer
	}
	if err := bcrypt.CompareHashAndPassword(c.hash, []byte(key)); err != nil {
		return rbac.RoleViewer
	}
	return rbac.RoleEditor
}

// RoleForRequest reads the key from an "Authorization: Bearer" header.
func (c *KeyChecker) RoleForRequest(r *http.Request) rbac.Role {
	return c.RoleFor(bearerToken(r))
}

// HashKey produces the value for SHEET_EDITOR_KEY_HASH.
func HashKey(key string, cost int) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", ErrEmptyKey
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", fmt.Errorf("hash editor key: %w", err)
	}
	return string(hash), nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
