// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserNeeds2FASetup(t *testing.T) {
	pending := "JBSWY3DPEHPK3PXP"

	tests := []struct {
		name string
		user User
		want bool
	}{
		{"never enrolled", User{}, true},
		{"secret issued, code not confirmed", User{TOTPSecret: &pending}, true},
		{"enrolled", User{TOTPSecret: &pending, TOTPEnabled: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.Needs2FASetup())
		})
	}
}

func TestUserJSONHidesSecrets(t *testing.T) {
	secret := "JBSWY3DPEHPK3PXP"
	u := User{
		ID:           uuid.New(),
		Username:     "profesora",
		PasswordHash: "$2a$10$hash",
		IsAdmin:      true,
		TOTPSecret:   &secret,
		TOTPEnabled:  true,
	}

	raw, err := json.Marshal(u)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "profesora", out["username"])
	assert.Equal(t, true, out["isAdmin"])
	assert.NotContains(t, string(raw), "$2a$10$hash")
	assert.NotContains(t, string(raw), secret)
}
