package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "stamprally/pkg/domain-errors"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		code    string
		booth   string
		wantErr bool
	}{
		{"valid", "BOOTH001", "Paper Craft Workshop", false},
		{"empty code", "", "Paper Craft Workshop", true},
		{"code too long", strings.Repeat("X", 21), "Paper Craft Workshop", true},
		{"code at limit", strings.Repeat("X", 20), "Paper Craft Workshop", false},
		{"empty name", "BOOTH001", "", true},
		{"name too long", "BOOTH001", strings.Repeat("n", 101), true},
		{"name at limit", "BOOTH001", strings.Repeat("n", 100), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.code, tc.booth)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewBooth(t *testing.T) {
	now := time.Now()

	b, err := NewBooth("BOOTH001", "Paper Craft Workshop", "Make souvenirs", true, now)
	require.NoError(t, err)
	assert.NotEqual(t, b.ID.String(), "00000000-0000-0000-0000-000000000000")
	assert.True(t, b.Active)
	assert.Equal(t, now, b.CreatedAt)
	assert.Equal(t, now, b.UpdatedAt)

	_, err = NewBooth("", "Paper Craft Workshop", "", true, now)
	assert.Error(t, err)
}

func TestDeactivate(t *testing.T) {
	created := time.Now()
	b, err := NewBooth("BOOTH001", "Paper Craft Workshop", "", true, created)
	require.NoError(t, err)

	later := created.Add(time.Hour)
	b.Deactivate(later)
	assert.False(t, b.Active)
	assert.Equal(t, later, b.UpdatedAt)
	assert.Equal(t, created, b.CreatedAt)
}
