package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"king", true},
		{"k.i_ng42", true},
		{"ab", true},
		{strings.Repeat("a", 20), true},
		{"a", false},
		{strings.Repeat("a", 21), false},
		{"king!", false},
		{"with space", false},
		{"KING", false},
	}
	for _, tt := range tests {
		ok, msg := ValidateUsername(tt.in)
		assert.Equal(t, tt.want, ok, tt.in)
		if !ok {
			assert.NotEmpty(t, msg)
		}
	}

	assert.Equal(t, "king", NormalizeUsername("  KiNg "))
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	got, ok := NormalizeEmail(" King@Fortress.COM ")
	assert.True(t, ok)
	assert.Equal(t, "king@fortress.com", got)

	for _, bad := range []string{"", "king", "king@", "@fortress.com", "King <king@fortress.com>", "king@localhost"} {
		_, ok := NormalizeEmail(bad)
		assert.False(t, ok, bad)
	}
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	got, ok, _ := NormalizeName("First name", "pIRATES")
	assert.True(t, ok)
	assert.Equal(t, "Pirates", got)

	got, ok, _ = NormalizeName("First name", "")
	assert.True(t, ok)
	assert.Empty(t, got)

	_, ok, msg := NormalizeName("Last name", "K")
	assert.False(t, ok)
	assert.Contains(t, msg, "Last name")

	_, ok, _ = NormalizeName("Last name", "King2")
	assert.False(t, ok)
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"King1234", true},
		{"Str0ngPassw0rd", true},
		{"king1234", false},
		{"KING1234", false},
		{"Kingkong", false},
		{"Ki1", false},
		{"King 1234", false},
		{"K1" + strings.Repeat("a", 63), false},
		{"Aa1" + strings.Repeat("é", 20), true},
		{"Aa1" + strings.Repeat("é", 61), false},
	}
	for _, tt := range tests {
		ok, _ := ValidatePassword(tt.in)
		assert.Equal(t, tt.want, ok, tt.in)
	}
}

func TestValidateAccessCode(t *testing.T) {
	t.Parallel()

	ok, _ := ValidateAccessCode("s3cr")
	assert.True(t, ok)
	ok, _ = ValidateAccessCode("abc")
	assert.False(t, ok)
	ok, _ = ValidateAccessCode("has space")
	assert.False(t, ok)
	ok, _ = ValidateAccessCode(strings.Repeat("é", 30))
	assert.True(t, ok)
	ok, msg := ValidateAccessCode(strings.Repeat("é", 40))
	assert.False(t, ok)
	assert.Equal(t, "Access code must not exceed 72 bytes.", msg)
}

func TestValidateExpiration(t *testing.T) {
	t.Parallel()

	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	ok, _ := ValidateExpiration(nil, now)
	assert.True(t, ok)
	ok, _ = ValidateExpiration(&future, now)
	assert.True(t, ok)
	ok, _ = ValidateExpiration(&past, now)
	assert.False(t, ok)
}
