package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTripwireCleanFieldNames(t *testing.T) {
	assert.False(t, looksLikeValue([]string{
		"id", "name", "dateOfBirth", "healthCardNumber",
		"medicalHistory", "medications", "allergies",
	}))
	assert.False(t, looksLikeValue(nil))
}

func TestTripwireCatchesValueShapes(t *testing.T) {
	tests := []struct {
		name   string
		fields []string
	}{
		{"formatted SIN", []string{"id", "123-456-789"}},
		{"ten digit number", []string{"9876543210"}},
		{"email address", []string{"name", "ada@example.com"}},
		{"email with ca TLD", []string{"ada@clinic.ca"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, looksLikeValue(tt.fields))
		})
	}
}
