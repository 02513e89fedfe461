package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalAnimalID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0B9D1C4E-0000-4000-8000-0000000000AA", "0b9d1c4e-0000-4000-8000-0000000000aa"},
		{" 0b9d1c4e-0000-4000-8000-0000000000aa ", "0b9d1c4e-0000-4000-8000-0000000000aa"},
		{" TAG-17 ", "TAG-17"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalAnimalID(tt.in), tt.in)
	}
}
