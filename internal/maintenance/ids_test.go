package maintenance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ukydev/car-maintenance/internal/apperr"
)

func TestNormalizeTaskID(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		want  string
		valid bool
	}{
		{"object id", "507f1f77bcf86cd799439011", "507f1f77bcf86cd799439011", true},
		{"object id upper", "507F1F77BCF86CD799439011", "507f1f77bcf86cd799439011", true},
		{"uuid v4", "3f2c35a8-5f0e-4c1b-9d7e-2a4b6c8d0e1f", "3f2c35a8-5f0e-4c1b-9d7e-2a4b6c8d0e1f", true},
		{"uuid v4 upper", "3F2C35A8-5F0E-4C1B-9D7E-2A4B6C8D0E1F", "3f2c35a8-5f0e-4c1b-9d7e-2a4b6c8d0e1f", true},
		{"uuid v1", "6ba7b810-9dad-11d1-80b4-00c04fd430c8", "6ba7b810-9dad-11d1-80b4-00c04fd430c8", true},
		{"uuid bad variant", "3f2c35a8-5f0e-4c1b-cd7e-2a4b6c8d0e1f", "", false},
		{"uuid v7", "01890a5d-ac96-774b-bcce-b302099a8057", "", false},
		{"uuid braces", "{3f2c35a8-5f0e-4c1b-9d7e-2a4b6c8d0e1f}", "", false},
		{"too short", "507f1f77bcf86cd79943901", "", false},
		{"not hex", "zzzf1f77bcf86cd799439011", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeTaskID(tt.id)
			if tt.valid {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, got)
			} else {
				assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
			}
		})
	}
}
