package upload

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
)

func TestValidator_Validate(t *testing.T) {
	v := NewValidator(100, nil)

	tests := []struct {
		name    string
		payload domain.Payload
		want    error
	}{
		{"ok", domain.Payload{Name: "a.txt", Size: 10}, nil},
		{"at limit", domain.Payload{Name: "a.txt", Size: 100}, nil},
		{"empty file", domain.Payload{Name: "a.txt", Size: 0}, nil},
		{"over limit", domain.Payload{Name: "a.txt", Size: 101}, domain.ErrFileTooLarge},
		{"blank name", domain.Payload{Name: " \t", Size: 1}, domain.ErrEmptyName},
		{"negative size", domain.Payload{Name: "a.txt", Size: -1}, domain.ErrInvalidSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.payload)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			var ve *domain.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.payload.Name, ve.Name)
		})
	}
}

func TestValidator_ReasonNamesLimit(t *testing.T) {
	v := NewValidator(100<<20, nil)
	err := v.Validate(domain.Payload{Name: "movie.mkv", Size: 150 << 20})

	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "file is 150.0 MB, larger than the 100.0 MB limit", ve.Reason)
}

func TestAllowExtensions(t *testing.T) {
	f := AllowExtensions(".JPG", "png", " ")

	assert.NoError(t, f("photo.jpg", ""))
	assert.NoError(t, f("PHOTO.PNG", ""))
	assert.EqualError(t, f("notes.txt", ""), ".txt files are not accepted")
	assert.EqualError(t, f("Makefile", ""), "files without an extension are not accepted")

	assert.NoError(t, AllowExtensions()("anything.bin", ""))
}

func TestValidator_TypeFilterWrapsSentinel(t *testing.T) {
	v := NewValidator(100, AllowExtensions("txt"))
	err := v.Validate(domain.Payload{Name: "x.exe", Size: 1})
	assert.ErrorIs(t, err, domain.ErrTypeRejected)
}
