package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Title string `validate:"notblank,max=5"`
	Email string `validate:"required,email"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(sample{Title: "héllo", Email: "a@b.co"}))

	err := Struct(sample{Title: "   ", Email: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title is required")
	assert.Contains(t, err.Error(), "email must be a valid email")

	err = Struct(sample{Title: strings.Repeat("x", 6), Email: "a@b.co"})
	require.Error(t, err)
	assert.Equal(t, "title must be at most 5 characters", err.Error())
}
