package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCliParams(t *testing.T) {
	got := NewCliParams()
	assert.Equal(t, &Run{
		Output:      DefaultOutput,
		PageSize: 10,
	}, got)
}

func TestNewCliParamsReturnsFreshValue(t *testing.T) {
	a := NewCliParams()
	a.NoColor = true
	b := NewCliParams()
	assert.False(t, b.NoColor)
}

func TestCliBinaryName(t *testing.T) {
	assert.Equal(t, "dview", CliBinaryName)
}
