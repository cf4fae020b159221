package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(1)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, s)

	s, err = ParseStatus(0)
	require.NoError(t, err)
	assert.Equal(t, StatusDeactive, s)

	_, err = ParseStatus(2)
	assert.Error(t, err)
	_, err = ParseStatus(-1)
	assert.Error(t, err)
}
