package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		t.Run(k.String(), func(t *testing.T) {
			got, err := ParseKind(k.String())
			require.NoError(t, err)
			assert.Equal(t, k, got)
		})
	}

	_, err := ParseKind("Blur")
	require.Error(t, err)
	assert.False(t, KindInvalid.Valid())
	assert.Equal(t, "Kind(0)", KindInvalid.String())
}

func TestNew(t *testing.T) {
	n := New(4, KindImageWrite, "out", nil)

	assert.Equal(t, 4, n.Target())
	assert.Equal(t, []int{NoInput}, n.Inputs)
	assert.NotNil(t, n.Params)
	assert.Equal(t, NoInput, n.Input(7))

	slot, missing := n.MissingRequired()
	assert.True(t, missing)
	assert.Equal(t, 0, slot)

	n.Inputs[0] = 1
	_, missing = n.MissingRequired()
	assert.False(t, missing)
	assert.Equal(t, "ImageWrite.out[4]", n.String())
}

func TestOptionalInputs(t *testing.T) {
	n := New(0, KindCrop, "crop", nil)
	_, missing := n.MissingRequired()
	assert.False(t, missing, "crop falls back to a default size without input")
}
