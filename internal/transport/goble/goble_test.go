package goble

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStripsDashesAndLowercases(t *testing.T) {
	assert.Equal(t, "0000a00000001000800000805f9b34fb",
		normalize("0000A000-0000-1000-8000-00805F9B34FB"))
}

func TestNormalizeShortForm(t *testing.T) {
	assert.Equal(t, "a001", normalize("A001"))
}
