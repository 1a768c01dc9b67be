package cmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestXXHashDeterministic(t *testing.T) {
	assert.Equal(t, XXHash("hello"), XXHash("hello"))
}

func TestXXHashDistinguishesKeys(t *testing.T) {
	assert.NotEqual(t, XXHash("hello"), XXHash("world"))
}

func TestXXHashEmptyString(t *testing.T) {
	assert.NotPanics(t, func() {
		XXHash("")
	})
}
