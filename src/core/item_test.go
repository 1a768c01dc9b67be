package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTargetItem(t *testing.T) {
	label := NewLabel("//a", "x")
	target := &Target{OutputType: OutputExecutable}
	item := NewTargetItem(label, target)
	assert.Equal(t, ItemTarget, item.Kind)
	assert.Same(t, target, item.Target)
	assert.Nil(t, item.Config)
	assert.Nil(t, item.Toolchain)
}

func TestNewConfigItem(t *testing.T) {
	label := NewLabel("//a", "cfg")
	cv := &ConfigValues{Defines: []string{"X=1"}}
	item := NewConfigItem(label, cv)
	assert.Equal(t, ItemConfig, item.Kind)
	assert.Same(t, cv, item.Config)
}

func TestNewToolchainItem(t *testing.T) {
	label := NewLabel("//build/toolchain", "clang")
	tc := &Toolchain{}
	item := NewToolchainItem(label, tc)
	assert.Equal(t, ItemToolchain, item.Kind)
	assert.Same(t, tc, item.Toolchain)
}
