package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruthy(t *testing.T) {
	assert.False(t, None.Truthy())
	assert.False(t, Integer(0).Truthy())
	assert.True(t, Integer(1).Truthy())
	assert.False(t, String("").Truthy())
	assert.True(t, String("x").Truthy())
	assert.False(t, List(nil).Truthy())
	assert.True(t, List([]Value{Integer(1)}).Truthy())
}

func TestEqual(t *testing.T) {
	assert.True(t, Integer(3).Equal(Integer(3)))
	assert.False(t, Integer(3).Equal(Integer(4)))
	assert.False(t, Integer(3).Equal(String("3")))
	assert.True(t, List([]Value{Integer(1), String("a")}).Equal(List([]Value{Integer(1), String("a")})))
	assert.False(t, List([]Value{Integer(1)}).Equal(List([]Value{Integer(1), Integer(2)})))
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "<none>", None.String())
	assert.Equal(t, "5", Integer(5).String())
	assert.Equal(t, `"hi"`, String("hi").String())
	assert.Equal(t, "[1, 2]", List([]Value{Integer(1), Integer(2)}).String())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "none", KindNone.String())
	assert.Equal(t, "integer", KindInteger.String())
	assert.Equal(t, "string", KindString.String())
	assert.Equal(t, "list", KindList.String())
}
