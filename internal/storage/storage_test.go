package storage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullableString_UnmarshalJSON(t *testing.T) {
	type patch struct {
		Caption NullableString `json:"caption"`
	}

	t.Run("absent", func(t *testing.T) {
		var p patch
		require.NoError(t, json.Unmarshal([]byte(`{}`), &p))
		assert.False(t, p.Caption.Present)
		assert.Nil(t, p.Caption.Value)
	})

	t.Run("null", func(t *testing.T) {
		var p patch
		require.NoError(t, json.Unmarshal([]byte(`{"caption":null}`), &p))
		assert.True(t, p.Caption.Present)
		assert.Nil(t, p.Caption.Value)
	})

	t.Run("value", func(t *testing.T) {
		var p patch
		require.NoError(t, json.Unmarshal([]byte(`{"caption":"hello"}`), &p))
		assert.True(t, p.Caption.Present)
		require.NotNil(t, p.Caption.Value)
		assert.Equal(t, "hello", *p.Caption.Value)
	})

	t.Run("empty string is a value", func(t *testing.T) {
		var p patch
		require.NoError(t, json.Unmarshal([]byte(`{"caption":""}`), &p))
		assert.True(t, p.Caption.Present)
		require.NotNil(t, p.Caption.Value)
		assert.Empty(t, *p.Caption.Value)
	})

	t.Run("wrong type", func(t *testing.T) {
		var p patch
		assert.Error(t, json.Unmarshal([]byte(`{"caption":5}`), &p))
	})
}

func TestString(t *testing.T) {
	v := String("hello")
	assert.True(t, v.Present)
	require.NotNil(t, v.Value)
	assert.Equal(t, "hello", *v.Value)
}

func TestNull(t *testing.T) {
	v := Null()
	assert.True(t, v.Present)
	assert.Nil(t, v.Value)
}
