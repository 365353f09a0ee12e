package jsonvalue_test

import (
	"strings"
	"testing"

	"github.com/jsonexporter/json-exporter/pkg/jsonvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_PreservesObjectOrder(t *testing.T) {
	v, err := jsonvalue.Decode(strings.NewReader(`{"z": 1, "a": 2, "m": 3}`))
	require.NoError(t, err)

	obj, ok := v.(jsonvalue.Object)
	require.True(t, ok)
	assert.Equal(t, []string{"z", "a", "m"}, obj.Keys())
}

func TestDecode_NestedStructures(t *testing.T) {
	v, err := jsonvalue.Decode(strings.NewReader(`{"thread_pool":{"search":{"threads":5,"queue":0}}}`))
	require.NoError(t, err)

	obj := v.(jsonvalue.Object)
	tp, ok := obj.Get("thread_pool")
	require.True(t, ok)
	search, ok := tp.(jsonvalue.Object).Get("search")
	require.True(t, ok)
	threads, ok := search.(jsonvalue.Object).Get("threads")
	require.True(t, ok)
	assert.Equal(t, float64(5), threads)
}

func TestDecode_Array(t *testing.T) {
	v, err := jsonvalue.Decode(strings.NewReader(`[1, "a", true, null]`))
	require.NoError(t, err)

	arr, ok := v.([]interface{})
	require.True(t, ok)
	require.Len(t, arr, 4)
	assert.Equal(t, float64(1), arr[0])
	assert.Equal(t, "a", arr[1])
	assert.Equal(t, true, arr[2])
	assert.Nil(t, arr[3])
}
