// Package jsonvalue decodes upstream JSON documents into a tree that keeps
// object key order, which encoding/json's map[string]interface{} discards.
//
// Order matters here: wildcard path segments must expand every key of an
// object in the insertion order produced by the JSON parser, and Go's
// native map has no deterministic iteration order.
package jsonvalue

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

// Member is one key/value pair of an Object, in source order.
type Member struct {
	Key   string
	Value interface{}
}

// Object is an ordered JSON object: a decoded {...} node.
type Object []Member

// Get returns the value bound to key and whether it was present.
func (o Object) Get(key string) (interface{}, bool) {
	for _, m := range o {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// Keys returns the member keys in document order.
func (o Object) Keys() []string {
	keys := make([]string, len(o))
	for i, m := range o {
		keys[i] = m.Key
	}
	return keys
}

var cfg = jsoniter.ConfigCompatibleWithStandardLibrary

// Decode reads one JSON document from r into a tree of Object, []interface{},
// string, float64, bool and nil values.
func Decode(r io.Reader) (interface{}, error) {
	iter := jsoniter.Parse(cfg, r, 4096)
	val, err := decodeValue(iter)
	if err != nil {
		return nil, err
	}
	if iter.Error != nil && iter.Error != io.EOF {
		return nil, iter.Error
	}
	return val, nil
}

func decodeValue(iter *jsoniter.Iterator) (interface{}, error) {
	switch iter.WhatIsNext() {
	case jsoniter.ObjectValue:
		return decodeObject(iter)
	case jsoniter.ArrayValue:
		return decodeArray(iter)
	case jsoniter.StringValue:
		v := iter.ReadString()
		return v, iter.Error
	case jsoniter.NumberValue:
		v := iter.ReadFloat64()
		return v, iter.Error
	case jsoniter.BoolValue:
		v := iter.ReadBool()
		return v, iter.Error
	case jsoniter.NilValue:
		iter.ReadNil()
		return nil, iter.Error
	default:
		return nil, fmt.Errorf("jsonvalue: unexpected token %v", iter.WhatIsNext())
	}
}

func decodeObject(iter *jsoniter.Iterator) (Object, error) {
	var obj Object
	var firstErr error
	iter.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
		val, err := decodeValue(it)
		if err != nil {
			firstErr = err
			return false
		}
		obj = append(obj, Member{Key: field, Value: val})
		return true
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return obj, iter.Error
}

func decodeArray(iter *jsoniter.Iterator) ([]interface{}, error) {
	var arr []interface{}
	var firstErr error
	iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
		val, err := decodeValue(it)
		if err != nil {
			firstErr = err
			return false
		}
		arr = append(arr, val)
		return true
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return arr, iter.Error
}
