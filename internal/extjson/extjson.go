// Package extjson converts relaxed or canonical extended JSON into the value
// model rendered by internal/format: bson.D for documents, bson.A for arrays,
// primitive.ObjectID, primitive.DateTime and plain scalars.
package extjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

const wrapKey = "v"

// ErrEmptyPayload indicates the backend returned no bytes.
var ErrEmptyPayload = errors.New("empty result payload")

// ErrMalformedPayload indicates the payload is not a single JSON value.
var ErrMalformedPayload = errors.New("malformed result payload")

// Decode parses payload, which may hold any extended-JSON value including a
// top-level array or scalar.
func Decode(payload []byte) (any, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, ErrEmptyPayload
	}
	if !json.Valid(trimmed) {
		return nil, ErrMalformedPayload
	}
	// The bson codec only reads documents at the top level.
	wrapped := make([]byte, 0, len(trimmed)+8)
	wrapped = append(wrapped, `{"`+wrapKey+`":`...)
	wrapped = append(wrapped, trimmed...)
	wrapped = append(wrapped, '}')

	var doc bson.D
	if err := bson.UnmarshalExtJSON(wrapped, false, &doc); err != nil {
		return nil, fmt.Errorf("decode extended json: %w", err)
	}
	if len(doc) != 1 || doc[0].Key != wrapKey {
		return nil, fmt.Errorf("decode extended json: unexpected envelope")
	}
	return doc[0].Value, nil
}

// Encode converts a value into relaxed extended JSON. Top-level arrays and
// scalars are supported.
func Encode(value any) ([]byte, error) {
	data, err := bson.MarshalExtJSON(bson.D{{Key: wrapKey, Value: value}}, false, false)
	if err != nil {
		return nil, fmt.Errorf("encode extended json: %w", err)
	}
	// {"v":<value>}
	prefix := []byte(`{"` + wrapKey + `":`)
	if !bytes.HasPrefix(data, prefix) || !bytes.HasSuffix(data, []byte("}")) {
		return nil, fmt.Errorf("encode extended json: unexpected envelope")
	}
	return data[len(prefix) : len(data)-1], nil
}
