package extjson

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDecodeTaggedScalars(t *testing.T) {
	payload := []byte(`[{"_id":{"$oid":"507f1f77bcf86cd799439011"},"at":{"$date":"2024-01-01T00:00:00Z"},"total":42,"ok":true,"none":null}]`)
	got, err := Decode(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	list, ok := got.(bson.A)
	if !ok || len(list) != 1 {
		t.Fatalf("expected one-element array, got %T %v", got, got)
	}
	doc, ok := list[0].(bson.D)
	if !ok {
		t.Fatalf("expected document, got %T", list[0])
	}
	keys := make([]string, 0, len(doc))
	for _, e := range doc {
		keys = append(keys, e.Key)
	}
	if diff := cmp.Diff([]string{"_id", "at", "total", "ok", "none"}, keys); diff != "" {
		t.Fatalf("key order mismatch (-want +got):\n%s", diff)
	}
	id, ok := doc[0].Value.(primitive.ObjectID)
	if !ok || id.Hex() != "507f1f77bcf86cd799439011" {
		t.Fatalf("unexpected object id %#v", doc[0].Value)
	}
	at, ok := doc[1].Value.(primitive.DateTime)
	if !ok || !at.Time().Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %#v", doc[1].Value)
	}
	if doc[2].Value != int32(42) {
		t.Fatalf("unexpected total %#v", doc[2].Value)
	}
	if doc[4].Value != nil {
		t.Fatalf("expected nil for null, got %#v", doc[4].Value)
	}
}

func TestDecodeScalarPayload(t *testing.T) {
	got, err := Decode([]byte(` "hello" `))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != "hello" {
		t.Fatalf("unexpected value %#v", got)
	}
}

func TestDecodeRejectsEmptyAndInvalid(t *testing.T) {
	if _, err := Decode(nil); !errors.Is(err, ErrEmptyPayload) {
		t.Fatalf("expected empty payload error, got %v", err)
	}
	if _, err := Decode([]byte(`{"a":`)); err == nil {
		t.Fatalf("expected error for truncated payload")
	}
}

func TestDecodeRejectsTrailingData(t *testing.T) {
	for _, payload := range []string{`1},{"v":2`, `[1] [2]`, `{"a":1}}`, `"x"]`} {
		if v, err := Decode([]byte(payload)); !errors.Is(err, ErrMalformedPayload) {
			t.Fatalf("Decode(%q) = %v, %v; expected malformed payload error", payload, v, err)
		}
	}
}

func TestEncodeDecodeKeepsExtendedTypes(t *testing.T) {
	id := primitive.NewObjectID()
	when := primitive.NewDateTimeFromTime(time.Date(2023, 5, 6, 7, 8, 9, 0, time.UTC))
	data, err := Encode(bson.A{bson.D{{Key: "_id", Value: id}, {Key: "at", Value: when}}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	doc := got.(bson.A)[0].(bson.D)
	if doc[0].Value != id || doc[1].Value != when {
		t.Fatalf("extended types lost: %#v", doc)
	}
}
