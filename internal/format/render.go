package format

import (
	"encoding/base64"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IndentWidth is the number of spaces per nesting level.
const IndentWidth = 4

const isoLayout = "2006-01-02T15:04:05.000Z"

// ExtendedRenderer renders decoded result values as indented text, tagging
// dates and object ids.
type ExtendedRenderer struct{}

// NewExtendedRenderer returns the default result renderer.
func NewExtendedRenderer() *ExtendedRenderer {
	return &ExtendedRenderer{}
}

// Render implements the core renderer contract.
func (r *ExtendedRenderer) Render(value any) string {
	return Render(value)
}

// Render converts value into deterministic indented text at nesting level 0.
func Render(value any) string {
	return RenderIndent(value, 0)
}

// RenderIndent converts value into indented text starting at level. The input
// is never modified.
func RenderIndent(value any, level int) string {
	if level < 0 {
		level = 0
	}
	var b strings.Builder
	writeValue(&b, value, level)
	return b.String()
}

func writeValue(b *strings.Builder, value any, level int) {
	switch v := value.(type) {
	case nil:
		b.WriteString("null")
	case primitive.DateTime:
		writeDate(b, v.Time())
	case time.Time:
		writeDate(b, v)
	case *time.Time:
		if v == nil {
			b.WriteString("null")
			return
		}
		writeDate(b, *v)
	case primitive.Timestamp:
		writeDate(b, time.Unix(int64(v.T), 0))
	case primitive.ObjectID:
		b.WriteString(`ObjectId("`)
		b.WriteString(v.Hex())
		b.WriteString(`")`)
	case primitive.A:
		writeList(b, len(v), func(i int) any { return v[i] }, level)
	case []any:
		writeList(b, len(v), func(i int) any { return v[i] }, level)
	case primitive.D:
		writeMapping(b, len(v), func(i int) (string, any) { return v[i].Key, v[i].Value }, level)
	case primitive.M:
		writeSortedMap(b, v, level)
	case map[string]any:
		writeSortedMap(b, v, level)
	case string:
		// Embedded quotes are not escaped; consumers match this exact form.
		b.WriteByte('"')
		b.WriteString(v)
		b.WriteByte('"')
	default:
		writeOther(b, value, level)
	}
}

func writeDate(b *strings.Builder, t time.Time) {
	b.WriteString(`Date("`)
	b.WriteString(t.UTC().Format(isoLayout))
	b.WriteString(`")`)
}

func writeList(b *strings.Builder, n int, item func(int) any, level int) {
	b.WriteString("[\n")
	b.WriteString(indent(level + 1))
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",\n")
			b.WriteString(indent(level + 1))
		}
		writeValue(b, item(i), level+1)
	}
	b.WriteString("\n")
	b.WriteString(indent(level))
	b.WriteString("]")
}

func writeMapping(b *strings.Builder, n int, entry func(int) (string, any), level int) {
	b.WriteString("{\n")
	b.WriteString(indent(level + 1))
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",\n")
			b.WriteString(indent(level + 1))
		}
		key, value := entry(i)
		b.WriteByte('"')
		b.WriteString(key)
		b.WriteString(`": `)
		writeValue(b, value, level+1)
	}
	b.WriteString("\n")
	b.WriteString(indent(level))
	b.WriteString("}")
}

func writeSortedMap[M ~map[string]any](b *strings.Builder, m M, level int) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	writeMapping(b, len(keys), func(i int) (string, any) { return keys[i], m[keys[i]] }, level)
}

func writeOther(b *strings.Builder, value any, level int) {
	switch v := value.(type) {
	case primitive.Null:
		b.WriteString("null")
	case primitive.Undefined:
		b.WriteString("undefined")
	case bool:
		b.WriteString(strconv.FormatBool(v))
	case int:
		b.WriteString(strconv.FormatInt(int64(v), 10))
	case int32:
		b.WriteString(strconv.FormatInt(int64(v), 10))
	case int64:
		b.WriteString(strconv.FormatInt(v, 10))
	case float32:
		b.WriteString(formatNumber(float64(v)))
	case float64:
		b.WriteString(formatNumber(v))
	case primitive.Decimal128:
		b.WriteString(v.String())
	case primitive.Binary:
		fmt.Fprintf(b, `BinData(%d, "%s")`, v.Subtype, base64.StdEncoding.EncodeToString(v.Data))
	case primitive.Regex:
		b.WriteString("/" + v.Pattern + "/" + v.Options)
	case fmt.Stringer:
		b.WriteString(v.String())
	default:
		writeReflect(b, value, level)
	}
}

// writeReflect covers slices and string-keyed maps of concrete element types.
func writeReflect(b *strings.Builder, value any, level int) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			b.WriteString("null")
			return
		}
		writeList(b, rv.Len(), func(i int) any { return rv.Index(i).Interface() }, level)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			fmt.Fprint(b, value)
			return
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		writeMapping(b, len(keys), func(i int) (string, any) {
			return keys[i], rv.MapIndex(reflect.ValueOf(keys[i]).Convert(rv.Type().Key())).Interface()
		}, level)
	case reflect.Pointer:
		if rv.IsNil() {
			b.WriteString("null")
			return
		}
		writeValue(b, rv.Elem().Interface(), level)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		b.WriteString(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		b.WriteString(strconv.FormatUint(rv.Uint(), 10))
	default:
		fmt.Fprint(b, value)
	}
}

// formatNumber mirrors the shell's number-to-text conversion.
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mantissa, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		digits := strings.TrimLeft(exp[1:], "0")
		if digits == "" {
			digits = "0"
		}
		return mantissa + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func indent(level int) string {
	return strings.Repeat(" ", level*IndentWidth)
}
