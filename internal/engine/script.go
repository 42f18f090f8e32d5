package engine

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/dop251/goja"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const objectIDShim = `function ObjectId(hex) { return __newObjectId(hex); }`

// scriptError is a script failure reported with the runtime's message.
type scriptError struct {
	msg string
}

func (e *scriptError) Error() string { return e.msg }

// objectID is the script-side ObjectId value.
type objectID struct {
	rt  *goja.Runtime
	oid primitive.ObjectID
}

func (o *objectID) ToString() string {
	return o.oid.Hex()
}

func (o *objectID) ToHexString() string {
	return o.oid.Hex()
}

func (o *objectID) GetTimestamp() goja.Value {
	return newDate(o.rt, o.oid.Timestamp())
}

// script evaluates one script against db on a session.
type script struct {
	rt      *goja.Runtime
	ctx     context.Context
	session Session
	db      string
}

// runScript evaluates src with a global db bound to the database and returns
// the completion value as a bson value.
func runScript(ctx context.Context, session Session, db, src string) (any, error) {
	s := &script{rt: goja.New(), ctx: ctx, session: session, db: db}
	s.rt.SetFieldNameMapper(goja.UncapFieldNameMapper())
	if err := s.install(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.rt.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	value, err := s.rt.RunString(src)
	if err != nil {
		return nil, scriptFailure(err)
	}
	out, err := s.toBSON(value)
	if err != nil {
		return nil, &scriptError{msg: err.Error()}
	}
	return out, nil
}

func scriptFailure(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause, ok := interrupted.Value().(error); ok {
			return cause
		}
		return &scriptError{msg: interrupted.String()}
	}
	var exception *goja.Exception
	if errors.As(err, &exception) {
		return &scriptError{msg: exception.Value().String()}
	}
	return &scriptError{msg: err.Error()}
}

func (s *script) install() error {
	db := s.rt.NewObject()
	if err := db.Set("getCollection", s.getCollection); err != nil {
		return err
	}
	if err := s.rt.Set("db", db); err != nil {
		return err
	}
	if err := s.rt.Set("__newObjectId", s.newObjectID); err != nil {
		return err
	}
	_, err := s.rt.RunString(objectIDShim)
	return err
}

func (s *script) throw(format string, args ...any) {
	errCtor := s.rt.Get("Error")
	obj, err := s.rt.New(errCtor, s.rt.ToValue(fmt.Sprintf(format, args...)))
	if err != nil {
		panic(s.rt.NewGoError(err))
	}
	panic(obj)
}

func (s *script) newObjectID(call goja.FunctionCall) goja.Value {
	arg := call.Argument(0)
	if goja.IsUndefined(arg) || goja.IsNull(arg) {
		return s.wrapObjectID(primitive.NewObjectID())
	}
	oid, err := primitive.ObjectIDFromHex(arg.String())
	if err != nil {
		s.throw("invalid ObjectId %q", arg.String())
	}
	return s.wrapObjectID(oid)
}

func (s *script) wrapObjectID(oid primitive.ObjectID) goja.Value {
	return s.rt.ToValue(&objectID{rt: s.rt, oid: oid})
}

func (s *script) getCollection(call goja.FunctionCall) goja.Value {
	arg := call.Argument(0)
	if goja.IsUndefined(arg) || goja.IsNull(arg) {
		s.throw("invalid arguments to getCollection")
	}
	name := arg.String()
	coll := s.session.Collection(s.db, name)
	obj := s.rt.NewObject()
	_ = obj.Set("find", func(call goja.FunctionCall) goja.Value {
		filter := s.filterArg(call, "find")
		docs, err := coll.Find(s.ctx, filter)
		if err != nil {
			s.throw("%s", err.Error())
		}
		items := make(bson.A, 0, len(docs))
		for _, doc := range docs {
			items = append(items, doc)
		}
		return s.toJS(items)
	})
	_ = obj.Set("findOne", func(call goja.FunctionCall) goja.Value {
		filter := s.filterArg(call, "findOne")
		doc, err := coll.FindOne(s.ctx, filter)
		if err != nil {
			s.throw("%s", err.Error())
		}
		if doc == nil {
			return goja.Null()
		}
		return s.toJS(doc)
	})
	_ = obj.Set("insertOne", func(call goja.FunctionCall) goja.Value {
		doc := s.documentArg(call.Argument(0), "insertOne")
		id, err := coll.InsertOne(s.ctx, doc)
		if err != nil {
			s.throw("%s", err.Error())
		}
		return s.toJS(bson.D{{Key: "acknowledged", Value: true}, {Key: "insertedId", Value: id}})
	})
	_ = obj.Set("insertMany", func(call goja.FunctionCall) goja.Value {
		arg := call.Argument(0)
		value, err := s.toBSON(arg)
		if err != nil {
			s.throw("%s", err.Error())
		}
		list, ok := value.(bson.A)
		if !ok {
			s.throw("insertMany requires an array of documents")
		}
		docs := make([]bson.D, 0, len(list))
		for _, item := range list {
			doc, ok := item.(bson.D)
			if !ok {
				s.throw("insertMany requires an array of documents")
			}
			docs = append(docs, doc)
		}
		ids, err := coll.InsertMany(s.ctx, docs)
		if err != nil {
			s.throw("%s", err.Error())
		}
		return s.toJS(bson.D{{Key: "acknowledged", Value: true}, {Key: "insertedIds", Value: bson.A(ids)}})
	})
	return obj
}

func (s *script) filterArg(call goja.FunctionCall, verb string) bson.D {
	if len(call.Arguments) == 0 {
		s.throw("%s requires an argument", verb)
	}
	return s.documentArg(call.Argument(0), verb)
}

func (s *script) documentArg(arg goja.Value, verb string) bson.D {
	value, err := s.toBSON(arg)
	if err != nil {
		s.throw("%s", err.Error())
	}
	doc, ok := value.(bson.D)
	if !ok {
		s.throw("%s requires a document", verb)
	}
	return doc
}

// maxDepth bounds document nesting, matching the server's limit.
const maxDepth = 100

var (
	errCyclicValue = errors.New("cannot convert a cyclic value")
	errTooDeep     = fmt.Errorf("value nests deeper than %d levels", maxDepth)
	objectIDType   = reflect.TypeOf((*objectID)(nil))
)

// toBSON converts a script value into the bson value model, keeping object
// key order.
func (s *script) toBSON(value goja.Value) (any, error) {
	return s.convert(value, make(map[*goja.Object]struct{}), 0)
}

// convert walks value; path holds the objects between the root and value.
func (s *script) convert(value goja.Value, path map[*goja.Object]struct{}, depth int) (any, error) {
	if value == nil || goja.IsUndefined(value) {
		return primitive.Undefined{}, nil
	}
	if goja.IsNull(value) {
		return nil, nil
	}
	obj, ok := value.(*goja.Object)
	if !ok {
		return exportScalar(value), nil
	}
	if obj.ExportType() == objectIDType {
		if id, ok := obj.Export().(*objectID); ok {
			return id.oid, nil
		}
	}
	if _, isFunc := goja.AssertFunction(obj); isFunc {
		return nil, errors.New("cannot convert a function to a document value")
	}
	switch obj.ClassName() {
	case "Date":
		if t, ok := obj.Export().(time.Time); ok {
			return primitive.NewDateTimeFromTime(t), nil
		}
		return nil, errors.New("invalid date")
	case "String", "Number", "Boolean":
		return obj.Export(), nil
	}

	if _, seen := path[obj]; seen {
		return nil, errCyclicValue
	}
	if depth >= maxDepth {
		return nil, errTooDeep
	}
	path[obj] = struct{}{}
	defer delete(path, obj)

	if obj.ClassName() == "Array" {
		n := int(obj.Get("length").ToInteger())
		out := make(bson.A, 0, n)
		for i := 0; i < n; i++ {
			item, err := s.convert(obj.Get(strconv.Itoa(i)), path, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		return out, nil
	}
	keys := obj.Keys()
	out := make(bson.D, 0, len(keys))
	for _, key := range keys {
		item, err := s.convert(obj.Get(key), path, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, bson.E{Key: key, Value: item})
	}
	return out, nil
}

func exportScalar(value goja.Value) any {
	switch v := value.Export().(type) {
	case int64:
		if v >= -1<<31 && v < 1<<31 {
			return int32(v)
		}
		return v
	default:
		return v
	}
}

// toJS converts a bson value into a script value.
func (s *script) toJS(value any) goja.Value {
	switch v := value.(type) {
	case nil:
		return goja.Null()
	case primitive.Null:
		return goja.Null()
	case primitive.Undefined:
		return goja.Undefined()
	case bson.D:
		obj := s.rt.NewObject()
		for _, e := range v {
			_ = obj.Set(e.Key, s.toJS(e.Value))
		}
		return obj
	case bson.M:
		obj := s.rt.NewObject()
		for key, item := range v {
			_ = obj.Set(key, s.toJS(item))
		}
		return obj
	case bson.A:
		items := make([]any, 0, len(v))
		for _, item := range v {
			items = append(items, s.toJS(item))
		}
		return s.rt.NewArray(items...)
	case []any:
		return s.toJS(bson.A(v))
	case primitive.ObjectID:
		return s.wrapObjectID(v)
	case primitive.DateTime:
		return newDate(s.rt, v.Time())
	case primitive.Timestamp:
		return newDate(s.rt, time.Unix(int64(v.T), 0))
	case primitive.Regex:
		return s.rt.ToValue("/" + v.Pattern + "/" + v.Options)
	case primitive.Decimal128:
		return s.rt.ToValue(v.String())
	case int32:
		return s.rt.ToValue(int64(v))
	default:
		return s.rt.ToValue(v)
	}
}

func newDate(rt *goja.Runtime, t time.Time) goja.Value {
	obj, err := rt.New(rt.Get("Date"), rt.ToValue(t.UnixMilli()))
	if err != nil {
		return rt.ToValue(t)
	}
	return obj
}
