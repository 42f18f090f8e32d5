package engine

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pkt.systems/mongoui/core"
	"pkt.systems/mongoui/internal/extjson"
	"pkt.systems/mongoui/internal/format"
	"pkt.systems/mongoui/schema"
)

var _ core.Backend = (*Engine)(nil)

type memCollection struct {
	mu   *sync.Mutex
	docs *[]bson.D
}

func (c memCollection) Find(_ context.Context, filter bson.D) ([]bson.D, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []bson.D{}
	for _, doc := range *c.docs {
		if matches(doc, filter) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (c memCollection) FindOne(ctx context.Context, filter bson.D) (bson.D, error) {
	docs, err := c.Find(ctx, filter)
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docs[0], nil
}

func (c memCollection) InsertOne(_ context.Context, doc bson.D) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, id := ensureID(doc)
	*c.docs = append(*c.docs, doc)
	return id, nil
}

func (c memCollection) InsertMany(ctx context.Context, docs []bson.D) ([]any, error) {
	ids := make([]any, 0, len(docs))
	for _, doc := range docs {
		id, err := c.InsertOne(ctx, doc)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func ensureID(doc bson.D) (bson.D, any) {
	for _, e := range doc {
		if e.Key == "_id" {
			return doc, e.Value
		}
	}
	id := primitive.NewObjectID()
	return append(bson.D{{Key: "_id", Value: id}}, doc...), id
}

func matches(doc, filter bson.D) bool {
	for _, f := range filter {
		found := false
		for _, e := range doc {
			if e.Key == f.Key && reflect.DeepEqual(e.Value, f.Value) {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	return true
}

type memSession struct {
	mu     sync.Mutex
	data   map[string]map[string]*[]bson.D
	closed bool
}

func newMemSession() *memSession {
	return &memSession{data: map[string]map[string]*[]bson.D{}}
}

func (s *memSession) seed(db, coll string, docs ...bson.D) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[db] == nil {
		s.data[db] = map[string]*[]bson.D{}
	}
	list := append([]bson.D(nil), docs...)
	s.data[db][coll] = &list
}

func (s *memSession) DatabaseNames(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []string{}
	for name := range s.data {
		out = append(out, name)
	}
	return out, nil
}

func (s *memSession) CollectionNames(_ context.Context, db string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []string{}
	for name := range s.data[db] {
		out = append(out, name)
	}
	return out, nil
}

func (s *memSession) Collection(db, name string) Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[db] == nil {
		s.data[db] = map[string]*[]bson.D{}
	}
	if s.data[db][name] == nil {
		s.data[db][name] = &[]bson.D{}
	}
	return memCollection{mu: &s.mu, docs: s.data[db][name]}
}

func (s *memSession) Close(context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

type memDialer struct {
	session *memSession
	err     error
	uris    []string
}

func (d *memDialer) Dial(_ context.Context, uri string) (Session, error) {
	d.uris = append(d.uris, uri)
	if d.err != nil {
		return nil, d.err
	}
	return d.session, nil
}

type memSaved struct {
	items []schema.SavedConnection
	err   error
}

func (m *memSaved) Create(_ context.Context, name, uri string) (schema.SavedConnection, error) {
	if m.err != nil {
		return schema.SavedConnection{}, m.err
	}
	c := schema.SavedConnection{ID: schema.SavedConnectionID(len(m.items) + 1), Name: name, URI: uri}
	m.items = append(m.items, c)
	return c, nil
}

func (m *memSaved) List(context.Context) ([]schema.SavedConnection, error) {
	return m.items, nil
}

func (m *memSaved) Get(_ context.Context, id schema.SavedConnectionID) (schema.SavedConnection, error) {
	for _, c := range m.items {
		if c.ID == id {
			return c, nil
		}
	}
	return schema.SavedConnection{}, schema.ErrSavedConnectionNotFound
}

func (m *memSaved) Rename(context.Context, schema.SavedConnectionID, string) error { return nil }

func (m *memSaved) Delete(context.Context, schema.SavedConnectionID) error { return nil }

func newTestEngine(t *testing.T) (*Engine, *memSession, *memSaved) {
	t.Helper()
	session := newMemSession()
	saved := &memSaved{}
	eng, err := New(Config{}, &memDialer{session: session}, saved, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng, session, saved
}

func connect(t *testing.T, eng *Engine) schema.ConnectionID {
	t.Helper()
	resp, err := eng.Connect(context.Background(), schema.ConnectRequest{URI: "mongodb://localhost"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.ConnectionID)
	return resp.ConnectionID
}

func exec(t *testing.T, eng *Engine, conn schema.ConnectionID, db, src string) string {
	t.Helper()
	resp, err := eng.ExecScript(context.Background(), schema.ExecScriptRequest{ConnectionID: conn, Database: schema.TargetName(db), Script: src})
	require.NoError(t, err)
	return string(resp.Payload)
}

func TestConnectListsDatabasesAndSaves(t *testing.T) {
	eng, session, saved := newTestEngine(t)
	session.seed("shop", "orders")
	resp, err := eng.Connect(context.Background(), schema.ConnectRequest{URI: "mongodb://localhost", Save: true, SaveName: "local"})
	require.NoError(t, err)
	require.Equal(t, []schema.TargetName{"shop"}, resp.Databases)
	require.Len(t, saved.items, 1)
	require.Equal(t, "mongodb://localhost", saved.items[0].URI)

	colls, err := eng.ListCollections(context.Background(), schema.ListCollectionsRequest{ConnectionID: resp.ConnectionID, Database: "shop"})
	require.NoError(t, err)
	require.Equal(t, []schema.CollectionName{"orders"}, colls)

	again, err := eng.ConnectSaved(context.Background(), schema.ConnectSavedRequest{ID: saved.items[0].ID})
	require.NoError(t, err)
	require.NotEqual(t, resp.ConnectionID, again.ConnectionID)
}

func TestConnectSaveFailureClosesSession(t *testing.T) {
	eng, session, saved := newTestEngine(t)
	saved.err = schema.ErrSavedNameExists
	_, err := eng.Connect(context.Background(), schema.ConnectRequest{URI: "mongodb://localhost", Save: true, SaveName: "dup"})
	require.ErrorIs(t, err, schema.ErrSavedNameExists)
	require.True(t, session.closed)
}

func TestConnectDialFailure(t *testing.T) {
	eng, err := New(Config{}, &memDialer{err: errors.New("no reachable servers")}, nil, nil)
	require.NoError(t, err)
	_, err = eng.Connect(context.Background(), schema.ConnectRequest{URI: "mongodb://nowhere"})
	require.EqualError(t, err, "no reachable servers")
}

func TestUnknownConnection(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	_, err := eng.ListCollections(context.Background(), schema.ListCollectionsRequest{ConnectionID: "missing"})
	require.ErrorIs(t, err, schema.ErrConnectionNotFound)
	_, err = eng.ExecScript(context.Background(), schema.ExecScriptRequest{ConnectionID: "missing"})
	require.ErrorIs(t, err, schema.ErrConnectionNotFound)
}

func TestFindReturnsDocumentsInOrder(t *testing.T) {
	eng, session, _ := newTestEngine(t)
	oid, err := primitive.ObjectIDFromHex("507f1f77bcf86cd799439011")
	require.NoError(t, err)
	session.seed("shop", "orders", bson.D{{Key: "_id", Value: oid}, {Key: "total", Value: int32(42)}})
	conn := connect(t, eng)

	payload := exec(t, eng, conn, "shop", `db.getCollection("orders").find({})`)
	require.Equal(t, `[{"_id":{"$oid":"507f1f77bcf86cd799439011"},"total":42}]`, payload)
}

func TestFindOneMissingIsNull(t *testing.T) {
	eng, session, _ := newTestEngine(t)
	session.seed("shop", "orders")
	conn := connect(t, eng)
	require.Equal(t, "null", exec(t, eng, conn, "shop", `db.getCollection("orders").findOne({sku: "x"})`))
}

func TestInsertOneAndMany(t *testing.T) {
	eng, session, _ := newTestEngine(t)
	session.seed("shop", "orders")
	conn := connect(t, eng)

	payload := exec(t, eng, conn, "shop", `db.getCollection("orders").insertOne({_id: ObjectId("507f1f77bcf86cd799439011"), total: 1})`)
	require.Equal(t, `{"acknowledged":true,"insertedId":{"$oid":"507f1f77bcf86cd799439011"}}`, payload)

	payload = exec(t, eng, conn, "shop", `db.getCollection("orders").insertMany([{_id: 2}, {_id: 3}])`)
	require.Equal(t, `{"acknowledged":true,"insertedIds":[2,3]}`, payload)

	payload = exec(t, eng, conn, "shop", `db.getCollection("orders").find({}).length`)
	require.Equal(t, "3", payload)
}

func TestObjectIdHelpers(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	conn := connect(t, eng)
	require.Equal(t, `"507f1f77bcf86cd799439011"`, exec(t, eng, conn, "shop", `ObjectId("507f1f77bcf86cd799439011").toString()`))
	payload := exec(t, eng, conn, "shop", `ObjectId("507f1f77bcf86cd799439011").getTimestamp()`)
	require.Equal(t, `{"$date":"2012-10-17T21:13:27Z"}`, payload)
	require.Equal(t, "24", exec(t, eng, conn, "shop", `new ObjectId().toString().length`))
}

func TestScriptValuesKeepKeyOrder(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	conn := connect(t, eng)
	resp, err := eng.ExecScript(context.Background(), schema.ExecScriptRequest{
		ConnectionID: conn,
		Database:     "shop",
		Script:       `({z: 1, a: [true, null, "s"], m: {b: 1.5}})`,
	})
	require.NoError(t, err)
	rendered := format.Render(mustDecode(t, resp.Payload))
	require.Equal(t, "{\n    \"z\": 1,\n    \"a\": [\n        true,\n        null,\n        \"s\"\n    ],\n    \"m\": {\n        \"b\": 1.5\n    }\n}", rendered)
}

func TestScriptErrors(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	conn := connect(t, eng)
	cases := []struct{ src, want string }{
		{"foo.bar", "ReferenceError: foo is not defined"},
		{`db.getCollection("o").find()`, "Error: find requires an argument"},
		{`db.getCollection("o").insertOne(1)`, "Error: insertOne requires a document"},
		{`ObjectId("zz")`, `Error: invalid ObjectId "zz"`},
		{`throw new Error("nope")`, "Error: nope"},
		{`var a = {}; a.self = a; a`, "cannot convert a cyclic value"},
		{`var a = [1]; a.push({inner: a}); a`, "cannot convert a cyclic value"},
		{`var a = {}; a.self = a; db.getCollection("o").insertOne({doc: a})`, "Error: cannot convert a cyclic value"},
		{`var o = {}, c = o; for (var i = 0; i < 150; i++) { c.n = {}; c = c.n; } o`, "value nests deeper than 100 levels"},
	}
	for _, tc := range cases {
		_, err := eng.ExecScript(context.Background(), schema.ExecScriptRequest{ConnectionID: conn, Database: "shop", Script: tc.src})
		require.EqualError(t, err, tc.want, tc.src)
	}
}

func TestScriptSharedReferenceIsNotCyclic(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	conn := connect(t, eng)
	resp, err := eng.ExecScript(context.Background(), schema.ExecScriptRequest{ConnectionID: conn, Database: "shop", Script: `var x = {n: 1}; [x, x]`})
	require.NoError(t, err)
	require.JSONEq(t, `[{"n":1},{"n":1}]`, string(resp.Payload))
}

func TestScriptHonoursContext(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	conn := connect(t, eng)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := eng.ExecScript(ctx, schema.ExecScriptRequest{ConnectionID: conn, Database: "shop", Script: `for (;;) {}`})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDisconnect(t *testing.T) {
	eng, session, _ := newTestEngine(t)
	conn := connect(t, eng)
	require.NoError(t, eng.Disconnect(context.Background(), conn))
	require.True(t, session.closed)
	require.ErrorIs(t, eng.Disconnect(context.Background(), conn), schema.ErrConnectionNotFound)
}

func mustDecode(t *testing.T, payload []byte) any {
	t.Helper()
	value, err := extjson.Decode(payload)
	require.NoError(t, err)
	return value
}
