package lua

import (
	"sort"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/facekit/internal/document"
)

const docTypeName = "facekit.doc"

// registerDocType installs the doc metatable.
func registerDocType(L *lua.LState) {
	mt := L.NewTypeMetatable(docTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), docMethods))
}

// docRef is the Lua view of a document. When held is set the caller owns
// the write lock for the whole call and the methods take no locks.
type docRef struct {
	*document.Document
	held bool
}

func (d *docRef) rlock() {
	if !d.held {
		d.RLock()
	}
}

func (d *docRef) runlock() {
	if !d.held {
		d.RUnlock()
	}
}

func (d *docRef) lock() {
	if !d.held {
		d.Lock()
	}
}

func (d *docRef) unlock() {
	if !d.held {
		d.Unlock()
	}
}

// newDoc wraps doc for Lua. A nil doc becomes nil.
func newDoc(L *lua.LState, doc *document.Document) lua.LValue {
	return wrapDoc(L, doc, false)
}

// newHeldDoc wraps doc whose write lock the caller holds.
func newHeldDoc(L *lua.LState, doc *document.Document) lua.LValue {
	return wrapDoc(L, doc, true)
}

func wrapDoc(L *lua.LState, doc *document.Document, held bool) lua.LValue {
	if doc == nil {
		return lua.LNil
	}
	ud := L.NewUserData()
	ud.Value = &docRef{Document: doc, held: held}
	L.SetMetatable(ud, L.GetTypeMetatable(docTypeName))
	return ud
}

func checkDoc(L *lua.LState) *docRef {
	ud := L.CheckUserData(1)
	if doc, ok := ud.Value.(*docRef); ok {
		return doc
	}
	L.ArgError(1, "doc expected")
	return nil
}

func checkVec(L *lua.LState, at int) document.Vec3 {
	return document.Vec3{
		float64(L.CheckNumber(at)),
		float64(L.CheckNumber(at + 1)),
		float64(L.CheckNumber(at + 2)),
	}
}

func pushVec(L *lua.LState, v document.Vec3) int {
	L.Push(lua.LNumber(v[0]))
	L.Push(lua.LNumber(v[1]))
	L.Push(lua.LNumber(v[2]))
	return 3
}

// checkVertex returns the 0-based index of the 1-based vertex argument.
// Caller holds at least the read lock.
func checkVertex(L *lua.LState, doc *docRef) int {
	i := L.CheckInt(2)
	if i < 1 || i > len(doc.Geometry) {
		L.ArgError(2, "vertex index out of range")
	}
	return i - 1
}

var docMethods = map[string]lua.LGFunction{
	"name":            docName,
	"vertex_count":    docVertexCount,
	"vertex":          docVertex,
	"set_vertex":      docSetVertex,
	"bounds":          docBounds,
	"translate":       docTranslate,
	"scale":           docScale,
	"landmarks":       docLandmarks,
	"landmark":        docLandmark,
	"set_landmark":    docSetLandmark,
	"remove_landmark": docRemoveLandmark,
	"meta":            docMeta,
	"set_meta":        docSetMeta,
}

func docName(L *lua.LState) int {
	doc := checkDoc(L)
	L.Push(lua.LString(doc.Name))
	return 1
}

func docVertexCount(L *lua.LState) int {
	doc := checkDoc(L)
	doc.rlock()
	n := len(doc.Geometry)
	doc.runlock()
	L.Push(lua.LNumber(n))
	return 1
}

func docVertex(L *lua.LState) int {
	doc := checkDoc(L)
	doc.rlock()
	defer doc.runlock()
	return pushVec(L, doc.Geometry[checkVertex(L, doc)])
}

func docSetVertex(L *lua.LState) int {
	doc := checkDoc(L)
	v := checkVec(L, 3)
	doc.lock()
	defer doc.unlock()
	doc.Geometry[checkVertex(L, doc)] = v
	doc.RecomputeBounds()
	doc.Touch()
	return 0
}

func docBounds(L *lua.LState) int {
	doc := checkDoc(L)
	doc.rlock()
	b := doc.Bounds
	doc.runlock()
	if !b.Valid {
		L.Push(lua.LNil)
		return 1
	}
	pushVec(L, b.Min)
	return pushVec(L, b.Max) + 3
}

func transform(doc *docRef, m document.Mat4) {
	doc.lock()
	doc.Transform = m.Mul(doc.Transform)
	doc.RecomputeBounds()
	doc.unlock()
	doc.Touch()
}

func docTranslate(L *lua.LState) int {
	doc := checkDoc(L)
	transform(doc, document.Translation(checkVec(L, 2)))
	return 0
}

func docScale(L *lua.LState) int {
	doc := checkDoc(L)
	s := float64(L.CheckNumber(2))
	if s == 0 {
		L.ArgError(2, "scale must not be zero")
	}
	transform(doc, document.Scaling(s))
	return 0
}

func docLandmarks(L *lua.LState) int {
	doc := checkDoc(L)
	doc.rlock()
	names := make([]string, 0, len(doc.Landmarks))
	for name := range doc.Landmarks {
		names = append(names, name)
	}
	doc.runlock()
	sort.Strings(names)

	t := L.CreateTable(len(names), 0)
	for _, name := range names {
		t.Append(lua.LString(name))
	}
	L.Push(t)
	return 1
}

func docLandmark(L *lua.LState) int {
	doc := checkDoc(L)
	name := L.CheckString(2)
	doc.rlock()
	p, ok := doc.Landmarks[name]
	doc.runlock()
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	return pushVec(L, p)
}

func docSetLandmark(L *lua.LState) int {
	doc := checkDoc(L)
	name := L.CheckString(2)
	p := checkVec(L, 3)
	doc.lock()
	doc.Landmarks[name] = p
	doc.unlock()
	doc.Touch()
	return 0
}

func docRemoveLandmark(L *lua.LState) int {
	doc := checkDoc(L)
	name := L.CheckString(2)
	doc.lock()
	_, ok := doc.Landmarks[name]
	delete(doc.Landmarks, name)
	doc.unlock()
	if ok {
		doc.Touch()
	}
	L.Push(lua.LBool(ok))
	return 1
}

func docMeta(L *lua.LState) int {
	doc := checkDoc(L)
	key := L.CheckString(2)
	doc.rlock()
	v, ok := doc.Metadata[key]
	doc.runlock()
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(v))
	return 1
}

func docSetMeta(L *lua.LState) int {
	doc := checkDoc(L)
	key := L.CheckString(2)
	value := L.CheckString(3)
	doc.lock()
	doc.Metadata[key] = value
	doc.unlock()
	doc.Touch()
	return 0
}
