package actor

import (
	"reflect"
	"sync"
)

type msgTyper interface{ MsgType() string }

// typeNames caches reflect.Type -> "pkg/path.TypeName".
var typeNames sync.Map

func msgTypeFor[T any]() string {
	var z T
	if mt, ok := any(z).(msgTyper); ok {
		return mt.MsgType()
	}
	return typeName(reflect.TypeFor[T]())
}

func typeName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if n, ok := typeNames.Load(t); ok {
		return n.(string)
	}
	n := t.PkgPath() + "." + t.Name()
	typeNames.Store(t, n)
	return n
}
