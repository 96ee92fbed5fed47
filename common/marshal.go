package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// interfaceMap holds the concrete types that may appear behind
// interface-typed fields, keyed by their full type name.
var interfaceMap = make(map[string]reflect.Type)

// DoesNotMatch is returned by InterfaceTestMarshalAndUnmarshal when the
// decoded value differs from the original.
var DoesNotMatch = errors.New("photon: does not match")

// typeName returns packagepath/typename for the value in i, with a
// trailing * for pointers.
func typeName(i interface{}) string {
	t := reflect.TypeOf(i)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
		return t.PkgPath() + "/" + t.Name() + "*"
	}
	return t.PkgPath() + "/" + t.Name()
}

// Register logs a concrete type to allow it to be encoded and decoded
// behind an interface with InterfaceMarshaler. Types are normally
// registered in an init() function of the package defining them. This
// follows in spirit with encoding/gob; like gob, it panics if the type
// is already registered. A type and a pointer to the type are distinct.
func Register(i interface{}) {
	name := typeName(i)
	if _, ok := interfaceMap[name]; ok {
		panic("common/Register: type " + name + " already registered")
	}
	t := reflect.TypeOf(i)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	interfaceMap[name] = t
}

// NotRegistered is returned when a type was never registered.
type NotRegistered struct {
	Type string
}

func (n *NotRegistered) Error() string {
	return fmt.Sprintf("common: type %s not registered", n.Type)
}

// InterfaceMarshaler encodes and decodes interface values as a
// (type name, value) pair. The concrete type must first be registered
// with Register.
type InterfaceMarshaler struct {
	I interface{}
}

type typeValue struct {
	Type  string
	Value interface{}
}

type typeRaw struct {
	Type  string
	Value json.RawMessage
}

func (m InterfaceMarshaler) MarshalJSON() ([]byte, error) {
	name := typeName(m.I)
	if _, ok := interfaceMap[name]; !ok {
		return nil, &NotRegistered{Type: name}
	}
	return json.Marshal(typeValue{Type: name, Value: m.I})
}

func (m *InterfaceMarshaler) UnmarshalJSON(data []byte) error {
	var raw typeRaw
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	typ, ok := interfaceMap[raw.Type]
	if !ok {
		return &NotRegistered{Type: raw.Type}
	}
	val := reflect.New(typ)
	if err := json.Unmarshal(raw.Value, val.Interface()); err != nil {
		return err
	}
	if isPtr := raw.Type[len(raw.Type)-1] == '*'; isPtr {
		m.I = val.Interface()
	} else {
		m.I = val.Elem().Interface()
	}
	return nil
}

// InterfaceTestMarshalAndUnmarshal round-trips the value in the
// interface through InterfaceMarshaler and returns an error if the
// result does not match.
func InterfaceTestMarshalAndUnmarshal(i interface{}) error {
	b, err := json.Marshal(InterfaceMarshaler{I: i})
	if err != nil {
		return err
	}
	var out InterfaceMarshaler
	if err := json.Unmarshal(b, &out); err != nil {
		return err
	}
	if !reflect.DeepEqual(i, out.I) {
		return DoesNotMatch
	}
	return nil
}
