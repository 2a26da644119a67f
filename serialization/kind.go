package serialization

import (
	"fmt"
	"strings"

	"github.com/kbukum/gokiota/errors"
)

// Kind identifies one of the scalar types a node can hold.
type Kind int

const (
	KindString Kind = iota + 1
	KindBool
	KindByte
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindUUID
	KindTime
	KindByteArray
)

var kindNames = map[Kind]string{
	KindString:    "string",
	KindBool:      "bool",
	KindByte:      "uint8",
	KindInt32:     "int32",
	KindInt64:     "int64",
	KindFloat32:   "float32",
	KindFloat64:   "float64",
	KindUUID:      "uuid",
	KindTime:      "time",
	KindByteArray: "base64",
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind resolves a kind from its name. "byte" and "[]byte" are accepted aliases.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(name) {
	case "byte":
		return KindByte, nil
	case "[]byte", "bytearray":
		return KindByteArray, nil
	case "int":
		return KindInt32, nil
	case "float", "double":
		return KindFloat64, nil
	case "long":
		return KindInt64, nil
	}
	for k, n := range kindNames {
		if n == strings.ToLower(name) {
			return k, nil
		}
	}
	return 0, errors.Configuration("unknown primitive kind").WithDetail("kind", name)
}

// PrimitiveValue reads a scalar of the given kind from node. Nil pointers
// are returned as a nil interface.
func PrimitiveValue(node ParseNode, kind Kind) (any, error) {
	switch kind {
	case KindString:
		return deref(node.GetStringValue())
	case KindBool:
		return deref(node.GetBoolValue())
	case KindByte:
		return deref(node.GetByteValue())
	case KindInt32:
		return deref(node.GetInt32Value())
	case KindInt64:
		return deref(node.GetInt64Value())
	case KindFloat32:
		return deref(node.GetFloat32Value())
	case KindFloat64:
		return deref(node.GetFloat64Value())
	case KindUUID:
		return deref(node.GetUUIDValue())
	case KindTime:
		return deref(node.GetTimeValue())
	case KindByteArray:
		v, err := node.GetByteArrayValue()
		if err != nil || v == nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, errors.Configuration("unsupported primitive kind").WithDetail("kind", kind.String())
	}
}

func deref[T any](v *T, err error) (any, error) {
	if err != nil || v == nil {
		return nil, err
	}
	return *v, nil
}
