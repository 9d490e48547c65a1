package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ValueKind discriminates the tagged union carried by Value.
type ValueKind uint8

const (
	KindString ValueKind = iota
	KindInt
	KindDouble
	KindVector
	KindDataSet
	// KindRemoved marks a data-set key that an adapter explicitly cleared.
	KindRemoved
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindVector:
		return "vector"
	case KindDataSet:
		return "data_set"
	case KindRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Value is a compact tagged variant for observation properties.
type Value struct {
	kind ValueKind
	str  string
	i64  int64
	f64  float64
	vec  []float64
	set  DataSet
}

// DataSet holds key/value entries of a DATA_SET or TABLE observation.
type DataSet map[string]Value

func StringValue(s string) Value      { return Value{kind: KindString, str: s} }
func IntValue(v int64) Value          { return Value{kind: KindInt, i64: v} }
func DoubleValue(v float64) Value     { return Value{kind: KindDouble, f64: v} }
func VectorValue(v []float64) Value   { return Value{kind: KindVector, vec: v} }
func DataSetValue(set DataSet) Value  { return Value{kind: KindDataSet, set: set} }
func RemovedValue() Value             { return Value{kind: KindRemoved} }

func (v Value) Kind() ValueKind    { return v.kind }
func (v Value) Str() string        { return v.str }
func (v Value) Int() int64         { return v.i64 }
func (v Value) Double() float64    { return v.f64 }
func (v Value) Vector() []float64  { return v.vec }
func (v Value) DataSet() DataSet   { return v.set }

// String renders scalar and vector values the way they appear on the wire; a
// data set renders as its entry count and a removed marker as "".
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return strconv.FormatInt(v.i64, 10)
	case KindDouble:
		return strconv.FormatFloat(v.f64, 'g', -1, 64)
	case KindVector:
		parts := make([]string, len(v.vec))
		for i, f := range v.vec {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return strings.Join(parts, " ")
	case KindDataSet:
		return fmt.Sprintf("%d entries", len(v.set))
	case KindRemoved:
		return ""
	default:
		return ""
	}
}

type valueJSON struct {
	Kind   string          `json:"kind"`
	String *string         `json:"string,omitempty"`
	Int    *int64          `json:"int,omitempty"`
	Double *float64        `json:"double,omitempty"`
	Vector []float64       `json:"vector,omitempty"`
	Set    map[string]json.RawMessage `json:"set,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	out := valueJSON{Kind: v.kind.String()}
	switch v.kind {
	case KindString:
		out.String = &v.str
	case KindInt:
		out.Int = &v.i64
	case KindDouble:
		out.Double = &v.f64
	case KindVector:
		out.Vector = v.vec
	case KindDataSet:
		out.Set = make(map[string]json.RawMessage, len(v.set))
		for k, entry := range v.set {
			raw, err := json.Marshal(entry)
			if err != nil {
				return nil, err
			}
			out.Set[k] = raw
		}
	}
	return json.Marshal(out)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var in valueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Kind {
	case "string":
		if in.String != nil {
			*v = StringValue(*in.String)
		} else {
			*v = StringValue("")
		}
	case "int":
		if in.Int == nil {
			return fmt.Errorf("value: int payload missing")
		}
		*v = IntValue(*in.Int)
	case "double":
		if in.Double == nil {
			return fmt.Errorf("value: double payload missing")
		}
		*v = DoubleValue(*in.Double)
	case "vector":
		*v = VectorValue(in.Vector)
	case "data_set":
		set := make(DataSet, len(in.Set))
		for k, raw := range in.Set {
			var entry Value
			if err := json.Unmarshal(raw, &entry); err != nil {
				return err
			}
			set[k] = entry
		}
		*v = DataSetValue(set)
	case "removed":
		*v = RemovedValue()
	default:
		return fmt.Errorf("value: unknown kind %q", in.Kind)
	}
	return nil
}
