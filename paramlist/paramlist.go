// Package paramlist reads and writes nested parameter lists stored as XML:
//
//	<ParameterList>
//	  <Parameter name="system_type_3D" type="string" value="GENERIC_SYSTEM" />
//	  <ParameterList name="CAMERA 0">
//	    <Parameter name="FX" type="double" value="3500" />
//	  </ParameterList>
//	</ParameterList>
//
// Parameters keep their declared type only as a hint; the typed getters coerce the stored text.
package paramlist

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// Type is the declared type of a parameter.
type Type string

// The parameter types understood by the reader and emitted by the writer.
const (
	TypeBool   = Type("bool")
	TypeInt    = Type("int")
	TypeDouble = Type("double")
	TypeString = Type("string")
)

// ErrMissingParameter is returned by the typed getters when a parameter does not exist.
var ErrMissingParameter = errors.New("parameter not found")

// ErrMalformedArray is returned when a bracketed numeric list cannot be parsed.
var ErrMalformedArray = errors.New("malformed numeric list")

// Parameter is a single named value.
type Parameter struct {
	Name  string
	Type  Type
	Value string
}

type itemKind int

const (
	parameterItem itemKind = iota
	sublistItem
	commentItem
)

type item struct {
	kind    itemKind
	param   *Parameter
	sublist *List
	comment string
}

// List is an ordered, named collection of parameters, sublists and comments.
type List struct {
	Name  string
	items []item
}

// New returns an empty list with the given name.
func New(name string) *List {
	return &List{Name: name}
}

// IsParameter reports whether a parameter with the given name exists directly in the list.
func (l *List) IsParameter(name string) bool {
	_, ok := l.Parameter(name)
	return ok
}

// IsSublist reports whether a sublist with the given name exists directly in the list.
func (l *List) IsSublist(name string) bool {
	_, ok := l.Sublist(name)
	return ok
}

// Parameter returns the named parameter.
func (l *List) Parameter(name string) (*Parameter, bool) {
	for _, it := range l.items {
		if it.kind == parameterItem && it.param.Name == name {
			return it.param, true
		}
	}
	return nil, false
}

// Sublist returns the named sublist.
func (l *List) Sublist(name string) (*List, bool) {
	for _, it := range l.items {
		if it.kind == sublistItem && it.sublist.Name == name {
			return it.sublist, true
		}
	}
	return nil, false
}

// Parameters returns the parameters of the list in document order.
func (l *List) Parameters() []Parameter {
	var params []Parameter
	for _, it := range l.items {
		if it.kind == parameterItem {
			params = append(params, *it.param)
		}
	}
	return params
}

// Sublists returns the sublists in document order.
func (l *List) Sublists() []*List {
	var lists []*List
	for _, it := range l.items {
		if it.kind == sublistItem {
			lists = append(lists, it.sublist)
		}
	}
	return lists
}

func (l *List) lookup(name string) (*Parameter, error) {
	p, ok := l.Parameter(name)
	if !ok {
		return nil, errors.Wrapf(ErrMissingParameter, "%q", name)
	}
	return p, nil
}

// String returns the raw text of the named parameter.
func (l *List) String(name string) (string, error) {
	p, err := l.lookup(name)
	if err != nil {
		return "", err
	}
	return p.Value, nil
}

// Float returns the named parameter as a float64.
func (l *List) Float(name string) (float64, error) {
	p, err := l.lookup(name)
	if err != nil {
		return 0, err
	}
	v, err := cast.ToFloat64E(strings.TrimSpace(p.Value))
	if err != nil {
		return 0, errors.Wrapf(err, "parameter %q", name)
	}
	return v, nil
}

// Int returns the named parameter as a base 10 int. Leading zeros do not select octal.
func (l *List) Int(name string) (int, error) {
	p, err := l.lookup(name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(p.Value))
	if err != nil {
		return 0, errors.Wrapf(err, "parameter %q", name)
	}
	return v, nil
}

// Bool returns the named parameter as a bool.
func (l *List) Bool(name string) (bool, error) {
	p, err := l.lookup(name)
	if err != nil {
		return false, err
	}
	v, err := cast.ToBoolE(strings.TrimSpace(p.Value))
	if err != nil {
		return false, errors.Wrapf(err, "parameter %q", name)
	}
	return v, nil
}

// FloatArray parses the named parameter as a bracketed numeric list.
func (l *List) FloatArray(name string) ([]float64, error) {
	p, err := l.lookup(name)
	if err != nil {
		return nil, err
	}
	values, err := ParseFloatArray(p.Value)
	if err != nil {
		return nil, errors.Wrapf(err, "parameter %q", name)
	}
	return values, nil
}

// ParseFloatArray parses text of the form "{ 1, 2.5, -3e2 }". The braces are required,
// "{}" is the empty list and every comma separated element must be a number.
func ParseFloatArray(text string) ([]float64, error) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 2 || trimmed[0] != '{' || trimmed[len(trimmed)-1] != '}' {
		return nil, errors.Wrapf(ErrMalformedArray, "%q is not enclosed in braces", text)
	}
	body := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
	if body == "" {
		return []float64{}, nil
	}
	fields := strings.Split(body, ",")
	values := make([]float64, len(fields))
	for i, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			return nil, errors.Wrapf(ErrMalformedArray, "empty element %d in %q", i, text)
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedArray, "element %d in %q: %v", i, text, err)
		}
		values[i] = v
	}
	return values, nil
}

// FormatFloatArray is the inverse of ParseFloatArray.
func FormatFloatArray(values []float64) string {
	if len(values) == 0 {
		return "{}"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = FormatFloat(v)
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// FormatFloat renders v with the fewest digits that parse back to the same value.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (l *List) set(name string, typ Type, value string) {
	if p, ok := l.Parameter(name); ok {
		p.Type = typ
		p.Value = value
		return
	}
	l.items = append(l.items, item{kind: parameterItem, param: &Parameter{Name: name, Type: typ, Value: value}})
}

// SetString sets (or replaces) a string parameter.
func (l *List) SetString(name, value string) {
	l.set(name, TypeString, value)
}

// SetFloat sets (or replaces) a double parameter.
func (l *List) SetFloat(name string, value float64) {
	l.set(name, TypeDouble, FormatFloat(value))
}

// SetInt sets (or replaces) an int parameter.
func (l *List) SetInt(name string, value int) {
	l.set(name, TypeInt, strconv.Itoa(value))
}

// SetBool sets (or replaces) a bool parameter.
func (l *List) SetBool(name string, value bool) {
	l.set(name, TypeBool, strconv.FormatBool(value))
}

// AddSublist returns the named sublist, appending a new one if it does not exist yet.
func (l *List) AddSublist(name string) *List {
	if sub, ok := l.Sublist(name); ok {
		return sub
	}
	sub := New(name)
	l.items = append(l.items, item{kind: sublistItem, sublist: sub})
	return sub
}

// AddComment appends a comment that is emitted at the current position when writing.
func (l *List) AddComment(text string) {
	l.items = append(l.items, item{kind: commentItem, comment: text})
}
