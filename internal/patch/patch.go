// Package patch applies JSON-Patch style partial updates to flat input
// DTOs through a per-type field map, then re-validates the result.
//
// Per-operation failures are accumulated rather than aborting the
// sequence, so a client gets every actionable error in one response.
// Structural problems (missing op/path/from) and restricted-path hits
// abort before any mutation is attempted.
package patch

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Supported operation names.
const (
	OpAdd     = "add"
	OpRemove  = "remove"
	OpReplace = "replace"
	OpMove    = "move"
	OpCopy    = "copy"
	OpTest    = "test"
)

const errorKey = "JSON Patch"

// Operation is one partial-update step.
type Operation struct {
	// Op names the operation: add, remove, replace, move, copy, or test.
	Op string `json:"op"`

	// Path locates the target field, e.g. "/content".
	Path string `json:"path"`

	// From locates the source field for move and copy operations.
	From string `json:"from,omitempty"`

	// Value is the raw JSON value for add, replace, and test operations.
	Value json.RawMessage `json:"value,omitempty"`
}

// Document is an ordered sequence of operations.
type Document []Operation

// Validator matches input DTOs that can check their field constraints.
type Validator interface {
	Validate() map[string]string
}

// Apply runs the document against the target in order, rejects edits to
// restricted path segments, and validates the resulting object. It
// returns nil on success, otherwise a map of field- or category-scoped
// messages covering every failure found.
func Apply[T Validator](doc Document, target *T, restricted ...string) map[string]string {
	errs := map[string]string{}

	if !preValidate(doc, errs) {
		return errs
	}
	if seg := restrictedSegment(doc, restricted); seg != "" {
		errs[errorKey] = fmt.Sprintf("The target location specified by path segment '%s' is immutable.", seg)
		return errs
	}

	fields := fieldsOf(reflect.TypeOf(*target))
	value := reflect.ValueOf(target).Elem()
	for _, op := range doc {
		applyOperation(fields, value, op, errs)
	}

	for field, message := range (*target).Validate() {
		record(errs, field, message)
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// preValidate checks the document's structure before anything mutates.
func preValidate(doc Document, errs map[string]string) bool {
	for _, op := range doc {
		if strings.TrimSpace(op.Op) == "" || strings.TrimSpace(op.Path) == "" {
			errs[errorKey] = "All operations must have valid 'op' and 'path' values."
			return false
		}
	}
	for _, op := range doc {
		kind := strings.ToLower(op.Op)
		if (kind == OpMove || kind == OpCopy) && strings.TrimSpace(op.From) == "" {
			errs[errorKey] = "Move and copy operations must have a valid 'from' value."
			return false
		}
	}
	return true
}

// restrictedSegment returns the first path segment of any non-test
// operation that case-insensitively matches a restricted name.
func restrictedSegment(doc Document, restricted []string) string {
	for _, op := range doc {
		if strings.EqualFold(op.Op, OpTest) {
			continue
		}
		seg := firstSegment(op.Path)
		for _, name := range restricted {
			if strings.EqualFold(seg, name) {
				return seg
			}
		}
	}
	return ""
}

func applyOperation(fields map[string]int, value reflect.Value, op Operation, errs map[string]string) {
	seg := firstSegment(op.Path)

	switch strings.ToLower(op.Op) {
	case OpAdd, OpReplace:
		if op.Value == nil {
			record(errs, seg, fmt.Sprintf("The '%s' operation requires a 'value'.", strings.ToLower(op.Op)))
			return
		}
		setField(fields, value, seg, op.Value, errs)

	case OpRemove:
		idx, ok := resolve(fields, seg, op.Path, errs)
		if !ok {
			return
		}
		value.Field(idx).SetZero()

	case OpMove:
		raw, ok := readField(fields, value, op.From, errs)
		if !ok {
			return
		}
		if !setField(fields, value, seg, raw, errs) {
			return
		}
		fromIdx, ok := resolve(fields, firstSegment(op.From), op.From, errs)
		if !ok {
			return
		}
		value.Field(fromIdx).SetZero()

	case OpCopy:
		raw, ok := readField(fields, value, op.From, errs)
		if !ok {
			return
		}
		setField(fields, value, seg, raw, errs)

	case OpTest:
		raw, ok := readField(fields, value, op.Path, errs)
		if !ok {
			return
		}
		if !jsonEqual(raw, op.Value) {
			record(errs, seg, "The current value does not match the 'test' value.")
		}

	default:
		record(errs, seg, fmt.Sprintf("Unsupported operation '%s'.", op.Op))
	}
}

func resolve(fields map[string]int, seg, path string, errs map[string]string) (int, bool) {
	idx, ok := fields[strings.ToLower(seg)]
	if !ok {
		record(errs, seg, fmt.Sprintf("The target location specified by path '%s' was not found.", path))
		return 0, false
	}
	return idx, true
}

func setField(fields map[string]int, value reflect.Value, seg string, raw json.RawMessage, errs map[string]string) bool {
	idx, ok := resolve(fields, seg, "/"+seg, errs)
	if !ok {
		return false
	}
	field := value.Field(idx)
	field.SetZero()
	if err := json.Unmarshal(raw, field.Addr().Interface()); err != nil {
		record(errs, seg, "The value could not be converted to the target field's type.")
		return false
	}
	return true
}

func readField(fields map[string]int, value reflect.Value, path string, errs map[string]string) (json.RawMessage, bool) {
	seg := firstSegment(path)
	idx, ok := resolve(fields, seg, path, errs)
	if !ok {
		return nil, false
	}
	raw, err := json.Marshal(value.Field(idx).Interface())
	if err != nil {
		record(errs, seg, "The current value could not be read.")
		return nil, false
	}
	return raw, true
}

func jsonEqual(a, b json.RawMessage) bool {
	var left, right any
	if err := json.Unmarshal(a, &left); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &right); err != nil {
		return false
	}
	return reflect.DeepEqual(left, right)
}

// record keeps the first message reported for a key.
func record(errs map[string]string, key, message string) {
	if _, taken := errs[key]; !taken {
		errs[key] = message
	}
}

func firstSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}

var fieldCache sync.Map // reflect.Type -> map[string]int

// fieldsOf maps lowercased JSON names to struct field indices, built once
// per DTO type.
func fieldsOf(t reflect.Type) map[string]int {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.(map[string]int)
	}

	fields := map[string]int{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		fields[strings.ToLower(name)] = i
	}

	fieldCache.Store(t, fields)
	return fields
}
