package fixcol

import (
	"bufio"
	"bytes"
	"encoding"
	"io"
	"reflect"
	"strconv"

	"github.com/pkg/errors"
)

// Marshal returns the fixed-column encoding of v.
//
// v must be a struct or a slice of structs; each struct is encoded to one
// newline-terminated line. Fields are rendered to their canonical text form,
// truncated or rejected when they overflow their window (depending on the
// strict setting), padded on the side selected by their alignment, and
// preceded by their skip columns.
//
// nil pointer and interface fields are encoded as an empty field. In order
// for a field type to be encodable it must be based on one of the builtin
// string, integer, float, or bool types, implement Marshaler or
// encoding.TextMarshaler, or be a nested struct of encodable fields.
func Marshal(v interface{}) ([]byte, error) {
	buff := bytes.NewBuffer(nil)
	if err := NewEncoder(buff).Encode(v); err != nil {
		return nil, err
	}
	return buff.Bytes(), nil
}

// MarshalInvalidTypeError describes an invalid type being marshaled.
type MarshalInvalidTypeError struct {
	typeName string
}

func (e *MarshalInvalidTypeError) Error() string {
	return "fixcol: cannot marshal unknown type " + e.typeName
}

// An Encoder writes fixed-column formatted records to an output stream, one
// newline-terminated line per record.
type Encoder struct {
	w      *bufio.Writer
	strict bool
}

// NewEncoder returns a new encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// SetStrict sets the stream-level strict default. Field-level strict tag
// parameters override it. SetStrict must be called before the first encode.
func (e *Encoder) SetStrict(strict bool) {
	e.strict = strict
}

// Encode writes the fixed-column encoding of v to the stream. A slice is
// encoded as one line per element. Encoding offers no rollback: bytes
// already written when a mid-record failure occurs remain in the sink.
func (e *Encoder) Encode(i interface{}) (err error) {
	defer func() {
		ferr := e.w.Flush()
		if err == nil && ferr != nil {
			err = errors.Wrap(ferr, "fixcol: write")
		}
	}()

	if i == nil {
		return nil
	}

	v := reflect.ValueOf(i)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	if v.Kind() == reflect.Slice {
		for n := 0; n < v.Len(); n++ {
			if err := e.writeLine(v.Index(n)); err != nil {
				return err
			}
		}
		return nil
	}
	return e.writeLine(v)
}

func (e *Encoder) writeLine(v reflect.Value) error {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return &MarshalInvalidTypeError{typeName: v.Type().String()}
	}
	ss, err := cachedStructSpec(v.Type(), e.strict)
	if err != nil {
		return err
	}
	if err := ss.encode(e.w, v); err != nil {
		return err
	}
	if err := e.w.WriteByte('\n'); err != nil {
		return errors.Wrap(err, "fixcol: write")
	}
	return nil
}

// encode walks the field list in declared order against a shared sink. A
// field failure aborts immediately; bytes already written stay written.
func (ss structSpec) encode(w io.Writer, v reflect.Value) error {
	for i := range ss.fields {
		fs := &ss.fields[i]
		if err := fs.encode(w, v.Field(fs.index)); err != nil {
			return err
		}
	}
	return nil
}

// encode renders one field: canonical text, strict width validation,
// truncation, padding, and the skip columns in front.
func (fs *fieldSpec) encode(w io.Writer, v reflect.Value) error {
	desc := fs.desc

	text, err := fs.encoder(v, desc)
	if err != nil {
		return err
	}

	if desc.Strict {
		if len(text) > desc.Width {
			return newDataError(string(text), ErrWidthMismatch)
		}
		if desc.Align == Full && len(text) != desc.Width {
			return newDataError(string(text), ErrWidthMismatch)
		}
	}

	// Lenient truncation keeps the most significant side: leading characters
	// for Left and Full fields, trailing characters for Right fields.
	if len(text) > desc.Width {
		if desc.Align == Right {
			text = text[len(text)-desc.Width:]
		} else {
			text = text[:desc.Width]
		}
	}
	pad := desc.Width - len(text)

	if err := writeSpaces(w, desc.Skip); err != nil {
		return err
	}
	if desc.Align == Right {
		if err := writeSpaces(w, pad); err != nil {
			return err
		}
		pad = 0
	}
	if _, err := w.Write(text); err != nil {
		return errors.Wrap(err, "fixcol: write")
	}
	return writeSpaces(w, pad)
}

var spaces = bytes.Repeat([]byte{' '}, 256)

// writeSpaces emits n blank columns. Runs longer than the shared buffer are
// written in chunks so large skips never allocate.
func writeSpaces(w io.Writer, n int) error {
	for n > 0 {
		chunk := n
		if chunk > len(spaces) {
			chunk = len(spaces)
		}
		if _, err := w.Write(spaces[:chunk]); err != nil {
			return errors.Wrap(err, "fixcol: write")
		}
		n -= chunk
	}
	return nil
}

// A valueEncoder renders a value to its canonical text form. Padding and
// truncation are handled by the caller.
type valueEncoder func(v reflect.Value, desc FieldDescriptor) ([]byte, error)

var (
	marshalerType     = reflect.TypeOf(new(Marshaler)).Elem()
	textMarshalerType = reflect.TypeOf(new(encoding.TextMarshaler)).Elem()
)

func newValueEncoder(t reflect.Type) valueEncoder {
	if t == nil {
		return nilEncoder
	}
	if t.Implements(marshalerType) {
		return marshalerEncoder
	}
	if t.Implements(textMarshalerType) {
		return textMarshalerEncoder
	}

	switch t.Kind() {
	case reflect.Ptr, reflect.Interface:
		return ptrInterfaceEncoder
	case reflect.Struct:
		return structEncoder(t)
	case reflect.String:
		return stringEncoder
	case reflect.Int, reflect.Int64, reflect.Int32, reflect.Int16, reflect.Int8:
		return intEncoder
	case reflect.Uint, reflect.Uint64, reflect.Uint32, reflect.Uint16, reflect.Uint8:
		return uintEncoder
	case reflect.Float64, reflect.Float32:
		return floatEncoder
	case reflect.Bool:
		return boolEncoder
	}
	return unknownTypeEncoder(t)
}

func marshalerEncoder(v reflect.Value, desc FieldDescriptor) ([]byte, error) {
	return v.Interface().(Marshaler).MarshalFixedColumn(desc.Width)
}

func textMarshalerEncoder(v reflect.Value, _ FieldDescriptor) ([]byte, error) {
	return v.Interface().(encoding.TextMarshaler).MarshalText()
}

func ptrInterfaceEncoder(v reflect.Value, desc FieldDescriptor) ([]byte, error) {
	if v.IsNil() {
		return nil, nil
	}
	return newValueEncoder(v.Elem().Type())(v.Elem(), desc)
}

// structEncoder renders a nested record into its own buffer so the outer
// field can validate and pad the sub-row as a single unit.
func structEncoder(t reflect.Type) valueEncoder {
	return func(v reflect.Value, desc FieldDescriptor) ([]byte, error) {
		ss, err := cachedStructSpec(t, desc.Strict)
		if err != nil {
			return nil, err
		}
		buff := bytes.NewBuffer(nil)
		if err := ss.encode(buff, v); err != nil {
			return nil, err
		}
		return buff.Bytes(), nil
	}
}

func stringEncoder(v reflect.Value, _ FieldDescriptor) ([]byte, error) {
	return []byte(v.String()), nil
}

func intEncoder(v reflect.Value, _ FieldDescriptor) ([]byte, error) {
	return strconv.AppendInt(nil, v.Int(), 10), nil
}

func uintEncoder(v reflect.Value, _ FieldDescriptor) ([]byte, error) {
	return strconv.AppendUint(nil, v.Uint(), 10), nil
}

// floatEncoder renders the shortest exact decimal form. A value that does
// not fit its window is truncated, not rounded, by the lenient overflow
// rule; strict fields reject it instead.
func floatEncoder(v reflect.Value, _ FieldDescriptor) ([]byte, error) {
	return strconv.AppendFloat(nil, v.Float(), 'f', -1, v.Type().Bits()), nil
}

func boolEncoder(v reflect.Value, _ FieldDescriptor) ([]byte, error) {
	return strconv.AppendBool(nil, v.Bool()), nil
}

func nilEncoder(reflect.Value, FieldDescriptor) ([]byte, error) {
	return nil, nil
}

func unknownTypeEncoder(t reflect.Type) valueEncoder {
	return func(reflect.Value, FieldDescriptor) ([]byte, error) {
		return nil, &MarshalInvalidTypeError{typeName: t.Name()}
	}
}
