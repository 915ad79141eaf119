package fixcol

import (
	"bufio"
	"bytes"
	"encoding"
	"io"
	"reflect"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Unmarshal parses fixed-column encoded data and stores the result in the
// value pointed to by v. If v points to a struct, a single line is decoded;
// if v points to a slice of structs, every line is decoded. If v is nil or
// not a pointer, Unmarshal returns an InvalidUnmarshalError.
func Unmarshal(data []byte, v interface{}) error {
	return NewDecoder(bytes.NewReader(data)).Decode(v)
}

// An InvalidUnmarshalError describes an invalid argument passed to Unmarshal.
// (The argument to Unmarshal must be a non-nil pointer.)
type InvalidUnmarshalError struct {
	Type reflect.Type
}

func (e *InvalidUnmarshalError) Error() string {
	if e.Type == nil {
		return "fixcol: Unmarshal(nil)"
	}
	if e.Type.Kind() != reflect.Ptr {
		return "fixcol: Unmarshal(non-pointer " + e.Type.String() + ")"
	}
	return "fixcol: Unmarshal(nil " + e.Type.String() + ")"
}

// lineReader is the shared line-iteration state of Decoder and UnionDecoder:
// a 1-based line counter and a failed flag. Once the underlying stream has
// reported an error that error is surfaced exactly once; afterwards the
// reader is exhausted.
type lineReader struct {
	r      *bufio.Reader
	line   int
	failed bool
	done   bool
}

func newLineReader(r io.Reader) lineReader {
	return lineReader{r: bufio.NewReader(r)}
}

// next returns the next line with its terminator ("\n" or "\r\n") stripped.
// Lines may be arbitrarily long.
func (lr *lineReader) next() ([]byte, error) {
	if lr.failed || lr.done {
		return nil, io.EOF
	}
	line, err := lr.r.ReadBytes('\n')
	switch {
	case err == io.EOF:
		lr.done = true
		if len(line) == 0 {
			return nil, io.EOF
		}
	case err != nil:
		lr.failed = true
		return nil, errors.Wrap(err, "fixcol: read")
	}
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	lr.line++
	return line, nil
}

// attribute stamps the current line number onto DataErrors. Every other
// error kind passes through unmodified.
func (lr *lineReader) attribute(err error) error {
	var de *DataError
	if errors.As(err, &de) {
		return de.withLine(lr.line)
	}
	return err
}

// A Decoder reads and decodes fixed-column records from an input stream.
type Decoder struct {
	lr     lineReader
	strict bool
}

// NewDecoder returns a new decoder that reads from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{lr: newLineReader(r)}
}

// SetStrict sets the stream-level strict default. Field-level strict tag
// parameters override it. SetStrict must be called before the first decode.
func (d *Decoder) SetStrict(strict bool) {
	d.strict = strict
}

// Decode reads from its input and stores the decoded data in the value
// pointed to by v.
//
// In the case that v points to a struct value, Decode reads a single line
// from the input. If there is no data remaining, it returns io.EOF.
//
// In the case that v points to a slice value, Decode reads until the end of
// its input and aborts on the first failed line.
func (d *Decoder) Decode(v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return &InvalidUnmarshalError{reflect.TypeOf(v)}
	}
	if rv.Elem().Kind() == reflect.Slice {
		return d.decodeAll(rv.Elem())
	}
	return d.Next(v)
}

// Next decodes the next line of the stream into the struct pointed to by v.
// It returns io.EOF when the stream is exhausted.
//
// A malformed line yields a *DataError carrying that line's number; the
// decoder stays usable and the following call moves on to the next line. A
// line whose contents run out inside a required field window yields
// io.ErrUnexpectedEOF and likewise only fails that line. Only a read failure
// on the underlying stream is terminal: it is returned once, after which
// Next reports io.EOF.
func (d *Decoder) Next(v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return &InvalidUnmarshalError{reflect.TypeOf(v)}
	}
	ev := rv.Elem()
	if ev.Kind() != reflect.Struct {
		return errors.Errorf("fixcol: cannot decode into %s", ev.Type())
	}

	line, err := d.lr.next()
	if err != nil {
		return err
	}
	if !utf8.Valid(line) {
		return d.lr.attribute(newEncodingError(line))
	}
	ss, err := cachedStructSpec(ev.Type(), d.strict)
	if err != nil {
		return err
	}
	if err := ss.decode(ev, line); err != nil {
		return d.lr.attribute(err)
	}
	return nil
}

func (d *Decoder) decodeAll(v reflect.Value) error {
	ct := v.Type().Elem()
	for {
		nv := reflect.New(ct)
		err := d.Next(nv.Interface())
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		v.Set(reflect.Append(v, nv.Elem()))
	}
}

// decode applies the scalar codec across the field list in declared order.
// Every field except a lenient final one requires the line to supply its
// full skip+width window; the lenient final field takes whatever bytes
// remain, including none.
func (ss structSpec) decode(v reflect.Value, line []byte) error {
	off := 0
	for i := range ss.fields {
		fs := &ss.fields[i]
		need := fs.desc.Skip + fs.desc.Width

		var src []byte
		if off < len(line) {
			src = line[off:]
		}
		if len(src) < need {
			if i != len(ss.fields)-1 || fs.desc.Strict {
				return errors.Wrapf(io.ErrUnexpectedEOF, "fixcol: line ends inside field %s", fs.name)
			}
		} else {
			src = src[:need]
		}

		if err := fs.decode(v.Field(fs.index), src); err != nil {
			return err
		}
		off += need
	}
	return nil
}

// decode runs one field's window through the scalar codec: skip validation,
// window extraction, alignment trimming, numeric width validation, and the
// type-specific parse.
func (fs *fieldSpec) decode(v reflect.Value, src []byte) error {
	desc := fs.desc

	skip := desc.Skip
	if skip > len(src) {
		skip = len(src)
	}
	if desc.Strict && skip > 0 && len(bytes.TrimSpace(src[:skip])) != 0 {
		return newDataError(string(src), ErrWhitespace)
	}

	end := desc.Skip + desc.Width
	if end > len(src) {
		end = len(src)
	}
	window := src[skip:end]
	trimmed := fs.trim(window)

	if fs.numeric && desc.Strict && desc.Align == Full && len(trimmed) != desc.Width {
		return newDataError(string(trimmed), ErrWidthMismatch)
	}

	return fs.setter(v, trimmed, desc)
}

// trim applies the alignment rule to a field window. Numeric fields outside
// strict mode trim both sides; everything else trims only the padded side,
// and Full windows are never trimmed.
func (fs *fieldSpec) trim(window []byte) []byte {
	if fs.numeric && !fs.desc.Strict {
		return bytes.TrimFunc(window, unicode.IsSpace)
	}
	switch fs.desc.Align {
	case Right:
		return bytes.TrimLeftFunc(window, unicode.IsSpace)
	case Full:
		return window
	default:
		return bytes.TrimRightFunc(window, unicode.IsSpace)
	}
}

// A valueSetter stores the decoded form of a trimmed field window in v.
type valueSetter func(v reflect.Value, trimmed []byte, desc FieldDescriptor) error

var (
	unmarshalerType     = reflect.TypeOf(new(Unmarshaler)).Elem()
	textUnmarshalerType = reflect.TypeOf(new(encoding.TextUnmarshaler)).Elem()
)

func newValueSetter(t reflect.Type) valueSetter {
	if t.Implements(unmarshalerType) {
		return unmarshalerSetter(t, false)
	}
	if reflect.PtrTo(t).Implements(unmarshalerType) {
		return unmarshalerSetter(t, true)
	}
	if t.Implements(textUnmarshalerType) {
		return textUnmarshalerSetter(t, false)
	}
	if reflect.PtrTo(t).Implements(textUnmarshalerType) {
		return textUnmarshalerSetter(t, true)
	}

	switch t.Kind() {
	case reflect.Ptr:
		return ptrSetter(t)
	case reflect.Interface:
		return interfaceSetter
	case reflect.Struct:
		return structSetter(t)
	case reflect.String:
		return stringSetter
	case reflect.Int, reflect.Int64, reflect.Int32, reflect.Int16, reflect.Int8:
		return intSetter
	case reflect.Uint, reflect.Uint64, reflect.Uint32, reflect.Uint16, reflect.Uint8:
		return uintSetter
	case reflect.Float32, reflect.Float64:
		return floatSetter
	case reflect.Bool:
		return boolSetter
	}
	return unknownSetter(t)
}

func unmarshalerSetter(t reflect.Type, shouldAddr bool) valueSetter {
	return func(v reflect.Value, trimmed []byte, _ FieldDescriptor) error {
		if shouldAddr {
			v = v.Addr()
		}
		if t.Kind() == reflect.Ptr && v.IsNil() {
			v.Set(reflect.New(t.Elem()))
		}
		return v.Interface().(Unmarshaler).UnmarshalFixedColumn(trimmed)
	}
}

func textUnmarshalerSetter(t reflect.Type, shouldAddr bool) valueSetter {
	return func(v reflect.Value, trimmed []byte, _ FieldDescriptor) error {
		if shouldAddr {
			v = v.Addr()
		}
		if t.Kind() == reflect.Ptr && v.IsNil() {
			v.Set(reflect.New(t.Elem()))
		}
		if err := v.Interface().(encoding.TextUnmarshaler).UnmarshalText(trimmed); err != nil {
			return newDataError(string(trimmed), err)
		}
		return nil
	}
}

// ptrSetter implements optional-field semantics: an empty trimmed window
// decodes to nil, anything else decodes through the pointed-to type.
func ptrSetter(t reflect.Type) valueSetter {
	return func(v reflect.Value, trimmed []byte, desc FieldDescriptor) error {
		if len(trimmed) == 0 {
			v.Set(reflect.Zero(t))
			return nil
		}
		if v.IsNil() {
			v.Set(reflect.New(t.Elem()))
		}
		return newValueSetter(t.Elem())(reflect.Indirect(v), trimmed, desc)
	}
}

func interfaceSetter(v reflect.Value, trimmed []byte, desc FieldDescriptor) error {
	return newValueSetter(v.Elem().Type())(v.Elem(), trimmed, desc)
}

// structSetter decodes a nested record from its field window. The window is
// an in-memory slice, so an I/O class failure inside the recursion can only
// mean the schema and the data disagree about the sub-row's length in a way
// the caller cannot handle; it is treated as a programming error.
func structSetter(t reflect.Type) valueSetter {
	return func(v reflect.Value, trimmed []byte, desc FieldDescriptor) error {
		ss, err := cachedStructSpec(t, desc.Strict)
		if err != nil {
			return err
		}
		if err := ss.decode(v, trimmed); err != nil {
			if !IsDataError(err) {
				panic(errors.Wrapf(err, "fixcol: i/o error decoding in-memory record %s", t))
			}
			return err
		}
		return nil
	}
}

func stringSetter(v reflect.Value, trimmed []byte, _ FieldDescriptor) error {
	v.SetString(string(trimmed))
	return nil
}

func intSetter(v reflect.Value, trimmed []byte, _ FieldDescriptor) error {
	i, err := strconv.ParseInt(string(trimmed), 10, v.Type().Bits())
	if err != nil {
		return newDataError(string(trimmed), err)
	}
	v.SetInt(i)
	return nil
}

func uintSetter(v reflect.Value, trimmed []byte, _ FieldDescriptor) error {
	u, err := strconv.ParseUint(string(trimmed), 10, v.Type().Bits())
	if err != nil {
		return newDataError(string(trimmed), err)
	}
	v.SetUint(u)
	return nil
}

func floatSetter(v reflect.Value, trimmed []byte, _ FieldDescriptor) error {
	f, err := strconv.ParseFloat(string(trimmed), v.Type().Bits())
	if err != nil {
		return newDataError(string(trimmed), err)
	}
	v.SetFloat(f)
	return nil
}

func boolSetter(v reflect.Value, trimmed []byte, _ FieldDescriptor) error {
	b, err := strconv.ParseBool(string(trimmed))
	if err != nil {
		return newDataError(string(trimmed), err)
	}
	v.SetBool(b)
	return nil
}

func unknownSetter(t reflect.Type) valueSetter {
	return func(reflect.Value, []byte, FieldDescriptor) error {
		return errors.Errorf("fixcol: cannot decode into unknown type %s", t)
	}
}
