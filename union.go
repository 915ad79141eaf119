package fixcol

import (
	"bufio"
	"io"
	"reflect"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// A Union routes lines of a file that mixes several record shapes. The first
// keyWidth bytes of every line are an exact-match discriminator selecting
// one of the registered variants; the rest of the line is the variant's
// payload.
//
// Variants are registered once, up front, and the Union is read-only
// afterwards; it may be shared between any number of decoders. Registration
// mistakes (wrong key length, duplicate keys, duplicate Go types) are
// programmer errors and panic.
//
// The Go binding of a variant is its registered concrete type: Struct
// variants decode into a struct of tagged fields (tuple shapes are structs
// too), Unit variants produce the registered value itself, and Embed
// variants hand the whole remainder of the line to a nested type with its
// own schema.
type Union struct {
	keyWidth int
	variants []*variantSpec
	byKey    map[string]*variantSpec
}

type variantShape int

const (
	shapeStruct variantShape = iota
	shapeUnit
	shapeEmbedded
)

type variantSpec struct {
	key    string
	shape  variantShape
	typ    reflect.Type
	strict strictMode
	unit   reflect.Value
	nested *Union // set for Embed variants wrapping another Union
}

// A VariantOption adjusts a single variant at registration time.
type VariantOption func(*variantSpec)

// WithStrict forces the strict setting for every field of a variant. Field
// level strict tag parameters still win over it.
func WithStrict(strict bool) VariantOption {
	return func(vs *variantSpec) {
		if strict {
			vs.strict = strictOn
		} else {
			vs.strict = strictOff
		}
	}
}

// NewUnion creates a Union whose variant keys are exactly keyWidth bytes.
func NewUnion(keyWidth int) *Union {
	if keyWidth <= 0 {
		panic(errors.Errorf("fixcol: union key width must be positive, got %d", keyWidth))
	}
	return &Union{
		keyWidth: keyWidth,
		byKey:    make(map[string]*variantSpec),
	}
}

// Struct registers a variant whose payload is a record of tagged fields.
// prototype supplies the variant's concrete type, e.g. Star{}.
func (u *Union) Struct(key string, prototype interface{}, opts ...VariantOption) *Union {
	t := indirectType(reflect.TypeOf(prototype))
	if t.Kind() != reflect.Struct {
		panic(errors.Errorf("fixcol: struct variant %q requires a struct prototype, got %s", key, t))
	}
	u.register(&variantSpec{key: key, shape: shapeStruct, typ: t}, opts)
	return u
}

// Unit registers a variant with no payload; decoding a matching line yields
// value itself.
func (u *Union) Unit(key string, value interface{}, opts ...VariantOption) *Union {
	rv := reflect.ValueOf(value)
	u.register(&variantSpec{key: key, shape: shapeUnit, typ: rv.Type(), unit: rv}, opts)
	return u
}

// Embed registers a variant whose payload is decoded wholesale by a nested
// type's own schema: everything after the key is handed to the nested
// decoder as if it owned the whole line. prototype is either a struct or
// another *Union.
func (u *Union) Embed(key string, prototype interface{}, opts ...VariantOption) *Union {
	if nested, ok := prototype.(*Union); ok {
		u.register(&variantSpec{key: key, shape: shapeEmbedded, nested: nested}, opts)
		return u
	}
	t := indirectType(reflect.TypeOf(prototype))
	if t.Kind() != reflect.Struct {
		panic(errors.Errorf("fixcol: embedded variant %q requires a struct or *Union prototype, got %s", key, t))
	}
	u.register(&variantSpec{key: key, shape: shapeEmbedded, typ: t}, opts)
	return u
}

func (u *Union) register(vs *variantSpec, opts []VariantOption) {
	if len(vs.key) != u.keyWidth {
		panic(errors.Errorf("fixcol: variant key %q must be exactly %d bytes", vs.key, u.keyWidth))
	}
	if _, ok := u.byKey[vs.key]; ok {
		panic(errors.Errorf("fixcol: duplicate variant key %q", vs.key))
	}
	if vs.typ != nil {
		for _, other := range u.variants {
			if other.typ == vs.typ {
				panic(errors.Errorf("fixcol: variant type %s already registered under key %q", vs.typ, other.key))
			}
		}
	}
	for _, opt := range opts {
		opt(vs)
	}
	u.variants = append(u.variants, vs)
	u.byKey[vs.key] = vs
}

func indirectType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// Decode decodes a single line, returning the value of whichever variant
// its key selects.
func (u *Union) Decode(line []byte) (interface{}, error) {
	return u.decodeLine(line, false)
}

func (u *Union) decodeLine(line []byte, defaultStrict bool) (interface{}, error) {
	if !utf8.Valid(line) {
		return nil, newEncodingError(line)
	}
	if len(line) < u.keyWidth {
		return nil, errors.Wrap(io.ErrUnexpectedEOF, "fixcol: line shorter than the variant key")
	}

	// The key is matched exactly: no trimming, no alignment.
	key := string(line[:u.keyWidth])
	vs, ok := u.byKey[key]
	if !ok {
		return nil, newDataError(key, ErrUnknownKey)
	}
	rest := line[u.keyWidth:]
	strict := vs.strict.resolve(defaultStrict)

	switch vs.shape {
	case shapeUnit:
		return vs.unit.Interface(), nil
	case shapeEmbedded:
		if vs.nested != nil {
			return vs.nested.decodeLine(rest, strict)
		}
		fallthrough
	default:
		nv := reflect.New(vs.typ).Elem()
		ss, err := cachedStructSpec(vs.typ, strict)
		if err != nil {
			return nil, err
		}
		if err := ss.decode(nv, rest); err != nil {
			return nil, err
		}
		return nv.Interface(), nil
	}
}

// Encode writes the fixed-column encoding of v: the variant's key followed
// by its payload. Unit variants write the key alone. No newline is written.
func (u *Union) Encode(w io.Writer, v interface{}) error {
	return u.encodeLine(w, reflect.ValueOf(v), false)
}

// EncodeAll writes one newline-terminated record per value.
func (u *Union) EncodeAll(w io.Writer, values ...interface{}) (err error) {
	bw := bufio.NewWriter(w)
	defer func() {
		ferr := bw.Flush()
		if err == nil && ferr != nil {
			err = errors.Wrap(ferr, "fixcol: write")
		}
	}()

	for _, v := range values {
		if err := u.encodeLine(bw, reflect.ValueOf(v), false); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return errors.Wrap(err, "fixcol: write")
		}
	}
	return nil
}

func (u *Union) encodeLine(w io.Writer, v reflect.Value, defaultStrict bool) error {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	vs := u.lookupType(v.Type())
	if vs == nil {
		return &MarshalInvalidTypeError{typeName: v.Type().String()}
	}
	if _, err := io.WriteString(w, vs.key); err != nil {
		return errors.Wrap(err, "fixcol: write")
	}
	strict := vs.strict.resolve(defaultStrict)

	switch vs.shape {
	case shapeUnit:
		return nil
	case shapeEmbedded:
		if vs.nested != nil {
			return vs.nested.encodeLine(w, v, strict)
		}
		fallthrough
	default:
		ss, err := cachedStructSpec(vs.typ, strict)
		if err != nil {
			return err
		}
		return ss.encode(w, v)
	}
}

// lookupType finds the variant registered for t, looking through embedded
// unions so that a nested union's value can be encoded from the outer one.
func (u *Union) lookupType(t reflect.Type) *variantSpec {
	for _, vs := range u.variants {
		if vs.typ == t {
			return vs
		}
	}
	for _, vs := range u.variants {
		if vs.nested != nil && vs.nested.lookupType(t) != nil {
			return vs
		}
	}
	return nil
}

// A UnionDecoder reads mixed-shape records from an input stream, one line
// at a time.
type UnionDecoder struct {
	u      *Union
	lr     lineReader
	strict bool
}

// NewDecoder returns a decoder that routes every line of r through the
// union.
func (u *Union) NewDecoder(r io.Reader) *UnionDecoder {
	return &UnionDecoder{u: u, lr: newLineReader(r)}
}

// SetStrict sets the stream-level strict default. Variant and field level
// settings override it. SetStrict must be called before the first decode.
func (d *UnionDecoder) SetStrict(strict bool) {
	d.strict = strict
}

// Next decodes the next line of the stream. It returns io.EOF when the
// stream is exhausted. The error contract matches Decoder.Next: malformed
// lines yield a *DataError with the line number filled in and decoding
// continues; only a read failure on the underlying stream is terminal, and
// it is returned once before the sequence ends.
func (d *UnionDecoder) Next() (interface{}, error) {
	line, err := d.lr.next()
	if err != nil {
		return nil, err
	}
	v, err := d.u.decodeLine(line, d.strict)
	if err != nil {
		return nil, d.lr.attribute(err)
	}
	return v, nil
}

// Decode reads the remainder of the stream, aborting on the first failed
// line.
func (d *UnionDecoder) Decode() ([]interface{}, error) {
	var out []interface{}
	for {
		v, err := d.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
}
