package fixcol

import (
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

const tagKey = "fixcol"

// strictMode is the tri-state strict declaration on a tag or union variant:
// inherit from the enclosing level, force on, or force off. Innermost wins.
type strictMode int

const (
	strictInherit strictMode = iota
	strictOn
	strictOff
)

func (m strictMode) resolve(inherited bool) bool {
	switch m {
	case strictOn:
		return true
	case strictOff:
		return false
	default:
		return inherited
	}
}

type tagOpts struct {
	width   int
	skip    int
	align   Alignment
	strict  strictMode
	ignored bool
}

// parseTag parses a fixcol struct tag of the form
// "width=5,skip=1,align=right,strict". A bare "strict" means strict=true.
// The align default is left for scalar fields and full for nested records;
// it is applied by buildStructSpec, not here.
func parseTag(tag string) (tagOpts, error) {
	if tag == "-" {
		return tagOpts{ignored: true}, nil
	}

	var opts tagOpts
	for _, part := range strings.Split(tag, ",") {
		key, value, hasValue := strings.Cut(part, "=")
		switch key {
		case "width":
			w, err := strconv.Atoi(value)
			if err != nil || w <= 0 {
				return tagOpts{}, errors.Errorf("width must be a positive integer, got %q", value)
			}
			opts.width = w
		case "skip":
			s, err := strconv.Atoi(value)
			if err != nil || s < 0 {
				return tagOpts{}, errors.Errorf("skip must be a non-negative integer, got %q", value)
			}
			opts.skip = s
		case "align":
			a := Alignment(value)
			if !a.valid() {
				return tagOpts{}, errors.Errorf("align must be left, right, or full, got %q", value)
			}
			opts.align = a
		case "strict":
			if !hasValue {
				opts.strict = strictOn
				break
			}
			b, err := strconv.ParseBool(value)
			if err != nil {
				return tagOpts{}, errors.Errorf("strict must be a boolean, got %q", value)
			}
			if b {
				opts.strict = strictOn
			} else {
				opts.strict = strictOff
			}
		default:
			return tagOpts{}, errors.Errorf("unknown parameter %q", part)
		}
	}

	if opts.width == 0 {
		return tagOpts{}, errors.New("missing required width parameter")
	}
	return opts, nil
}

// fieldSpec carries everything needed to decode or encode one struct field:
// its resolved descriptor and the setter/encoder for its Go type.
type fieldSpec struct {
	name    string
	index   int
	desc    FieldDescriptor
	numeric bool
	setter  valueSetter
	encoder valueEncoder
}

type structSpec struct {
	fields []fieldSpec
}

// buildStructSpec compiles the ordered field list for t. Fields without a
// fixcol tag are ignored. defaultStrict is the strict setting inherited from
// the enclosing level (stream or union variant); a field-level strict
// parameter overrides it.
func buildStructSpec(t reflect.Type, defaultStrict bool) (structSpec, error) {
	var ss structSpec
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag, ok := f.Tag.Lookup(tagKey)
		if !ok {
			continue
		}
		opts, err := parseTag(tag)
		if err != nil {
			return structSpec{}, errors.Wrapf(err, "fixcol: field %s.%s", t.Name(), f.Name)
		}
		if opts.ignored {
			continue
		}

		desc := FieldDescriptor{
			Skip:   opts.skip,
			Width:  opts.width,
			Align:  opts.align,
			Strict: opts.strict.resolve(defaultStrict),
		}
		if desc.Align == "" {
			if isRecordType(f.Type) {
				desc.Align = Full
			} else {
				desc.Align = Left
			}
		}

		ss.fields = append(ss.fields, fieldSpec{
			name:    f.Name,
			index:   i,
			desc:    desc,
			numeric: isNumericType(f.Type),
			setter:  newValueSetter(f.Type),
			encoder: newValueEncoder(f.Type),
		})
	}
	return ss, nil
}

type specKey struct {
	t      reflect.Type
	strict bool
}

var specCache sync.Map // map[specKey]structSpec

// cachedStructSpec is like buildStructSpec but cached to prevent duplicate
// work. The strict default is part of the key because it is resolved into
// the descriptors at build time.
func cachedStructSpec(t reflect.Type, defaultStrict bool) (structSpec, error) {
	key := specKey{t, defaultStrict}
	if s, ok := specCache.Load(key); ok {
		return s.(structSpec), nil
	}
	ss, err := buildStructSpec(t, defaultStrict)
	if err != nil {
		return structSpec{}, err
	}
	s, _ := specCache.LoadOrStore(key, ss)
	return s.(structSpec), nil
}

// isRecordType reports whether t decodes as a nested record rather than a
// scalar. Types with their own Unmarshaler or TextUnmarshaler implementation
// are scalars regardless of kind.
func isRecordType(t reflect.Type) bool {
	if t.Implements(unmarshalerType) || reflect.PtrTo(t).Implements(unmarshalerType) {
		return false
	}
	if t.Implements(textUnmarshalerType) || reflect.PtrTo(t).Implements(textUnmarshalerType) {
		return false
	}
	if t.Kind() == reflect.Ptr {
		return isRecordType(t.Elem())
	}
	return t.Kind() == reflect.Struct
}

func isNumericType(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		return isNumericType(t.Elem())
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
