// Package fixcol provides encoding and decoding for fixed-column formatted
// data: text records where every field occupies a statically known byte range
// (a leading skip plus a width) with no delimiters between fields.
//
// Field layout is declared with struct tags. The tag key is "fixcol" and the
// value is a comma separated list of key=value parameters:
//
//	type Person struct {
//		Name string `fixcol:"width=12"`
//		Year int    `fixcol:"width=4,skip=1,align=right"`
//		Code string `fixcol:"width=2,skip=1,align=full,strict"`
//	}
//
// Supported parameters are width (required), skip (blank columns before the
// field), align (left, right, or full), and strict. Offsets are implicit:
// each field starts immediately after the previous field's skip+width window.
//
// Files that mix several record shapes on different lines are handled by
// a Union, which routes each line on a fixed-width leading key.
package fixcol

// Marshaler is the interface implemented by an object that can marshal
// itself into a fixed-column form.
//
// MarshalFixedColumn is provided the declared field width and should return
// the rendered value. Padding, truncation, and strict-mode width validation
// are applied by the encoder afterwards.
type Marshaler interface {
	MarshalFixedColumn(width int) (data []byte, err error)
}

// Unmarshaler is the interface implemented by an object that can unmarshal
// a fixed-column representation of itself.
//
// The data passed to UnmarshalFixedColumn is the field's byte window after
// alignment trimming. UnmarshalFixedColumn should be able to decode the form
// generated by MarshalFixedColumn.
type Unmarshaler interface {
	UnmarshalFixedColumn(data []byte) error
}
