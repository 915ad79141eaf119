package fixcol

// Alignment describes how a field's text is positioned within its byte
// window, and therefore which side of the window is trimmed on decode and
// padded on encode.
type Alignment string

const (
	// Left aligned fields are padded on the right; trailing whitespace is
	// stripped on decode.
	Left Alignment = "left"
	// Right aligned fields are padded on the left; leading whitespace is
	// stripped on decode.
	Right Alignment = "right"
	// Full fields occupy their entire window. Whitespace is significant and
	// is never stripped.
	Full Alignment = "full"
)

func (a Alignment) valid() bool {
	switch a {
	case Left, Right, Full:
		return true
	default:
		return false
	}
}

// FieldDescriptor is the resolved configuration of a single field. It is
// built once per declared field from the struct tag and reused, read-only,
// for every record that passes through the codec.
type FieldDescriptor struct {
	// Skip is the number of blank columns between the end of the previous
	// field and the start of this one.
	Skip int
	// Width is the number of columns available to hold the field.
	Width int
	// Align selects the trimming and padding side.
	Align Alignment
	// Strict turns formatting leniencies (truncation, stray whitespace,
	// short trailing fields) into hard errors.
	Strict bool
}
