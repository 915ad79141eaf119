package fixcol

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTag(t *testing.T) {
	for _, tt := range []struct {
		name string
		tag  string
		opts tagOpts
		ok   bool
	}{
		{"width only", "width=10", tagOpts{width: 10}, true},
		{"width and skip", "width=3,skip=1", tagOpts{width: 3, skip: 1}, true},
		{"right aligned", "width=4,align=right", tagOpts{width: 4, align: Right}, true},
		{"full aligned", "width=4,align=full", tagOpts{width: 4, align: Full}, true},
		{"bare strict", "width=2,strict", tagOpts{width: 2, strict: strictOn}, true},
		{"strict true", "width=2,strict=true", tagOpts{width: 2, strict: strictOn}, true},
		{"strict false", "width=2,strict=false", tagOpts{width: 2, strict: strictOff}, true},
		{"ignored field", "-", tagOpts{ignored: true}, true},
		{"empty tag", "", tagOpts{}, false},
		{"missing width", "skip=1", tagOpts{}, false},
		{"zero width", "width=0", tagOpts{}, false},
		{"negative width", "width=-3", tagOpts{}, false},
		{"width not integer", "width=ten", tagOpts{}, false},
		{"negative skip", "width=3,skip=-1", tagOpts{}, false},
		{"unknown alignment", "width=3,align=center", tagOpts{}, false},
		{"unknown parameter", "width=3,pad=0", tagOpts{}, false},
		{"strict not boolean", "width=3,strict=yes", tagOpts{}, false},
		{"positional width", "10", tagOpts{}, false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseTag(tt.tag)
			if !tt.ok {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.opts, opts)
		})
	}
}

func TestBuildStructSpec(t *testing.T) {
	type inner struct {
		A int `fixcol:"width=2"`
	}
	type record struct {
		Name     string `fixcol:"width=10"`
		Count    int    `fixcol:"width=5,skip=1,align=right"`
		Code     string `fixcol:"width=2,strict"`
		Loose    string `fixcol:"width=2,strict=false"`
		Sub      inner  `fixcol:"width=2,skip=1"`
		Ignored  string `fixcol:"-"`
		Untagged string
	}

	t.Run("lenient default", func(t *testing.T) {
		ss, err := buildStructSpec(reflect.TypeOf(record{}), false)
		require.NoError(t, err)
		require.Len(t, ss.fields, 5)

		assert.Equal(t, FieldDescriptor{Width: 10, Align: Left}, ss.fields[0].desc)
		assert.Equal(t, FieldDescriptor{Skip: 1, Width: 5, Align: Right}, ss.fields[1].desc)
		assert.Equal(t, FieldDescriptor{Width: 2, Align: Left, Strict: true}, ss.fields[2].desc)
		assert.Equal(t, FieldDescriptor{Width: 2, Align: Left, Strict: false}, ss.fields[3].desc)

		// Nested records default to full alignment so the sub-row arrives
		// byte-exact.
		assert.Equal(t, FieldDescriptor{Skip: 1, Width: 2, Align: Full}, ss.fields[4].desc)

		assert.True(t, ss.fields[1].numeric)
		assert.False(t, ss.fields[0].numeric)
	})

	t.Run("strict default cascades", func(t *testing.T) {
		ss, err := buildStructSpec(reflect.TypeOf(record{}), true)
		require.NoError(t, err)

		assert.True(t, ss.fields[0].desc.Strict, "untouched fields inherit the default")
		assert.True(t, ss.fields[2].desc.Strict)
		assert.False(t, ss.fields[3].desc.Strict, "field-level strict=false wins over the default")
	})

	t.Run("invalid tag reported with field name", func(t *testing.T) {
		type bad struct {
			F int `fixcol:"skip=1"`
		}
		_, err := buildStructSpec(reflect.TypeOf(bad{}), false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad.F")
	})
}

func TestCachedStructSpec(t *testing.T) {
	type cached struct {
		F string `fixcol:"width=3"`
	}

	a, err := cachedStructSpec(reflect.TypeOf(cached{}), false)
	require.NoError(t, err)
	b, err := cachedStructSpec(reflect.TypeOf(cached{}), false)
	require.NoError(t, err)
	require.Len(t, b.fields, 1)
	assert.Equal(t, a.fields[0].desc, b.fields[0].desc)

	// The strict default participates in the cache key.
	c, err := cachedStructSpec(reflect.TypeOf(cached{}), true)
	require.NoError(t, err)
	assert.True(t, c.fields[0].desc.Strict)
	assert.False(t, a.fields[0].desc.Strict)
}
