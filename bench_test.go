package fixcol

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

type mixedData struct {
	F1  string   `fixcol:"width=10"`
	F2  *string  `fixcol:"width=10"`
	F3  int64    `fixcol:"width=10,align=right"`
	F4  *int64   `fixcol:"width=10,align=right"`
	F5  int32    `fixcol:"width=10,align=right"`
	F6  *int32   `fixcol:"width=10,align=right"`
	F7  int16    `fixcol:"width=10,align=right"`
	F8  *int16   `fixcol:"width=10,align=right"`
	F9  int8     `fixcol:"width=10,align=right"`
	F10 *int8    `fixcol:"width=10,align=right"`
	F11 float64  `fixcol:"width=10,align=right"`
	F12 *float64 `fixcol:"width=10,align=right"`
	F13 float32  `fixcol:"width=10,align=right"`
	F14 bool     `fixcol:"width=10"`
	F15 bool     `fixcol:"width=10"`
}

func stringp(s string) *string    { return &s }
func int64p(i int64) *int64       { return &i }
func int32p(i int32) *int32       { return &i }
func int16p(i int16) *int16       { return &i }
func int8p(i int8) *int8          { return &i }
func float64p(f float64) *float64 { return &f }

var mixedDataInstance = mixedData{"foo", stringp("foo"), 42, int64p(42), 42, int32p(42), 42, int16p(42), 42, int8p(42), 4.2, float64p(4.2), 4.2, false, true}

var mixedDataLine = `foo       foo               42        42        42        42        42        42        42        42       4.2       4.2       4.2false     true      `

func BenchmarkUnmarshal_MixedData_1(b *testing.B) {
	data := []byte(mixedDataLine)
	var v mixedData
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Unmarshal(data, &v)
	}
}

func BenchmarkUnmarshal_MixedData_1000(b *testing.B) {
	data := bytes.Repeat([]byte(mixedDataLine+"\n"), 1000)
	var v []mixedData
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Unmarshal(data, &v)
	}
}

func BenchmarkUnmarshal_String(b *testing.B) {
	data := []byte(`foo       `)
	var v struct {
		F1 string `fixcol:"width=10"`
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Unmarshal(data, &v)
	}
}

func BenchmarkUnmarshal_Int64(b *testing.B) {
	data := []byte(`42        `)
	var v struct {
		F1 int64 `fixcol:"width=10"`
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Unmarshal(data, &v)
	}
}

func BenchmarkUnmarshal_Float64(b *testing.B) {
	data := []byte(`4.2       `)
	var v struct {
		F1 float64 `fixcol:"width=10"`
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Unmarshal(data, &v)
	}
}

func BenchmarkMarshal_MixedData_1(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Marshal(mixedDataInstance)
	}
}

func BenchmarkMarshal_MixedData_1000(b *testing.B) {
	v := make([]mixedData, 1000)
	for i := range v {
		v[i] = mixedDataInstance
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Marshal(v)
	}
}

func BenchmarkMarshal_String(b *testing.B) {
	v := struct {
		F1 string `fixcol:"width=10"`
	}{
		F1: "foo",
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Marshal(v)
	}
}

func BenchmarkMarshal_Int64(b *testing.B) {
	v := struct {
		F1 int64 `fixcol:"width=10"`
	}{
		F1: 42,
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Marshal(v)
	}
}

func BenchmarkMarshal_Float64(b *testing.B) {
	v := struct {
		F1 float64 `fixcol:"width=10"`
	}{
		F1: 4.2,
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Marshal(v)
	}
}

func BenchmarkUnionDecode(b *testing.B) {
	u := catalogUnion()
	data := strings.Repeat("stVega       0.03\nplJupiter     5.2\n##\n", 100)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d := u.NewDecoder(strings.NewReader(data))
		for {
			if _, err := d.Next(); err == io.EOF {
				break
			}
		}
	}
}
