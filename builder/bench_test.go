package builder_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	dynaskema "github.com/reoring/dynaskema"
	"github.com/reoring/dynaskema/builder"
	js "github.com/reoring/dynaskema/jsonschema"
)

// wideSchema declares n properties, every fourth one a $ref into a chain of
// definitions of the given depth.
func wideSchema(n, depth int) string {
	var b strings.Builder
	b.WriteString(`{"title":"Wide","properties":{`)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		if i%4 == 0 {
			fmt.Fprintf(&b, `"f%d":{"$ref":"#/$defs/D0"}`, i)
		} else {
			fmt.Fprintf(&b, `"f%d":{"type":"integer"}`, i)
		}
	}
	b.WriteString(`},"$defs":{`)
	for d := 0; d < depth; d++ {
		if d > 0 {
			b.WriteByte(',')
		}
		if d+1 < depth {
			fmt.Fprintf(&b, `"D%d":{"properties":{"v":{"type":"string"},"next":{"$ref":"#/$defs/D%d"}}}`, d, d+1)
		} else {
			fmt.Fprintf(&b, `"D%d":{"properties":{"v":{"type":"string"}}}`, d)
		}
	}
	b.WriteString(`}}`)
	return b.String()
}

func BenchmarkBuild(b *testing.B) {
	doc, err := js.Parse([]byte(wideSchema(64, 4)))
	if err != nil {
		b.Fatal(err)
	}
	defs := builder.DefinitionsFor(doc, "")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := builder.Build(doc, defs, builder.Options{}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkParseGenerated(b *testing.B) {
	m, err := builder.MakeFromBytes([]byte(wideSchema(16, 2)), builder.Options{})
	if err != nil {
		b.Fatal(err)
	}
	var in strings.Builder
	in.WriteByte('{')
	for i := 0; i < 16; i++ {
		if i > 0 {
			in.WriteByte(',')
		}
		if i%4 == 0 {
			fmt.Fprintf(&in, `"f%d":{"v":"x","next":{"v":"y"}}`, i)
		} else {
			fmt.Fprintf(&in, `"f%d":%d`, i, i)
		}
	}
	in.WriteByte('}')
	data := []byte(in.String())
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := dynaskema.ParseJSON[*dynaskema.Record](ctx, m, data); err != nil {
			b.Fatal(err)
		}
	}
}
