// internal/publisher/payload.go
package publisher

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/tamzrod/meterbridge/internal/catalog"
	"github.com/tamzrod/meterbridge/internal/poller"
)

// FormatValue renders v with the field's fixed precision.
// Non-finite values have no text form and report false.
func FormatValue(f catalog.FieldDescriptor, v float32) (string, bool) {
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return "", false
	}
	return strconv.FormatFloat(float64(v), 'f', f.Precision(), 32), true
}

// Aggregate encodes the flat aggregate document:
//
//	{"timestamp":<unix ms>,<field>:<value>...,"device_ip":"<host>"}
//
// Fields appear in catalog order. Fields absent from r are omitted.
func Aggregate(cat catalog.Catalog, r poller.Reading) []byte {
	var b bytes.Buffer
	b.WriteString(`{"timestamp":`)
	b.WriteString(strconv.FormatInt(r.At.UnixMilli(), 10))

	for _, f := range cat.Fields() {
		v, ok := r.Value(f.ID)
		if !ok {
			continue
		}
		s, ok := FormatValue(f, v)
		if !ok {
			continue
		}
		b.WriteByte(',')
		writeKey(&b, f.ID)
		b.WriteString(s)
	}

	b.WriteByte(',')
	writeKey(&b, "device_ip")
	writeString(&b, r.Device)
	b.WriteByte('}')
	return b.Bytes()
}

func writeKey(b *bytes.Buffer, k string) {
	writeString(b, k)
	b.WriteByte(':')
}

func writeString(b *bytes.Buffer, s string) {
	// json.Marshal of a string cannot fail.
	q, _ := json.Marshal(s)
	b.Write(q)
}
