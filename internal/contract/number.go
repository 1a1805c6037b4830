package contract

import (
	"bytes"

	"github.com/goccy/go-json"
	"github.com/iwvelando/backlog-forecast/pkg/mathutil"
	"gopkg.in/yaml.v3"
)

// Number is a float64 that decodes leniently: numbers, numeric strings with
// currency symbols or separators, null and missing fields all decode, and
// anything unparseable becomes 0 instead of failing the record.
type Number float64

// Float returns the value as a float64.
func (n Number) Float() float64 {
	return float64(n)
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	var raw interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		*n = 0
		return nil
	}
	*n = Number(mathutil.ParseLenient(raw))
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (n *Number) UnmarshalYAML(value *yaml.Node) error {
	if value == nil || value.Kind != yaml.ScalarNode || value.Tag == "!!null" {
		*n = 0
		return nil
	}
	*n = Number(mathutil.ParseLenientString(value.Value))
	return nil
}
