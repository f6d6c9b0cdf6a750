package json

import (
	"bytes"
	"encoding/json"

	"github.com/bububa/ljson"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpbench/pkg/llmutils"
	"github.com/go-playground/validator/v10"
)

// Encoder writes indented JSON and reads JSON leniently.
// Numbers are decoded as json.Number to keep their literal form.
type Encoder struct{}

func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) Marshal(v any) ([]byte, error) {
	bs, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return append(bs, '\n'), nil
}

func (e *Encoder) Unmarshal(bs []byte, ret any) error {
	data := llmutils.CleanJSON(llmutils.BytesTrimBackticks(bs))
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	err := dec.Decode(ret)
	if err == nil {
		return nil
	}
	// fall back to the lenient decoder for malformed input
	if lerr := ljson.Unmarshal(data, ret); lerr != nil {
		return errors.WithStack(err)
	}
	return nil
}

func (e *Encoder) Validate(req any) error {
	return validator.New().Struct(req)
}
