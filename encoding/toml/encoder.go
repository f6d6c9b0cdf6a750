package toml

import (
	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpbench/pkg/llmutils"
	"github.com/go-playground/validator/v10"
)

// Encoder writes TOML documents. Nil pointer fields are omitted.
type Encoder struct{}

func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) Marshal(v any) ([]byte, error) {
	bs, err := toml.Marshal(v)
	return bs, errors.WithStack(err)
}

func (e *Encoder) Unmarshal(bs []byte, ret any) error {
	data := llmutils.BytesTrimBackticks(bs)
	return errors.WithStack(toml.Unmarshal(data, ret))
}

func (e *Encoder) Validate(req any) error {
	return validator.New().Struct(req)
}
