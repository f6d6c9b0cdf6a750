package yaml

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpbench/pkg/llmutils"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Encoder struct{}

func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) Marshal(v any) ([]byte, error) {
	bs, err := yaml.Marshal(v)
	return bs, errors.WithStack(err)
}

func (e *Encoder) Unmarshal(bs []byte, ret any) error {
	data := llmutils.BytesTrimBackticks(bs)
	return errors.WithStack(yaml.Unmarshal(data, ret))
}

func (e *Encoder) Validate(req any) error {
	return validator.New().Struct(req)
}
