package mathtools

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/bububa/ljson"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpbench/pkg/llmutils"
	"github.com/effective-security/mcpbench/tools"
	"github.com/effective-security/xlog"
	"github.com/go-playground/validator/v10"
	"github.com/tidwall/sjson"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeArgs decodes tool arguments into v.
// The input is tried as strict JSON first, then leniently after stripping
// code fences and surrounding prose.
func decodeArgs(input string, v any) error {
	data := bytes.TrimSpace([]byte(input))
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		data = []byte("{}")
	}

	if err := unmarshalArgs(data, v); err != nil {
		if errors.Is(err, ErrInvalidNumber) {
			return err
		}
		cleaned := llmutils.CleanJSON(llmutils.BytesTrimBackticks(data))
		if flat, ferr := flattenKwargs(cleaned); ferr == nil {
			cleaned = flat
		}
		if lerr := ljson.Unmarshal(cleaned, v); lerr != nil {
			logger.KV(xlog.DEBUG, "reason", "unmarshal", "input", input, "err", err.Error())
			return errors.Wrap(tools.ErrFailedUnmarshalInput, err.Error())
		}
	}

	if err := validate.Struct(v); err != nil {
		return validationError(err)
	}
	return nil
}

func unmarshalArgs(data []byte, v any) error {
	data, err := flattenKwargs(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// flattenKwargs lifts the members of a nested "kwargs" object to the top level,
// keeping top level members that are already present.
func flattenKwargs(data []byte) ([]byte, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, errors.WithStack(err)
	}
	raw, ok := top["kwargs"]
	if !ok {
		return data, nil
	}

	var kwargs map[string]json.RawMessage
	if err := json.Unmarshal(raw, &kwargs); err != nil {
		// not an object, leave it to the arguments decoder
		return data, nil
	}
	for k, v := range kwargs {
		if _, exists := top[k]; exists {
			continue
		}
		var err error
		data, err = sjson.SetRawBytes(data, escapePath(k), v)
		if err != nil {
			return nil, errors.WithStack(err)
		}
	}
	data, err := sjson.DeleteBytes(data, "kwargs")
	return data, errors.WithStack(err)
}

var pathEscaper = strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)

func escapePath(key string) string {
	return pathEscaper.Replace(key)
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.WithStack(err)
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
			continue
		}
		return errors.Newf("invalid argument %s: failed on %s", fe.Field(), fe.Tag())
	}
	return errors.Newf("missing required argument: %s", strings.Join(missing, ", "))
}
