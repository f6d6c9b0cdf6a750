package benchmark

import (
	_ "embed"
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpbench/encoding"
	"gopkg.in/yaml.v3"
)

//go:embed tasks.json
var defaultTasks []byte

// TaskID is the literal task ID, a number or a string.
type TaskID string

func (id *TaskID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errors.WithStack(err)
		}
		*id = TaskID(s)
		return nil
	}
	if string(data) == "null" {
		*id = ""
		return nil
	}
	*id = TaskID(data)
	return nil
}

func (id TaskID) MarshalJSON() ([]byte, error) {
	if _, ok := parseNumber(string(id)).(string); ok || id == "" {
		return json.Marshal(string(id))
	}
	return []byte(id), nil
}

func (id *TaskID) UnmarshalYAML(node *yaml.Node) error {
	*id = TaskID(node.Value)
	return nil
}

func (id TaskID) String() string {
	return string(id)
}

// Task is a labeled question.
type Task struct {
	ID       TaskID `json:"id" yaml:"id" validate:"required"`
	Question string `json:"question" yaml:"question" validate:"required"`
	// Tool is the name of the tool expected to be called.
	Tool string `json:"tool" yaml:"tool" validate:"required"`
	// Expected is the expected tool result, ints and floats keep their literal type.
	Expected any `json:"expected" yaml:"expected"`
}

// LoadTasks loads tasks from a JSON or YAML file.
// An empty path loads the embedded task set.
func LoadTasks(path string) ([]*Task, error) {
	if path == "" {
		return ParseTasks(defaultTasks, encoding.FormatJSON)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithMessagef(err, "unable to read tasks")
	}
	tasks, err := ParseTasks(data, encoding.FormatFromPath(path))
	if err != nil {
		return nil, errors.WithMessagef(err, "invalid tasks file %s", path)
	}
	return tasks, nil
}

// ParseTasks decodes and validates a list of tasks.
func ParseTasks(data []byte, format encoding.Format) ([]*Task, error) {
	enc, err := encoding.PredefinedEncoder(format)
	if err != nil {
		return nil, err
	}

	var tasks []*Task
	if err = enc.Unmarshal(data, &tasks); err != nil {
		return nil, errors.WithMessage(err, "failed to decode tasks")
	}

	v := enc.(encoding.Validator)
	for i, task := range tasks {
		if task == nil {
			return nil, errors.Errorf("task %d: empty", i)
		}
		if err = v.Validate(task); err != nil {
			return nil, errors.Wrapf(err, "task %d", i)
		}
		task.Expected = Normalize(task.Expected)
	}
	return tasks, nil
}
