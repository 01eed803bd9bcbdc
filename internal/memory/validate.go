package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/jeanpaul/cursor-memory-mcp/internal/schema"
)

var taskNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// shapeSchema only pins the JSON types and required keys. Value rules are
// checked in Go so every failure gets a field-specific message.
var shapeSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		FieldTaskSummary:     map[string]any{"type": "string"},
		FieldTaskName:        map[string]any{"type": "string"},
		FieldProjectPath:     map[string]any{"type": "string"},
		FieldTaskDescription: map[string]any{"type": []string{"string", "null"}},
	},
	"required": []string{FieldTaskSummary, FieldTaskName, FieldProjectPath},
}

var fieldOrder = map[string]int{
	schema.RootField:     0,
	FieldTaskSummary:     1,
	FieldTaskName:        2,
	FieldProjectPath:     3,
	FieldTaskDescription: 4,
}

// RequestValidator turns raw JSON arguments into a CreateMemoryRequest.
type RequestValidator struct {
	shape *schema.Validator
}

// NewRequestValidator returns a validator backed by the given schema checker.
// A nil checker gets a private one.
func NewRequestValidator(shape *schema.Validator) *RequestValidator {
	if shape == nil {
		shape = schema.NewValidator()
	}
	return &RequestValidator{shape: shape}
}

// Validate checks every argument and returns either a request or a
// *ValidationError listing all failures. Any other error means validation
// could not run at all. The only side effect is a stat of project_path.
func (v *RequestValidator) Validate(argsJSON string) (*CreateMemoryRequest, error) {
	if strings.TrimSpace(argsJSON) == "" || strings.TrimSpace(argsJSON) == "null" {
		argsJSON = "{}"
	}
	if !json.Valid([]byte(argsJSON)) {
		return nil, &ValidationError{Fields: []FieldError{{Field: schema.RootField, Message: "参数不是合法的JSON"}}}
	}

	violations, err := v.shape.Check(shapeSchema, argsJSON)
	if err != nil {
		return nil, fmt.Errorf("checking argument shape: %w", err)
	}

	verr := &ValidationError{}
	for _, viol := range violations {
		if verr.Has(viol.Field) {
			continue
		}
		verr.add(viol.Field, shapeMessage(viol))
	}
	if verr.Has(schema.RootField) {
		return nil, verr
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(argsJSON), &raw); err != nil {
		verr.add(schema.RootField, "参数必须是一个对象")
		return nil, verr
	}

	// Fields that already failed the shape check are not decoded again.
	str := func(field string) *string {
		data, ok := raw[field]
		if !ok || verr.Has(field) {
			return nil
		}
		var s *string
		if err := json.Unmarshal(data, &s); err != nil {
			verr.add(field, "必须是字符串")
			return nil
		}
		return s
	}

	req := &CreateMemoryRequest{taskDescription: str(FieldTaskDescription)}

	if summary := str(FieldTaskSummary); summary != nil {
		trimmed := strings.TrimSpace(*summary)
		if trimmed == "" {
			verr.add(FieldTaskSummary, "task_summary不能为空字符串")
		}
		req.taskSummary = trimmed
	}

	if name := str(FieldTaskName); name != nil {
		for _, msg := range checkTaskName(*name) {
			verr.add(FieldTaskName, msg)
		}
		req.taskName = *name
	}

	if project := str(FieldProjectPath); project != nil {
		path, msg := canonicalProjectPath(*project)
		if msg != "" {
			verr.add(FieldProjectPath, msg)
		}
		req.projectPath = path
	}

	if len(verr.Fields) > 0 {
		sort.SliceStable(verr.Fields, func(i, j int) bool {
			return rank(verr.Fields[i].Field) < rank(verr.Fields[j].Field)
		})
		return nil, verr
	}
	return req, nil
}

func checkTaskName(name string) []string {
	if name == "" {
		return []string{"task_name不能为空"}
	}
	var msgs []string
	if utf8.RuneCountInString(name) > MaxTaskNameLength {
		msgs = append(msgs, fmt.Sprintf("task_name长度不能超过%d个字符", MaxTaskNameLength))
	}
	if !taskNamePattern.MatchString(name) {
		msgs = append(msgs, "task_name只允许字母、数字、下划线、连字符")
	}
	return msgs
}

// canonicalProjectPath returns the resolved directory or a failure message.
func canonicalProjectPath(input string) (string, string) {
	p := strings.TrimSpace(input)
	if p == "" {
		return "", "project_path不能为空"
	}

	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", "项目路径不存在: " + input
	}
	if err != nil {
		return "", fmt.Sprintf("无法访问项目路径: %v", err)
	}
	if !info.IsDir() {
		return "", "项目路径必须是一个目录: " + input
	}

	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Sprintf("无法解析项目路径: %v", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Sprintf("无法解析项目路径: %v", err)
	}
	return resolved, ""
}

func shapeMessage(viol schema.Violation) string {
	switch {
	case viol.Type == "required":
		return "缺少必填字段"
	case viol.Field == schema.RootField:
		return "参数必须是一个对象"
	case viol.Type == "invalid_type":
		return "必须是字符串"
	default:
		return viol.Message
	}
}

func rank(field string) int {
	if r, ok := fieldOrder[field]; ok {
		return r
	}
	return len(fieldOrder)
}
