package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeanpaul/cursor-memory-mcp/internal/memory"
)

// CreateMemoryName is the published tool name.
const CreateMemoryName = "create_cursor_memory"

// Error payload prefixes.
const (
	prefixFileOperation = "文件操作失败: "
	prefixInternal      = "服务内部错误: "
)

// CreateMemoryTool validates arguments and writes one memory file.
type CreateMemoryTool struct {
	validator *memory.RequestValidator
	store     memory.Store
	logger    *slog.Logger
}

func NewCreateMemoryTool(validator *memory.RequestValidator, store memory.Store, logger *slog.Logger) *CreateMemoryTool {
	if logger == nil {
		logger = slog.Default()
	}
	return &CreateMemoryTool{validator: validator, store: store, logger: logger}
}

func (c *CreateMemoryTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        CreateMemoryName,
		Title:       "Create Cursor memory",
		Description: "在项目的.cursor/目录中创建任务记忆文件",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				memory.FieldTaskSummary: map[string]any{
					"type":        "string",
					"description": "当前任务执行的详细上下文总结",
					"minLength":   1,
				},
				memory.FieldTaskName: map[string]any{
					"type":        "string",
					"description": "当前任务的简短名称，用作文件名",
					"minLength":   1,
					"maxLength":   memory.MaxTaskNameLength,
					"pattern":     "^[a-zA-Z0-9_-]+$",
				},
				memory.FieldProjectPath: map[string]any{
					"type":        "string",
					"description": "当前项目的绝对路径",
				},
				memory.FieldTaskDescription: map[string]any{
					"type":        "string",
					"description": "任务的详细描述（可选）",
				},
			},
			"required": []string{memory.FieldTaskSummary, memory.FieldTaskName, memory.FieldProjectPath},
		},
		Annotations: Annotations{
			ReadOnly:    false,
			Destructive: false,
			Idempotent:  false,
			OpenWorld:   false,
		},
	}
}

type successPayload struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	FilePath  string `json:"file_path"`
	CreatedAt string `json:"created_at"`
}

type errorPayload struct {
	Error string `json:"error"`
}

// Execute never returns an error: every failure, including a panic further
// down, is turned into an error payload.
func (c *CreateMemoryTool) Execute(_ context.Context, args string) (res Result, err error) {
	logger := c.logger.With("tool", CreateMemoryName, "invocation", uuid.NewString())

	defer func() {
		if r := recover(); r != nil {
			logger.Error("tool panicked", "panic", r, "stack", string(debug.Stack()))
			res, err = failure(fmt.Sprintf("%s%v", prefixInternal, r)), nil
		}
	}()

	req, verr := c.validator.Validate(args)
	if verr != nil {
		var validation *memory.ValidationError
		if errors.As(verr, &validation) {
			logger.Warn("invalid arguments", "error", validation)
			return failure(validation.Error()), nil
		}
		logger.Error("validating arguments", "error", verr)
		return failure(prefixInternal + verr.Error()), nil
	}

	written, werr := c.store.Write(req)
	if werr != nil {
		if memory.IsFileOperation(werr) {
			logger.Error("file operation failed", "project", req.ProjectPath(), "error", werr)
			return failure(prefixFileOperation + werr.Error()), nil
		}
		logger.Error("writing memory", "project", req.ProjectPath(), "error", werr)
		return failure(prefixInternal + werr.Error()), nil
	}

	logger.Info("memory created", "path", written.FilePath, "adjusted", written.Adjusted)
	return Result{Text: encodePayload(successPayload{
		Success:   true,
		Message:   written.Message,
		FilePath:  written.FilePath,
		CreatedAt: written.CreatedAt.Format(time.RFC3339),
	})}, nil
}

func failure(message string) Result {
	return Result{Text: encodePayload(errorPayload{Error: message}), IsError: true}
}

// encodePayload renders v as indented JSON with non-ASCII text left as is.
func encodePayload(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return `{"error": "服务内部错误"}`
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
