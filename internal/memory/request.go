package memory

import "path/filepath"

// Layout of the files produced for a project.
const (
	RulesDir          = ".cursor/rules"
	FileExt           = ".mdc"
	TimestampLayout   = "20060102_150405"
	MaxTaskNameLength = 50
)

// Argument names as they appear in the tool schema and in validation errors.
const (
	FieldTaskSummary     = "task_summary"
	FieldTaskName        = "task_name"
	FieldProjectPath     = "project_path"
	FieldTaskDescription = "task_description"
)

// CreateMemoryRequest is a validated request to create one memory file.
// Values are only produced by RequestValidator.Validate and never change
// afterwards.
type CreateMemoryRequest struct {
	taskSummary     string
	taskName        string
	projectPath     string
	taskDescription *string
}

// TaskSummary returns the trimmed summary that becomes the document body.
func (r *CreateMemoryRequest) TaskSummary() string { return r.taskSummary }

// TaskName returns the file stem.
func (r *CreateMemoryRequest) TaskName() string { return r.taskName }

// ProjectPath returns the canonical absolute project directory.
func (r *CreateMemoryRequest) ProjectPath() string { return r.projectPath }

// TaskDescription returns the description exactly as supplied, if any.
func (r *CreateMemoryRequest) TaskDescription() (string, bool) {
	if r.taskDescription == nil {
		return "", false
	}
	return *r.taskDescription, true
}

// EffectiveDescription is the description written to the front matter:
// the supplied description when non-empty, otherwise the task name.
func (r *CreateMemoryRequest) EffectiveDescription() string {
	if d, ok := r.TaskDescription(); ok && d != "" {
		return d
	}
	return r.taskName
}

// RulesPath is the directory memory files for this request are written to.
func (r *CreateMemoryRequest) RulesPath() string {
	return filepath.Join(r.projectPath, filepath.FromSlash(RulesDir))
}
