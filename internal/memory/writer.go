package memory

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Ensure Writer implements Store
var _ Store = (*Writer)(nil)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// WriteResult describes a memory file that was created.
type WriteResult struct {
	FilePath  string
	FileName  string
	Adjusted  bool // true when the timestamped fallback name was used
	Message   string
	CreatedAt time.Time
}

// Writer renders requests and persists them under the project's rules
// directory. It holds no per-call state and is safe for concurrent use.
type Writer struct {
	fs     afero.Fs
	now    func() time.Time
	logger *slog.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithFs replaces the filesystem. Defaults to the OS filesystem.
func WithFs(fs afero.Fs) WriterOption {
	return func(w *Writer) { w.fs = fs }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) WriterOption {
	return func(w *Writer) { w.now = now }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) WriterOption {
	return func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWriter creates a Writer.
func NewWriter(opts ...WriterOption) *Writer {
	w := &Writer{
		fs:     afero.NewOsFs(),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write creates {project}/.cursor/rules/{task_name}.mdc, falling back to
// {task_name}_{YYYYMMDD_HHMMSS}.mdc when that name is taken.
//
// The existence check and the final rename are separate steps, so two calls
// with the same task name in the same second can still replace each other's
// file.
func (w *Writer) Write(req *CreateMemoryRequest) (*WriteResult, error) {
	now := w.now()
	dir := req.RulesPath()

	if err := w.fs.MkdirAll(dir, dirPerm); err != nil {
		w.logger.Error("creating rules directory", "dir", dir, "error", err)
		return nil, &DirectoryCreateError{Path: dir, Err: err}
	}
	w.logger.Debug("rules directory ready", "dir", dir)

	primary := req.TaskName() + FileExt
	name := primary
	exists, err := afero.Exists(w.fs, filepath.Join(dir, name))
	if err != nil {
		return nil, &WriteError{Path: filepath.Join(dir, name), Err: err}
	}
	if exists {
		name = fmt.Sprintf("%s_%s%s", req.TaskName(), now.Format(TimestampLayout), FileExt)
		w.logger.Info("memory file exists, using timestamped name", "existing", primary, "file", name)
	}

	content := Render(req.EffectiveDescription(), req.TaskSummary())
	final, err := w.writeAtomic(dir, name, []byte(content))
	if err != nil {
		w.logger.Error("writing memory file", "dir", dir, "file", name, "error", err)
		return nil, err
	}
	w.logger.Info("memory file created", "path", final)

	result := &WriteResult{
		FilePath:  final,
		FileName:  name,
		Adjusted:  name != primary,
		Message:   "成功创建记忆文件",
		CreatedAt: now,
	}
	if result.Adjusted {
		result.Message += "，文件名已调整为: " + name
	}
	return result, nil
}

// writeAtomic writes data to a hidden sibling and renames it over the final
// name, so readers see either nothing or the whole document.
func (w *Writer) writeAtomic(dir, name string, data []byte) (string, error) {
	final := filepath.Join(dir, name)
	tmp := filepath.Join(dir, "."+name+"."+uuid.NewString()+".tmp")

	f, err := w.fs.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		return "", &WriteError{Path: final, Err: err}
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		w.discard(tmp)
		return "", &WriteError{Path: final, Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		w.discard(tmp)
		return "", &WriteError{Path: final, Err: err}
	}
	if err := f.Close(); err != nil {
		w.discard(tmp)
		return "", &WriteError{Path: final, Err: err}
	}

	if err := w.fs.Rename(tmp, final); err != nil {
		w.discard(tmp)
		return "", &WriteError{Path: final, Err: err}
	}
	return final, nil
}

func (w *Writer) discard(tmp string) {
	if err := w.fs.Remove(tmp); err != nil && !os.IsNotExist(err) {
		w.logger.Warn("removing temporary file", "path", tmp, "error", err)
	}
}
