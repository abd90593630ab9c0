package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cloudwego/eino/schema"

	"github.com/MiBe1991/sentinex/internal/actions"
)

// FSReadResult is returned by fs.read.
type FSReadResult struct {
	Path      string `json:"path"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated"`
}

// FSRead reads local files.
type FSRead struct {
	workDir string
}

// NewFSRead creates the fs.read executor. Relative paths resolve against
// workDir, or the process working directory when workDir is empty.
func NewFSRead(workDir string) *FSRead {
	return &FSRead{workDir: workDir}
}

func (f *FSRead) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: actions.ToolFSRead,
		Desc: "Read a local text file and return its (possibly truncated) content",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"path":     {Type: schema.String, Desc: "File path, relative to the project directory or absolute", Required: true},
			"maxBytes": {Type: schema.Integer, Desc: "Optional maximum bytes to return"},
		}),
	}, nil
}

func (f *FSRead) Execute(ctx context.Context, input actions.ToolInput, limits Limits) (any, error) {
	in, ok := input.(actions.FSReadInput)
	if !ok {
		return nil, fmt.Errorf("unexpected input type %T", input)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(f.resolve(in.Path))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	content, truncated, err := readLimited(file, limits.MaxBytes)
	if err != nil {
		return nil, err
	}

	return FSReadResult{
		Path:      in.Path,
		Content:   string(content),
		Truncated: truncated,
	}, nil
}

func (f *FSRead) resolve(p string) string {
	if filepath.IsAbs(p) || f.workDir == "" {
		return p
	}
	return filepath.Join(f.workDir, p)
}
