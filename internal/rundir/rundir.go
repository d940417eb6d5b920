package rundir

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimeLayout is the timestamp prefix of every run directory name
const TimeLayout = "20060102-150405"

// NoGit is the revision recorded when git is unavailable
const NoGit = "nogit"

// Run identifies one allocated run directory
type Run struct {
	ID       string // uuid, unique per allocation
	Project  string
	Path     string
	Revision string
	Started  time.Time
}

// Allocator hands out fresh run directories under Root/<project>/
type Allocator struct {
	Root     string
	Now      func() time.Time
	Revision func(ctx context.Context) string
}

// New creates an allocator using the wall clock and the working tree's git
// revision.
func New(root string) *Allocator {
	return &Allocator{
		Root:     root,
		Now:      time.Now,
		Revision: GitShortSHA,
	}
}

// Allocate creates <root>/<project>/<YYYYMMDD-HHMMSS>-<rev>. A directory
// that already exists is never reused; a short random suffix is appended
// instead.
func (a *Allocator) Allocate(ctx context.Context, project string) (*Run, error) {
	if project == "" || strings.ContainsAny(project, `/\`) || project == "." || project == ".." {
		return nil, fmt.Errorf("invalid project name %q", project)
	}

	started := a.Now()
	rev := a.Revision(ctx)
	id := uuid.New()

	parent := filepath.Join(a.Root, project)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return nil, fmt.Errorf("creating project directory: %w", err)
	}

	name := started.Format(TimeLayout) + "-" + rev
	path := filepath.Join(parent, name)
	err := os.Mkdir(path, 0755)
	if errors.Is(err, fs.ErrExist) {
		path = filepath.Join(parent, name+"-"+id.String()[:8])
		err = os.Mkdir(path, 0755)
	}
	if err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}

	return &Run{
		ID:       id.String(),
		Project:  project,
		Path:     path,
		Revision: rev,
		Started:  started,
	}, nil
}

// GitShortSHA returns the abbreviated HEAD revision, or NoGit
func GitShortSHA(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "git", "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return NoGit
	}
	sha := strings.TrimSpace(string(out))
	if sha == "" {
		return NoGit
	}
	return sha
}
