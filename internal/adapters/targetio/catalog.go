package targetio

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/okian/shootsim/internal/domain/target"
	"github.com/okian/shootsim/pkg/logger"
)

//go:embed targets/*.target
var builtinFS embed.FS

// Builtin returns the definitions shipped with the binary.
func Builtin() fs.FS { return builtinFS }

// Overlay resolves names against each layer in order.
type Overlay []fs.FS

func (o Overlay) Open(name string) (fs.File, error) {
	for _, layer := range o {
		if layer == nil {
			continue
		}
		f, err := layer.Open(name)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// DirWithBuiltin serves definitions from dir, falling back to the built-in
// set. An empty dir serves only the built-ins.
func DirWithBuiltin(dir string) fs.FS {
	if dir == "" {
		return builtinFS
	}
	return Overlay{os.DirFS(dir), builtinFS}
}

// Catalog caches parsed definitions by ref and hands out fresh instances.
type Catalog struct {
	fsys fs.FS
	log  logger.Logger

	mu   sync.RWMutex
	defs map[string]*target.Target
}

// NewCatalog reads definitions from fsys.
func NewCatalog(fsys fs.FS) *Catalog {
	return &Catalog{
		fsys: fsys,
		log:  logger.Get().Named("targetio"),
		defs: map[string]*target.Target{},
	}
}

// Load returns the cached prototype for ref, parsing it on first use.
// Callers must not mutate the result.
func (c *Catalog) Load(_ context.Context, ref string) (*target.Target, error) {
	c.mu.RLock()
	def, ok := c.defs[ref]
	c.mu.RUnlock()
	if ok {
		return def, nil
	}

	data, err := fs.ReadFile(c.fsys, ref)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDefinitionNotFound, ref)
		}
		return nil, fmt.Errorf("read %s: %w", ref, err)
	}
	def, err = Unmarshal(data, ref, c.sizer(path.Dir(ref)))
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.defs[ref]; ok {
		return existing, nil
	}
	c.defs[ref] = def
	return def, nil
}

// Instantiate returns a new target for ref placed at x, y. It reports false
// when the definition cannot be loaded; the failure is logged.
func (c *Catalog) Instantiate(ctx context.Context, ref string, x, y float64) (*target.Target, bool) {
	def, err := c.Load(ctx, ref)
	if err != nil {
		c.log.Warn(ctx, "target definition unavailable", logger.String("ref", ref), logger.Error(err))
		return nil, false
	}
	t := def.NewInstance()
	t.SetPosition(x, y)
	return t, true
}

// Refs lists the definitions currently cached.
func (c *Catalog) Refs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.defs))
	for ref := range c.defs {
		out = append(out, ref)
	}
	return out
}

func (c *Catalog) sizer(dir string) ImageSizer {
	return func(src string) (int, int, error) {
		name := strings.TrimPrefix(src, "/")
		if !path.IsAbs(src) {
			name = path.Join(dir, src)
		}
		f, err := c.fsys.Open(name)
		if err != nil {
			return 0, 0, err
		}
		defer f.Close()
		cfg, _, err := image.DecodeConfig(f)
		if err != nil {
			return 0, 0, err
		}
		return cfg.Width, cfg.Height, nil
	}
}
