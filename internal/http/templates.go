package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"roora/internal/core"
	"roora/internal/log"
	appweb "roora/web"
)

// sharedTemplates are parsed into every page.
var sharedTemplates = []string{"layout.html", "partials.html"}

// Templates holds one parsed template set per page. Each page defines
// "title" and "content" blocks rendered inside "layout".
type Templates struct {
	mu     sync.RWMutex
	pages  map[string]*template.Template
	fsys   fs.FS
	funcs  template.FuncMap
	logger *log.Logger
}

// LoadTemplates parses the embedded templates, or the ones in dir when it
// is not empty.
func LoadTemplates(dir string, logger *log.Logger, now func() time.Time) (*Templates, error) {
	var fsys fs.FS
	if dir != "" {
		fsys = os.DirFS(dir)
	} else {
		sub, err := fs.Sub(appweb.TemplatesFS, "templates")
		if err != nil {
			return nil, fmt.Errorf("embedded templates: %w", err)
		}
		fsys = sub
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	t := &Templates{fsys: fsys, funcs: templateFuncs(now), logger: logger.WithComponent(log.ComponentTemplate)}
	if err := t.reload(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Templates) reload() error {
	base, err := template.New("").Funcs(t.funcs).ParseFS(t.fsys, sharedTemplates...)
	if err != nil {
		return fmt.Errorf("parse shared templates: %w", err)
	}
	files, err := fs.Glob(t.fsys, "*.html")
	if err != nil {
		return err
	}
	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		if isShared(file) {
			continue
		}
		clone, err := base.Clone()
		if err != nil {
			return err
		}
		if _, err := clone.ParseFS(t.fsys, file); err != nil {
			return fmt.Errorf("parse %s: %w", file, err)
		}
		pages[strings.TrimSuffix(file, ".html")] = clone
	}

	t.mu.Lock()
	t.pages = pages
	t.mu.Unlock()
	return nil
}

func isShared(name string) bool {
	for _, s := range sharedTemplates {
		if s == name {
			return true
		}
	}
	return false
}

// Has reports whether a page template exists.
func (t *Templates) Has(page string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.pages[page]
	return ok
}

// Render executes the full layout for page. Output is buffered so a
// template error never produces half a page.
func (t *Templates) Render(w io.Writer, page string, data any) error {
	return t.execute(w, page, "layout", data)
}

// RenderBlock executes a single named template of page, for htmx partials.
func (t *Templates) RenderBlock(w io.Writer, page, block string, data any) error {
	return t.execute(w, page, block, data)
}

func (t *Templates) execute(w io.Writer, page, name string, data any) error {
	t.mu.RLock()
	tmpl, ok := t.pages[page]
	t.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

// Watch reparses templates when files in dir change, until ctx is done.
// A failed reparse keeps the previous set.
func (t *Templates) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	t.logger.InfoContext(ctx, "Watching templates for changes", "dir", dir)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if path.Ext(ev.Name) != ".html" || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) {
					continue
				}
				if err := t.reload(); err != nil {
					t.logger.ErrorContext(ctx, "Template reload failed", log.FieldError, err, "file", ev.Name)
					continue
				}
				t.logger.InfoContext(ctx, "Templates reloaded", "file", ev.Name)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				t.logger.WarnContext(ctx, "Template watcher error", log.FieldError, err)
			}
		}
	}()
	return nil
}

func templateFuncs(now func() time.Time) template.FuncMap {
	if now == nil {
		now = time.Now
	}
	return template.FuncMap{
		"money":     core.FormatCurrency,
		"date":      core.FormatDate,
		"inputDate": core.InputDate,
		"relDate":   func(t *time.Time) string { return core.FormatRelativeDate(t, now()) },
		"day":       func(t time.Time) string { return t.Format(core.DateLayout) },
		"ptr":       func(t time.Time) *time.Time { return &t },
		"overdue": func(t core.Task) bool {
			return t.IsOverdue(now())
		},
		"width": func(p int) int {
			return min(max(p, 0), 100)
		},
		"dict":             dict,
		"eventTypes":       func() []core.EventType { return core.EventTypes },
		"supplierStatuses": func() []core.SupplierStatus { return core.SupplierStatuses },
		"taskStatuses":     func() []core.TaskStatus { return core.TaskStatuses },
		"paymentMethods":   func() []core.PaymentMethod { return core.PaymentMethods },
		"currencies":       func() []core.Currency { return core.Currencies },
		"memberRoles":      func() []core.MemberRole { return core.MemberRoles },
		"categories":       func() []string { return core.SupplierCategories },
	}
}

// dict builds a map from alternating keys and values so partials can take
// more than one argument.
func dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, fmt.Errorf("dict: odd number of arguments")
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
		}
		m[k] = kv[i+1]
	}
	return m, nil
}
