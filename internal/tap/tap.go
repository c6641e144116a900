// Package tap provides a transparent decorator around the action pipeline
// that logs every action, a bounded-depth state diff, and processing time.
package tap

import (
	"fmt"
	"reflect"
	"time"

	"github.com/rs/zerolog"

	"marketsync/internal/action"
	"marketsync/internal/logging"
	"marketsync/internal/store"
)

// Config holds tap configuration.
type Config struct {
	Enabled  bool
	MaxDepth int // diff recursion bound; deeper changes collapse to one entry
}

// Tap observes dispatched actions without altering them or the resulting
// state. When disabled it forwards actions untouched.
type Tap struct {
	cfg    Config
	logger zerolog.Logger
	state  func() store.State
}

// New creates a tap. Bind must be called with the store's state accessor
// before the first dispatch flows through the middleware.
func New(cfg Config, logger zerolog.Logger) *Tap {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 3
	}
	return &Tap{
		cfg:    cfg,
		logger: logging.WithComponent(logger, "tap"),
	}
}

// Bind attaches the state accessor used to capture before/after snapshots.
func (t *Tap) Bind(state func() store.State) {
	t.state = state
}

// Middleware returns the dispatch decorator.
func (t *Tap) Middleware() store.Middleware {
	return func(next store.Dispatch) store.Dispatch {
		return func(a action.Action) {
			if !t.cfg.Enabled || t.state == nil {
				next(a)
				return
			}

			before := t.state()
			start := time.Now()
			next(a)
			elapsed := time.Since(start)
			after := t.state()

			changes := Diff(before, after, t.cfg.MaxDepth)
			event := t.logger.Debug().
				Str("action", string(a.Type())).
				Dur("elapsed", elapsed).
				Int("changes", len(changes))
			for path, change := range changes {
				event = event.Str("diff:"+path, change)
			}
			event.Msg("Action applied")
		}
	}
}

// Diff returns the changed paths between two states, descending at most
// maxDepth levels. Changes below the bound collapse into their parent
// path, keeping diff cost bounded on deep entity graphs.
func Diff(before, after store.State, maxDepth int) map[string]string {
	changes := make(map[string]string)
	diffValue(reflect.ValueOf(before), reflect.ValueOf(after), "", 1, maxDepth, changes)
	return changes
}

func diffValue(a, b reflect.Value, path string, depth, maxDepth int, out map[string]string) {
	if a.Type() != b.Type() {
		out[path] = "type changed"
		return
	}

	if depth > maxDepth {
		if !reflect.DeepEqual(a.Interface(), b.Interface()) {
			out[path] = "changed"
		}
		return
	}

	switch a.Kind() {
	case reflect.Struct:
		for i := 0; i < a.NumField(); i++ {
			field := a.Type().Field(i)
			if !field.IsExported() {
				continue
			}
			diffValue(a.Field(i), b.Field(i), joinPath(path, field.Name), depth+1, maxDepth, out)
		}
	case reflect.Map:
		for _, key := range a.MapKeys() {
			bv := b.MapIndex(key)
			if !bv.IsValid() {
				out[joinPath(path, fmt.Sprint(key.Interface()))] = "removed"
				continue
			}
			diffValue(a.MapIndex(key), bv, joinPath(path, fmt.Sprint(key.Interface())), depth+1, maxDepth, out)
		}
		for _, key := range b.MapKeys() {
			if !a.MapIndex(key).IsValid() {
				out[joinPath(path, fmt.Sprint(key.Interface()))] = "added"
			}
		}
	case reflect.Slice:
		if a.Len() != b.Len() {
			out[path] = fmt.Sprintf("len %d -> %d", a.Len(), b.Len())
			return
		}
		for i := 0; i < a.Len(); i++ {
			diffValue(a.Index(i), b.Index(i), fmt.Sprintf("%s[%d]", path, i), depth+1, maxDepth, out)
		}
	default:
		if !reflect.DeepEqual(a.Interface(), b.Interface()) {
			out[path] = fmt.Sprintf("%v -> %v", truncate(a.Interface()), truncate(b.Interface()))
		}
	}
}

func joinPath(base, field string) string {
	if base == "" {
		return field
	}
	return base + "." + field
}

func truncate(v interface{}) string {
	s := fmt.Sprint(v)
	if len(s) > 64 {
		return s[:61] + "..."
	}
	return s
}
