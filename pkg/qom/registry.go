package qom

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/pearpc/devrt/pkg/trace"
)

// Registry errors.
var (
	ErrNotFound    = errors.New("type not found")
	ErrTypeCycle   = errors.New("type hierarchy cycle")
	ErrSealed      = errors.New("registry sealed: class initialization has run")
	ErrInvalidType = errors.New("invalid type")
)

// Factory allocates a zero-valued instance of a concrete type.
type Factory func() Object

// Config configures a Registry.
type Config struct {
	// Logger receives debug logs for registrations and class init.
	// Defaults to slog.Default().
	Logger *slog.Logger

	// Trace receives registration and creation events. Nil disables tracing.
	Trace trace.Logger
}

// DefaultConfig returns the default registry configuration.
func DefaultConfig() Config {
	return Config{}
}

type entry struct {
	info     *TypeInfo
	class    Class
	factory  Factory
	classErr error
}

// Registry maps type names to descriptors, class singletons and factories.
//
// Registration is safe for concurrent use until the class pass runs; after
// that the registry is read-only and Register returns ErrSealed.
type Registry struct {
	mu     sync.RWMutex
	types  map[string]*entry
	order  []*entry
	sealed bool

	classOnce sync.Once

	logger *slog.Logger
	trace  trace.Logger
}

// NewRegistry creates a registry holding the builtin types.
func NewRegistry(cfg Config) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		types:  make(map[string]*entry),
		logger: logger,
		trace:  cfg.Trace,
	}
	for _, info := range builtinTypes() {
		// Builtins are descriptor-only and never collide.
		_ = r.Register(info, nil, nil)
	}
	return r
}

// Logger returns the registry's operational logger.
func (r *Registry) Logger() *slog.Logger {
	return r.logger
}

// Trace returns the registry's trace logger, never nil.
func (r *Registry) Trace() trace.Logger {
	return trace.OrNoop(r.trace)
}

// Register adds a type. cls is the zero class singleton, or nil for a
// descriptor-only type; factory is nil for types that cannot be created.
//
// Registering a name that already exists is a no-op returning nil: the
// first registration wins.
func (r *Registry) Register(info *TypeInfo, cls Class, factory Factory) error {
	if info == nil || info.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidType)
	}

	r.mu.Lock()
	if r.sealed {
		r.mu.Unlock()
		return fmt.Errorf("register %q: %w", info.Name, ErrSealed)
	}
	if _, exists := r.types[info.Name]; exists {
		r.mu.Unlock()
		r.logger.Debug("type_register_duplicate", "name", info.Name)
		return nil
	}
	if cls != nil {
		oc := cls.Class()
		if oc.info != nil {
			r.mu.Unlock()
			return fmt.Errorf("%w: class for %q already bound to %q", ErrInvalidType, info.Name, oc.info.Name)
		}
		oc.info = info
	}
	e := &entry{info: info, class: cls, factory: factory}
	r.types[info.Name] = e
	r.order = append(r.order, e)
	r.mu.Unlock()

	r.logger.Debug("type_register", "name", info.Name, "parent", info.Parent, "abstract", info.Abstract)
	trace.Emit(r.trace, trace.Event{
		Category: trace.CategoryType,
		Op:       trace.OpRegister,
		TypeName: info.Name,
		Related:  info.Parent,
	})
	return nil
}

// Install registers the types of each module in order.
func (r *Registry) Install(mods ...Module) error {
	for _, m := range mods {
		if err := m.Register(r); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) lookup(name string) (*entry, error) {
	r.mu.RLock()
	e, ok := r.types[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return e, nil
}

// Find returns the descriptor registered under name.
func (r *Registry) Find(name string) (*TypeInfo, error) {
	e, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return e.info, nil
}

// FindClass returns the class singleton of name, running the class pass
// first if it has not run yet.
func (r *Registry) FindClass(name string) (Class, error) {
	r.initClasses()
	e, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	if e.class == nil {
		return nil, fmt.Errorf("%w: %q has no class", ErrNotFound, name)
	}
	if e.classErr != nil {
		return nil, e.classErr
	}
	return e.class, nil
}

// Create instantiates a concrete type.
func (r *Registry) Create(name string) (Object, error) {
	r.initClasses()
	e, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	if e.info.Abstract {
		return nil, fmt.Errorf("%w: %q is abstract", ErrNotFound, name)
	}
	if e.factory == nil || e.class == nil {
		return nil, fmt.Errorf("%w: %q cannot be instantiated", ErrNotFound, name)
	}
	if e.classErr != nil {
		return nil, e.classErr
	}

	obj := e.factory()
	if obj == nil {
		return nil, fmt.Errorf("%w: factory for %q returned nil", ErrInvalidType, name)
	}
	if err := obj.ObjectInstance().bind(obj, e.class, r); err != nil {
		return nil, fmt.Errorf("create %q: %w", name, err)
	}
	if err := r.InitObject(obj, e.info); err != nil {
		return nil, err
	}

	trace.Emit(r.trace, trace.Event{
		Category: trace.CategoryObject,
		Op:       trace.OpCreate,
		TypeName: name,
		ObjectID: obj.ObjectInstance().ID().String(),
	})
	return obj, nil
}

// InitObject runs the instance init hooks of info's lineage on obj, root
// first, followed by the post-init hooks in the same order.
func (r *Registry) InitObject(obj Object, info *TypeInfo) error {
	chain, err := r.lineage(info)
	if err != nil {
		return err
	}
	for _, ti := range chain {
		if ti.InstanceInit != nil {
			ti.InstanceInit(obj)
		}
	}
	for _, ti := range chain {
		if ti.InstancePostInit != nil {
			ti.InstancePostInit(obj)
		}
	}
	return nil
}

// InitChild initializes an object embedded by value inside parent as an
// instance of typeName and records parent as its container.
func (r *Registry) InitChild(parent, child Object, typeName string) error {
	r.initClasses()
	e, err := r.lookup(typeName)
	if err != nil {
		return err
	}
	if e.class == nil {
		return fmt.Errorf("%w: %q has no class", ErrNotFound, typeName)
	}
	if e.classErr != nil {
		return e.classErr
	}
	inst := child.ObjectInstance()
	if err := inst.bind(child, e.class, r); err != nil {
		return fmt.Errorf("init child %q: %w", typeName, err)
	}
	inst.SetContainer(parent)
	if err := r.InitObject(child, e.info); err != nil {
		return err
	}

	event := trace.Event{
		Category: trace.CategoryObject,
		Op:       trace.OpInitChild,
		TypeName: typeName,
		ObjectID: inst.ID().String(),
	}
	if parent != nil {
		event.Related = parent.ObjectInstance().TypeName()
	}
	trace.Emit(r.trace, event)
	return nil
}

// lineage returns info and its ancestors, root first.
func (r *Registry) lineage(info *TypeInfo) ([]*TypeInfo, error) {
	var chain []*TypeInfo
	seen := make(map[string]bool)
	for ti := info; ; {
		if seen[ti.Name] {
			return nil, fmt.Errorf("%w: %q", ErrTypeCycle, info.Name)
		}
		seen[ti.Name] = true
		chain = append(chain, ti)
		if !ti.HasParent() {
			break
		}
		parent, err := r.Find(ti.Parent)
		if err != nil {
			return nil, fmt.Errorf("type %q: parent: %w", ti.Name, err)
		}
		ti = parent
	}
	slices.Reverse(chain)
	return chain, nil
}

// Ancestors returns the ancestors of name, nearest first.
func (r *Registry) Ancestors(name string) ([]*TypeInfo, error) {
	info, err := r.Find(name)
	if err != nil {
		return nil, err
	}
	chain, err := r.lineage(info)
	if err != nil {
		return nil, err
	}
	chain = chain[:len(chain)-1]
	slices.Reverse(chain)
	return chain, nil
}

// IsSubtype reports whether name is ancestor or derives from it.
func (r *Registry) IsSubtype(name, ancestor string) bool {
	info, err := r.Find(name)
	if err != nil {
		return false
	}
	chain, err := r.lineage(info)
	if err != nil {
		return false
	}
	for _, ti := range chain {
		if ti.Name == ancestor {
			return true
		}
	}
	return false
}

// Types returns all descriptors in registration order.
func (r *Registry) Types() []*TypeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]*TypeInfo, len(r.order))
	for i, e := range r.order {
		infos[i] = e.info
	}
	return infos
}

// Sealed reports whether the class pass has started.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Seal runs the class pass now. Later calls are no-ops.
func (r *Registry) Seal() {
	r.initClasses()
}

func (r *Registry) initClasses() {
	r.classOnce.Do(func() {
		r.mu.Lock()
		r.sealed = true
		entries := slices.Clone(r.order)
		r.mu.Unlock()

		for _, e := range entries {
			if e.class == nil {
				continue
			}
			if err := r.initClass(e); err != nil {
				e.classErr = err
				r.logger.Warn("class_init_failed", "name", e.info.Name, "error", err)
			}
		}
	})
}

func (r *Registry) initClass(e *entry) error {
	info := e.info
	chain, err := r.lineage(info)
	if err != nil {
		return err
	}
	cls := e.class

	if len(chain) > 1 {
		parent := chain[len(chain)-2]
		if parent.ClassInit != nil {
			parent.ClassInit(cls, parent.ClassData)
		}
		for i := len(chain) - 2; i >= 0; i-- {
			if ancestor := chain[i]; ancestor.ClassBaseInit != nil {
				ancestor.ClassBaseInit(cls, info.ClassData)
			}
		}
	}
	if info.ClassInit != nil {
		info.ClassInit(cls, info.ClassData)
	}

	r.logger.Debug("class_init", "name", info.Name, "depth", len(chain)-1)
	trace.Emit(r.trace, trace.Event{
		Category: trace.CategoryType,
		Op:       trace.OpClassInit,
		TypeName: info.Name,
		Related:  info.Parent,
	})
	return nil
}
