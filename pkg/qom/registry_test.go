package qom

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pearpc/devrt/pkg/trace"
)

type testClass struct {
	ObjectClass
	Greeting string
	Hook     func() string
}

type testObj struct {
	Instance
	Trail []string
}

type kindedObj struct {
	Instance
}

func (*kindedObj) ObjectKind() Kind { return KindDevice }

type recordingTrace struct {
	mu     sync.Mutex
	events []trace.Event
}

func (r *recordingTrace) Log(e trace.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingTrace) ops() []trace.Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make([]trace.Op, len(r.events))
	for i, e := range r.events {
		ops[i] = e.Op
	}
	return ops
}

func trailInit(name string) func(Object) {
	return func(obj Object) {
		o := obj.(*testObj)
		o.Trail = append(o.Trail, name)
	}
}

func TestBuiltinTypes(t *testing.T) {
	r := NewRegistry(DefaultConfig())

	for _, name := range []string{TypeDevice, TypeBus, TypeSysBusDevice} {
		info, err := r.Find(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, info.Name)
	}

	info, err := r.Find(TypeSysBusDevice)
	require.NoError(t, err)
	assert.Equal(t, TypeDevice, info.Parent)

	_, err = r.Create(TypeDevice)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.FindClass(TypeBus)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindUnknown(t *testing.T) {
	r := NewRegistry(DefaultConfig())

	_, err := r.Find("nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.FindClass("nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.Create("nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegisterInvalid(t *testing.T) {
	r := NewRegistry(DefaultConfig())

	assert.ErrorIs(t, r.Register(nil, nil, nil), ErrInvalidType)
	assert.ErrorIs(t, r.Register(&TypeInfo{}, nil, nil), ErrInvalidType)

	shared := &testClass{}
	require.NoError(t, r.Register(&TypeInfo{Name: "one"}, shared, nil))
	assert.ErrorIs(t, r.Register(&TypeInfo{Name: "two"}, shared, nil), ErrInvalidType)
}

func TestDuplicateRegistrationFirstWins(t *testing.T) {
	r := NewRegistry(DefaultConfig())

	first := &TypeInfo{
		Name: "dup",
		ClassInit: func(cls Class, _ any) {
			cls.(*testClass).Greeting = "first"
		},
	}
	second := &TypeInfo{
		Name: "dup",
		ClassInit: func(cls Class, _ any) {
			cls.(*testClass).Greeting = "second"
		},
	}

	require.NoError(t, RegisterType[testClass, testObj](r, first))
	require.NoError(t, RegisterType[testClass, testObj](r, second))

	info, err := r.Find("dup")
	require.NoError(t, err)
	assert.Same(t, first, info)

	cls, err := r.FindClass("dup")
	require.NoError(t, err)
	assert.Equal(t, "first", cls.(*testClass).Greeting)
}

func TestInstanceInitOrder(t *testing.T) {
	r := NewRegistry(DefaultConfig())

	require.NoError(t, RegisterType[testClass, testObj](r, &TypeInfo{
		Name:         "A",
		InstanceInit: trailInit("A"),
	}))
	require.NoError(t, RegisterType[testClass, testObj](r, &TypeInfo{
		Name:         "B",
		Parent:       "A",
		InstanceInit: trailInit("B"),
	}))
	require.NoError(t, RegisterType[testClass, testObj](r, &TypeInfo{
		Name:             "C",
		Parent:           "B",
		InstanceInit:     trailInit("C"),
		InstancePostInit: trailInit("C.post"),
	}))

	obj, err := r.Create("C")
	require.NoError(t, err)

	o := obj.(*testObj)
	assert.Equal(t, []string{"A", "B", "C", "C.post"}, o.Trail)
	assert.Equal(t, "C", o.TypeName())
	assert.True(t, o.Initialized())
	assert.Same(t, obj, o.Self())
	assert.Same(t, r, o.Registry())
	assert.NotEqual(t, [16]byte{}, [16]byte(o.ID()))
}

func TestPostInitRunsAfterAllInits(t *testing.T) {
	r := NewRegistry(DefaultConfig())

	require.NoError(t, RegisterType[testClass, testObj](r, &TypeInfo{
		Name:             "base",
		InstanceInit:     trailInit("base"),
		InstancePostInit: trailInit("base.post"),
	}))
	require.NoError(t, RegisterType[testClass, testObj](r, &TypeInfo{
		Name:             "leaf",
		Parent:           "base",
		InstanceInit:     trailInit("leaf"),
		InstancePostInit: trailInit("leaf.post"),
	}))

	obj, err := r.Create("leaf")
	require.NoError(t, err)
	assert.Equal(t, []string{"base", "leaf", "base.post", "leaf.post"}, obj.(*testObj).Trail)
}

func TestClassInitOrder(t *testing.T) {
	r := NewRegistry(DefaultConfig())

	var calls []string
	record := func(hook string) func(Class, any) {
		return func(cls Class, data any) {
			calls = append(calls, fmt.Sprintf("%s(%s,%v)", hook, cls.Class().TypeName(), data))
		}
	}

	require.NoError(t, RegisterType[testClass, testObj](r, &TypeInfo{
		Name:          "A",
		ClassInit:     record("A.init"),
		ClassBaseInit: record("A.base"),
		ClassData:     "a",
	}))
	require.NoError(t, RegisterType[testClass, testObj](r, &TypeInfo{
		Name:          "B",
		Parent:        "A",
		ClassInit:     record("B.init"),
		ClassBaseInit: record("B.base"),
		ClassData:     "b",
	}))
	require.NoError(t, RegisterType[testClass, testObj](r, &TypeInfo{
		Name:      "C",
		Parent:    "B",
		ClassInit: record("C.init"),
		ClassData: "c",
	}))

	_, err := r.FindClass("C")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"A.init(A,a)",
		"A.init(B,a)",
		"A.base(B,b)",
		"B.init(B,b)",
		"B.init(C,b)",
		"B.base(C,c)",
		"A.base(C,c)",
		"C.init(C,c)",
	}, calls)
}

func TestClassOverride(t *testing.T) {
	r := NewRegistry(DefaultConfig())

	require.NoError(t, RegisterAbstract[testClass](r, &TypeInfo{
		Name:     "adb-device",
		Abstract: true,
		ClassInit: func(cls Class, _ any) {
			c := cls.(*testClass)
			c.Greeting = "base"
			c.Hook = func() string { return "default" }
		},
	}))
	require.NoError(t, RegisterType[testClass, testObj](r, &TypeInfo{
		Name:   "adb-keyboard",
		Parent: "adb-device",
		ClassInit: func(cls Class, _ any) {
			cls.(*testClass).Hook = func() string { return "keyboard" }
		},
	}))
	require.NoError(t, RegisterType[testClass, testObj](r, &TypeInfo{
		Name:   "adb-plain",
		Parent: "adb-device",
	}))

	obj, err := r.Create("adb-keyboard")
	require.NoError(t, err)
	kbd, ok := ClassAs[*testClass](obj)
	require.True(t, ok)
	assert.Equal(t, "keyboard", kbd.Hook())
	assert.Equal(t, "base", kbd.Greeting)

	plain, err := r.FindClass("adb-plain")
	require.NoError(t, err)
	assert.Equal(t, "default", plain.(*testClass).Hook())

	_, err = r.Create("adb-device")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClassSingletonShared(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	require.NoError(t, RegisterType[testClass, testObj](r, &TypeInfo{Name: "single"}))

	a, err := r.Create("single")
	require.NoError(t, err)
	b, err := r.Create("single")
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Same(t, a.ObjectInstance().Class(), b.ObjectInstance().Class())
	assert.NotEqual(t, a.ObjectInstance().ID(), b.ObjectInstance().ID())
}

func TestRegisterAfterSeal(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	require.NoError(t, RegisterType[testClass, testObj](r, &TypeInfo{Name: "early"}))
	assert.False(t, r.Sealed())

	_, err := r.FindClass("early")
	require.NoError(t, err)
	assert.True(t, r.Sealed())

	err = RegisterType[testClass, testObj](r, &TypeInfo{Name: "late"})
	assert.ErrorIs(t, err, ErrSealed)

	_, err = r.Find("late")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTypeCycle(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	require.NoError(t, RegisterType[testClass, testObj](r, &TypeInfo{Name: "x", Parent: "y"}))
	require.NoError(t, RegisterType[testClass, testObj](r, &TypeInfo{Name: "y", Parent: "x"}))
	require.NoError(t, RegisterType[testClass, testObj](r, &TypeInfo{Name: "ok"}))

	_, err := r.FindClass("x")
	assert.ErrorIs(t, err, ErrTypeCycle)

	_, err = r.Create("y")
	assert.ErrorIs(t, err, ErrTypeCycle)

	_, err = r.Ancestors("x")
	assert.ErrorIs(t, err, ErrTypeCycle)

	// Unrelated types are unaffected.
	_, err = r.Create("ok")
	assert.NoError(t, err)
}

func TestMissingParent(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	require.NoError(t, RegisterType[testClass, testObj](r, &TypeInfo{Name: "orphan", Parent: "ghost"}))

	_, err := r.Create("orphan")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "ghost")
}

func TestAncestorsAndSubtype(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	require.NoError(t, RegisterType[testClass, testObj](r, &TypeInfo{Name: "timer-dev", Parent: TypeSysBusDevice}))

	anc, err := r.Ancestors("timer-dev")
	require.NoError(t, err)
	require.Len(t, anc, 2)
	assert.Equal(t, TypeSysBusDevice, anc[0].Name)
	assert.Equal(t, TypeDevice, anc[1].Name)

	assert.True(t, r.IsSubtype("timer-dev", TypeDevice))
	assert.True(t, r.IsSubtype("timer-dev", "timer-dev"))
	assert.False(t, r.IsSubtype("timer-dev", TypeBus))
	assert.False(t, r.IsSubtype("unknown", TypeDevice))
}

func TestTypesRegistrationOrder(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	require.NoError(t, RegisterType[testClass, testObj](r, &TypeInfo{Name: "first"}))
	require.NoError(t, RegisterType[testClass, testObj](r, &TypeInfo{Name: "second"}))

	var names []string
	for _, info := range r.Types() {
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{TypeDevice, TypeBus, TypeSysBusDevice, "first", "second"}, names)
}

func TestClassPassRunsOnce(t *testing.T) {
	r := NewRegistry(DefaultConfig())

	var count atomic.Int32
	require.NoError(t, RegisterType[testClass, testObj](r, &TypeInfo{
		Name: "counted",
		ClassInit: func(Class, any) {
			count.Add(1)
		},
	}))

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Create("counted")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), count.Load())
}

func TestInitChild(t *testing.T) {
	type parentObj struct {
		testObj
		Child testObj
	}

	r := NewRegistry(DefaultConfig())
	require.NoError(t, RegisterType[testClass, testObj](r, &TypeInfo{
		Name:         "child",
		InstanceInit: trailInit("child"),
	}))
	require.NoError(t, r.Register(&TypeInfo{Name: "holder"}, &testClass{}, func() Object { return &parentObj{} }))

	obj, err := r.Create("holder")
	require.NoError(t, err)
	p := obj.(*parentObj)

	require.NoError(t, r.InitChild(p, &p.Child, "child"))
	assert.Equal(t, "child", p.Child.TypeName())
	assert.Equal(t, []string{"child"}, p.Child.Trail)
	assert.Same(t, p, p.Child.Container())

	err = r.InitChild(p, &p.Child, "child")
	assert.ErrorIs(t, err, ErrAlreadyInitialized)

	var other testObj
	assert.ErrorIs(t, r.InitChild(p, &other, "missing"), ErrNotFound)
}

func TestKindAndAs(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	require.NoError(t, RegisterType[testClass, kindedObj](r, &TypeInfo{Name: "kinded"}))
	require.NoError(t, RegisterType[testClass, testObj](r, &TypeInfo{Name: "plain"}))

	k, err := r.Create("kinded")
	require.NoError(t, err)
	assert.Equal(t, KindDevice, k.ObjectInstance().Kind())

	p, err := r.Create("plain")
	require.NoError(t, err)
	assert.Equal(t, KindGeneric, p.ObjectInstance().Kind())

	_, ok := As[*kindedObj](k)
	assert.True(t, ok)
	_, ok = As[*kindedObj](p)
	assert.False(t, ok)
	_, ok = As[*kindedObj](nil)
	assert.False(t, ok)
}

func TestInstall(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	boom := errors.New("boom")

	err := r.Install(
		ModuleFunc(func(r *Registry) error {
			return RegisterType[testClass, testObj](r, &TypeInfo{Name: "mod-a"})
		}),
		ModuleFunc(func(*Registry) error { return boom }),
	)
	assert.ErrorIs(t, err, boom)

	_, err = r.Find("mod-a")
	assert.NoError(t, err)
}

func TestRegistryTrace(t *testing.T) {
	rec := &recordingTrace{}
	r := NewRegistry(Config{Trace: rec})
	require.NoError(t, RegisterType[testClass, testObj](r, &TypeInfo{Name: "traced"}))

	_, err := r.Create("traced")
	require.NoError(t, err)

	ops := rec.ops()
	assert.Contains(t, ops, trace.OpRegister)
	assert.Contains(t, ops, trace.OpClassInit)
	assert.Equal(t, trace.OpCreate, ops[len(ops)-1])
}

func TestDefaultRegistry(t *testing.T) {
	assert.Same(t, Default(), Default())
	_, err := Default().Find(TypeDevice)
	assert.NoError(t, err)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "GENERIC", KindGeneric.String())
	assert.Equal(t, "DEVICE", KindDevice.String())
	assert.Equal(t, "BUS", KindBus.String())
	assert.Equal(t, "UNKNOWN", Kind(9).String())
}
