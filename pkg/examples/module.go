package examples

import (
	"log/slog"

	"github.com/pearpc/devrt/pkg/input"
	"github.com/pearpc/devrt/pkg/qom"
	"github.com/pearpc/devrt/pkg/timer"
)

// Type names registered by Module.
const (
	TypeADBBus      = "adb-bus"
	TypeADBDevice   = "adb-device"
	TypeADBKeyboard = "adb-keyboard"
	TypeADBMouse    = "adb-mouse"
	TypeVIATimer    = "via-timer"
	TypeCUDA        = "cuda"
)

// Env holds the collaborators device realize hooks need. It reaches the
// device classes as class data.
type Env struct {
	Scheduler *timer.Scheduler
	Input     *input.Router
	Logger    *slog.Logger
}

func (e *Env) logger() *slog.Logger {
	if e == nil || e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// Module registers the reference device types.
type Module struct {
	Env *Env
}

// Register implements qom.Module.
func (m Module) Register(r *qom.Registry) error {
	steps := []func(*qom.Registry, *Env) error{
		registerADB,
		registerVIA,
		registerCUDA,
	}
	for _, step := range steps {
		if err := step(r, m.Env); err != nil {
			return err
		}
	}
	return nil
}

// envFromClassData returns the Env passed as class data, if any.
func envFromClassData(data any) *Env {
	env, _ := data.(*Env)
	return env
}
