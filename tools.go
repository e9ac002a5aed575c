//go:build tools

package tools

// Tool dependencies tracked in go.mod. Mocks under pkg/*/mocks are
// regenerated with go generate ./...
import (
	_ "github.com/vektra/mockery/v2"
)
