// Package cli holds the kong plumbing shared by every batchreview command:
// the root flags, context bindings, injected services and session flags.
package cli

import (
	"github.com/alecthomas/kong"

	"github.com/jh125486/batchreview/pkg/contextlog"
)

type (
	// Version is the released version, bound for command Run methods.
	Version string
	// BuildID identifies the commit the binary was built from.
	BuildID string
)

// BaseCLI defines the core fields for all CLIs using our framework.
type BaseCLI struct {
	Version   kong.VersionFlag `help:"Show version and exit" name:"version"`
	LogLevel  string           `default:"info"               enum:"debug,info,warn,error" env:"LOG_LEVEL"  help:"Log level"  name:"log-level"`
	LogFormat string           `default:"text"               enum:"text,json"             env:"LOG_FORMAT" help:"Log format" name:"log-format"`
}

// AfterApply installs the process logger once flags are parsed.
func (b *BaseCLI) AfterApply(ctx Context) error {
	contextlog.New(ctx, contextlog.Options{
		Level:  b.LogLevel,
		Format: b.LogFormat,
	})
	return nil
}
