package cli

import (
	"context"

	"github.com/alecthomas/kong"
)

// Context wraps context.Context to work around reflection issues in Kong's Bind().
// Use this as the parameter type for Kong command Run methods.
type Context struct {
	context.Context
}

// NewKongContext creates and configures a Kong parser context for a CLI application.
// It binds the context, a default *Service, the version and the build ID for
// command Run methods; opts are applied last and may override those bindings.
// Pass nil for args to use os.Args (typical for production), or provide custom args for testing.
func NewKongContext(ctx context.Context, name, version, commit, date string, cli any, args []string, opts ...kong.Option) *kong.Context {
	base := []kong.Option{
		kong.Name(name),
		kong.UsageOnError(),
		kong.Vars{"version": VersionString(name, version, commit, date)},
		kong.Bind(Context{ctx}, NewService(), Version(version), BuildID(commit)),
	}
	parser, err := kong.New(cli, append(base, opts...)...)
	if err != nil {
		panic(err)
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		parser.Errorf("%s", err)
		panic(err)
	}
	return kctx
}
