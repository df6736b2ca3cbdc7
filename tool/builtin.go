package tool

// CoreToolsOptions configures RegisterCoreTools.
type CoreToolsOptions struct {
	// Shell configures the execute_command tool.
	Shell ShellToolOptions

	// EnableMCP registers the MCP bridge tools. Off by default; enable it
	// when a resource client is attached to the execution context.
	EnableMCP bool
}

// RegisterCoreTools registers the standard tool set (filesystem, shell and
// task control tools, plus the MCP bridge when enabled) on the catalog.
func RegisterCoreTools(catalog *Catalog, optFns ...func(o *CoreToolsOptions)) {
	opts := CoreToolsOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	RegisterFileTools(catalog)
	RegisterShellTool(catalog, func(o *ShellToolOptions) {
		if opts.Shell.Shell != "" {
			o.Shell = opts.Shell.Shell
		}
		if opts.Shell.Timeout > 0 {
			o.Timeout = opts.Shell.Timeout
		}
		if opts.Shell.MaxOutputBytes > 0 {
			o.MaxOutputBytes = opts.Shell.MaxOutputBytes
		}
	})
	RegisterTaskTools(catalog)

	if opts.EnableMCP {
		RegisterMCPTools(catalog)
	}
}
