package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	sdkserver "github.com/mark3labs/mcp-go/server"

	"github.com/mumez/neobridge/internal/bridge"
)

// noOutput is returned for successful evaluations that printed nothing,
// so agents can tell "ran silently" from an empty response.
const noOutput = "No output"

// registerTools declares every tool the bridge exposes. Parameter
// presence is re-checked by the dispatcher; the declarations here only
// drive the schema agents see.
func registerTools(s *sdkserver.MCPServer, d *bridge.Dispatcher) {
	s.AddTool(mcp.NewTool("evaluate_smalltalk_with_neo_console",
		mcp.WithDescription("Evaluate a Pharo Smalltalk expression using the persistent NeoConsole session."),
		mcp.WithString("expression", mcp.Required(), mcp.Description("The Smalltalk expression to evaluate")),
		mcp.WithString("command", mcp.Description("The NeoConsole command to use (default: eval)")),
	), dispatchHandler(d, bridge.OpEval, "expression", "command"))

	s.AddTool(mcp.NewTool("evaluate_simple_smalltalk",
		mcp.WithDescription("Evaluate a Pharo Smalltalk expression in a fresh one-shot VM using the -e option."),
		mcp.WithString("expression", mcp.Required(), mcp.Description("The Smalltalk expression to evaluate")),
	), dispatchHandler(d, bridge.OpSimpleEval, "expression"))

	s.AddTool(mcp.NewTool("get_pharo_metric",
		mcp.WithDescription("Get a runtime metric from the Pharo image (e.g. system.status, memory.free)."),
		mcp.WithString("metric", mcp.Required(), mcp.Description("The metric to retrieve")),
	), dispatchHandler(d, bridge.OpMetric, "metric"))

	s.AddTool(mcp.NewTool("get_class_comment",
		mcp.WithDescription("Get the comment of a Pharo class."),
		mcp.WithString("class_name", mcp.Required(), mcp.Description("The class to get the comment for")),
	), dispatchHandler(d, bridge.OpClassComment, "class_name"))

	s.AddTool(mcp.NewTool("get_class_definition",
		mcp.WithDescription("Get the definition of a Pharo class."),
		mcp.WithString("class_name", mcp.Required(), mcp.Description("The class to get the definition for")),
	), dispatchHandler(d, bridge.OpClassDefinition, "class_name"))

	s.AddTool(mcp.NewTool("get_method_list",
		mcp.WithDescription("Get the method selectors of a Pharo class."),
		mcp.WithString("class_name", mcp.Required(), mcp.Description("The class to list selectors for")),
	), dispatchHandler(d, bridge.OpMethodList, "class_name"))

	s.AddTool(mcp.NewTool("get_method_source",
		mcp.WithDescription("Get the source code of a specific method in a Pharo class."),
		mcp.WithString("class_name", mcp.Required(), mcp.Description("The class owning the method")),
		mcp.WithString("selector", mcp.Required(), mcp.Description("The method selector (message name)")),
	), dispatchHandler(d, bridge.OpMethodSource, "class_name", "selector"))

	s.AddTool(mcp.NewTool("install_package",
		mcp.WithDescription("Install a Pharo package using Metacello."),
		mcp.WithString("baseline", mcp.Required(), mcp.Description("The baseline name of the package (e.g. 'Historia')")),
		mcp.WithString("repository", mcp.Required(), mcp.Description("The repository URL (e.g. 'github://mumez/Historia:main/src')")),
	), dispatchHandler(d, bridge.OpInstallPackage, "baseline", "repository"))

	s.AddTool(mcp.NewTool("get_neo_console_command_history",
		mcp.WithDescription("Get the numbered command history of the current NeoConsole session."),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(d.History().String()), nil
	})

	// quit_neo_console and shutdown_repl_session are the same operation
	// under the supervised single-session model.
	closeSession := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		d.Shutdown()
		return mcp.NewToolResultText("NeoConsole REPL session shutdown complete"), nil
	}
	s.AddTool(mcp.NewTool("quit_neo_console",
		mcp.WithDescription("Quit the persistent NeoConsole session."),
	), closeSession)
	s.AddTool(mcp.NewTool("shutdown_repl_session",
		mcp.WithDescription("Close the persistent NeoConsole session; the next session call reconnects."),
	), closeSession)
}

// dispatchHandler adapts a bridge operation into an MCP tool handler,
// copying the named arguments into the request parameters.
func dispatchHandler(d *bridge.Dispatcher, op bridge.Op, params ...string) sdkserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := map[string]string{}
		for _, name := range params {
			args[name] = req.GetString(name, "")
		}
		res := d.Dispatch(ctx, bridge.NewRequest(op, args))
		return toolResult(res), nil
	}
}

// toolResult renders a normalized result for the agent, keeping the
// "could not reach Pharo" vs "Pharo reported an error" distinction.
func toolResult(res bridge.Result) *mcp.CallToolResult {
	if res.OK {
		if res.Payload == "" {
			return mcp.NewToolResultText(noOutput)
		}
		return mcp.NewToolResultText(res.Payload)
	}
	if res.Err.Reachable() {
		return mcp.NewToolResultError("Pharo reported an error: " + res.Err.Message)
	}
	return mcp.NewToolResultError(res.Err.Error())
}
