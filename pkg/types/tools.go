package types

// Tool names accepted in Entry.Tool.
const (
	ToolCargo                 = "cargo"
	ToolGo                    = "go"
	ToolBenchmarkJS           = "benchmarkjs"
	ToolPytest                = "pytest"
	ToolGoogleCpp             = "googlecpp"
	ToolCatch2                = "catch2"
	ToolJulia                 = "julia"
	ToolJMH                   = "jmh"
	ToolBenchmarkDotNet       = "benchmarkdotnet"
	ToolCustomBiggerIsBetter  = "customBiggerIsBetter"
	ToolCustomSmallerIsBetter = "customSmallerIsBetter"
	ToolPrometheus            = "prometheus"
)

var knownTools = map[string]bool{
	ToolCargo:                 false,
	ToolGo:                    false,
	ToolBenchmarkJS:           true,
	ToolPytest:                true,
	ToolGoogleCpp:             false,
	ToolCatch2:                false,
	ToolJulia:                 false,
	ToolJMH:                   false,
	ToolBenchmarkDotNet:       false,
	ToolCustomBiggerIsBetter:  true,
	ToolCustomSmallerIsBetter: false,
	ToolPrometheus:            false,
}

// KnownTool reports whether tool is a recognised benchmark tool name.
func KnownTool(tool string) bool {
	_, ok := knownTools[tool]
	return ok
}

// IsBiggerBetter reports whether a larger value means an improvement for
// results produced by tool. Unknown tools are treated as smaller-is-better.
func IsBiggerBetter(tool string) bool {
	return knownTools[tool]
}
