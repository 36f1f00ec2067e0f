package stage

// Names of the built-in creative stages, in pipeline order.
const (
	Strategy       = "strategy"
	StyleGuide     = "style_guide"
	CreativeExpert = "creative_expert"
	PromptAssembly = "prompt_assembly"
	Assessment     = "assessment"
)

// DefaultOrder lists the built-in stages in execution order.
func DefaultOrder() []string {
	return []string{Strategy, StyleGuide, CreativeExpert, PromptAssembly, Assessment}
}

// Known reports whether name is a built-in stage.
func Known(name string) bool {
	for _, n := range DefaultOrder() {
		if n == name {
			return true
		}
	}
	return false
}
