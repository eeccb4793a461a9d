package descriptor

// ExecutableSpec describes the external model executable: where it lives,
// its argument string, the .info artifact, and the shared-library
// dependencies it needs at launch. Every string may contain brace
// placeholders resolved against the run's variables.
type ExecutableSpec struct {
	Description ExecutableDescription `yaml:"description,omitempty"`
	Location    string                `yaml:"location"`
	Arguments   string                `yaml:"arguments"`
	Info        ExecutableInfo        `yaml:"info"`
	Library     ExecutableLibrary     `yaml:"library"`
}

// ExecutableDescription carries free-form identification of the execution.
type ExecutableDescription struct {
	Name string `yaml:"execution_name,omitempty"`
	Mode string `yaml:"execution_mode,omitempty"`
}

// ExecutableInfo locates the per-timestamp invocation descriptor artifact.
type ExecutableInfo struct {
	Location string `yaml:"location"`
}

// ExecutableLibrary locates the library copy of the executable and its
// runtime dependencies, in declaration order.
type ExecutableLibrary struct {
	Location     string   `yaml:"location"`
	Dependencies []string `yaml:"dependencies"`
}
