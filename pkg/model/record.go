package model

// ConfigurationRecord is the finalized variable mapping emitted for one
// timestamp: every resolved variable plus the descriptor's literal
// pass-through fields. It is the provenance artifact serialized back to JSON.
type ConfigurationRecord map[string]any

// Clone returns a shallow copy of the record.
func (r ConfigurationRecord) Clone() ConfigurationRecord {
	out := make(ConfigurationRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ExecutionDescriptor is the invocation descriptor consumed by the external
// process-launch collaborator. The engine never invokes the executable.
type ExecutionDescriptor struct {
	ExecutablePath  string   `json:"executable_path"`
	ArgumentList    []string `json:"argument_list"`
	InfoPath        string   `json:"info_path,omitempty"`
	LibraryPath     string   `json:"library_path,omitempty"`
	DependencyPaths []string `json:"dependency_paths,omitempty"`
	// LdLibraryPath is the LD_LIBRARY_PATH value assembled from the
	// dependency directories, ready for the launching collaborator.
	LdLibraryPath string `json:"ld_library_path,omitempty"`
	Cached        bool   `json:"cached,omitempty"`
}
