package api

// ModelInfo is the human-readable metadata for one registry identifier.
type ModelInfo struct {
	Provider     string   `json:"provider"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	APIVersion   string   `json:"api_version"`
	Capabilities []string `json:"capabilities"`
}

// ModelEntry is a ModelInfo together with its identifier.
type ModelEntry struct {
	ID string `json:"id"`
	ModelInfo
}

type ModelList struct {
	Object  string       `json:"object"`
	Default string       `json:"default"`
	Data    []ModelEntry `json:"data"`
}
