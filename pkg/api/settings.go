package api

type HostSettings struct {
	Host        string `json:"host"`
	DefaultHost string `json:"default_host"`
	Context     string `json:"context"`
}

type UpdateHostRequest struct {
	Host string `json:"host"`
}

type UpdateHostResponse struct {
	Host         string       `json:"host"`
	Notification Notification `json:"notification"`
}

// Notification is a toast-style message for the user.
type Notification struct {
	Level   string `json:"level"` // "success" | "error"
	Message string `json:"message"`
}

// CredentialStatus never carries the secret value.
type CredentialStatus struct {
	Name       string `json:"name"`
	Vendor     string `json:"vendor,omitempty"`
	Configured bool   `json:"configured"`
	Source     string `json:"source,omitempty"` // "env" | "store"
}

type PutCredentialRequest struct {
	Value string `json:"value" binding:"required"`
}
