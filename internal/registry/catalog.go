package registry

import (
	"github.com/nulzo/chat-registry/internal/llm"
	"github.com/nulzo/chat-registry/internal/llm/processing"
	"github.com/nulzo/chat-registry/pkg/api"
)

// DefaultModel is the identifier selected when the client names none.
const DefaultModel = "qwen-qwq"

// Vendor describes one upstream service and where its credential lives.
type Vendor struct {
	// Name keys the vendor in configuration (vendors.<name>.base_url).
	Name string
	// Type is the llm factory type.
	Type string
	// Secret names the credential; empty for vendors without one.
	Secret string
}

// Binding maps a registry identifier to a vendor model.
type Binding struct {
	ID       string
	Vendor   string
	Upstream string
	// ReasoningTag enables reasoning extraction with the given tag.
	ReasoningTag string
}

// Catalog is the static description a Registry is built from.
type Catalog struct {
	Vendors  []Vendor
	Bindings []Binding
	Details  map[string]api.ModelInfo
	Default  string
}

// SecretOwner returns the vendor whose credential is named secret.
func (c *Catalog) SecretOwner(secret string) (Vendor, bool) {
	for _, v := range c.Vendors {
		if v.Secret != "" && v.Secret == secret {
			return v, true
		}
	}
	return Vendor{}, false
}

// Secrets lists the credential names of every vendor, in vendor order.
func (c *Catalog) Secrets() []string {
	var out []string
	for _, v := range c.Vendors {
		if v.Secret != "" {
			out = append(out, v.Secret)
		}
	}
	return out
}

// DefaultCatalog returns a fresh copy of the built-in catalog.
func DefaultCatalog() *Catalog {
	details := make(map[string]api.ModelInfo, len(modelDetails))
	for id, info := range modelDetails {
		info.Capabilities = append([]string(nil), info.Capabilities...)
		details[id] = info
	}
	return &Catalog{
		Vendors:  append([]Vendor(nil), vendors...),
		Bindings: append([]Binding(nil), bindings...),
		Details:  details,
		Default:  DefaultModel,
	}
}

var vendors = []Vendor{
	{Name: "openai", Type: string(llm.OpenAI), Secret: "OPENAI_API_KEY"},
	{Name: "anthropic", Type: string(llm.Anthropic), Secret: "ANTHROPIC_API_KEY"},
	{Name: "groq", Type: string(llm.Groq), Secret: "GROQ_API_KEY"},
	{Name: "xai", Type: string(llm.XAI), Secret: "XAI_API_KEY"},
	{Name: "ollama", Type: string(llm.Ollama)},
}

var bindings = []Binding{
	{ID: "gpt-4.1-mini", Vendor: "openai", Upstream: "gpt-4.1-mini"},
	{ID: "claude-3-7-sonnet", Vendor: "anthropic", Upstream: "claude-3-7-sonnet-20250219"},
	{ID: "qwen-qwq", Vendor: "groq", Upstream: "qwen-qwq-32b", ReasoningTag: processing.DefaultTag},
	{ID: "grok-3-mini", Vendor: "xai", Upstream: "grok-3-mini-latest"},
	{ID: "llama3", Vendor: "ollama", Upstream: "llama3"},
	{ID: "mistral", Vendor: "ollama", Upstream: "mistral"},
	{ID: "llava", Vendor: "ollama", Upstream: "llava"},
	{ID: "qwen3", Vendor: "ollama", Upstream: "qwen3"},
}

var modelDetails = map[string]api.ModelInfo{
	"gpt-4.1-mini": {
		Provider:     "OpenAI",
		Name:         "GPT-4.1 Mini",
		Description:  "Compact version of OpenAI's GPT-4.1 with good balance of capabilities, including vision.",
		APIVersion:   "gpt-4.1-mini",
		Capabilities: []string{"Balance", "Creative", "Vision"},
	},
	"claude-3-7-sonnet": {
		Provider:     "Anthropic",
		Name:         "Claude 3.7 Sonnet",
		Description:  "Latest version of Anthropic's Claude 3.7 Sonnet with strong reasoning and coding capabilities.",
		APIVersion:   "claude-3-7-sonnet-20250219",
		Capabilities: []string{"Reasoning", "Efficient", "Agentic"},
	},
	"qwen-qwq": {
		Provider:     "Groq",
		Name:         "Qwen QWQ",
		Description:  "Latest version of Alibaba's Qwen QWQ with strong reasoning and coding capabilities.",
		APIVersion:   "qwen-qwq",
		Capabilities: []string{"Reasoning", "Efficient", "Agentic"},
	},
	"grok-3-mini": {
		Provider:     "XAI",
		Name:         "Grok 3 Mini",
		Description:  "Latest version of XAI's Grok 3 Mini with strong reasoning and coding capabilities.",
		APIVersion:   "grok-3-mini-latest",
		Capabilities: []string{"Reasoning", "Efficient", "Agentic"},
	},
	"llama3": {
		Provider:     "Ollama",
		Name:         "Llama 3",
		Description:  "The latest Llama 3 model from Meta, running locally via Ollama.",
		APIVersion:   "llama3",
		Capabilities: []string{"Local", "Fast", "Reasoning"},
	},
	"mistral": {
		Provider:     "Ollama",
		Name:         "Mistral",
		Description:  "The popular Mistral 7B model, running locally via Ollama.",
		APIVersion:   "mistral",
		Capabilities: []string{"Local", "Fast", "Coding"},
	},
	"llava": {
		Provider:     "Ollama",
		Name:         "LLaVA",
		Description:  "A local multimodal model (vision) that can describe images.",
		APIVersion:   "llava",
		Capabilities: []string{"Local", "Vision", "Efficient"},
	},
	"qwen3": {
		Provider:     "Ollama",
		Name:         "Qwen 3",
		Description:  "The latest Qwen 3 model, running locally via Ollama.",
		APIVersion:   "qwen3",
		Capabilities: []string{"Local", "Fast", "Reasoning"},
	},
}
