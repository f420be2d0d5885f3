package llmclient

type ModelLevel string

const (
	ModelLevelLow    ModelLevel = "low"
	ModelLevelMiddle ModelLevel = "middle"
	ModelLevelHigh   ModelLevel = "high"
)

// Model describes one reviewer model available to callers.
type Model struct {
	Provider  string     `json:"provider"`
	Name      string     `json:"name"`
	Level     ModelLevel `json:"level"`
	MaxTokens int        `json:"maxTokens"`
}

// catalog is the fixed set of supported reviewer models.
var catalog = []Model{
	{Provider: "gemini", Name: "gemini-2.5-flash", Level: ModelLevelLow, MaxTokens: 12000},
	{Provider: "gemini", Name: "gemini-2.5-pro", Level: ModelLevelHigh, MaxTokens: 12000},
	{Provider: "groq", Name: "llama-3.3-70b-versatile", Level: ModelLevelMiddle, MaxTokens: 6000},
	{Provider: "groq", Name: "llama-3.1-8b-instant", Level: ModelLevelLow, MaxTokens: 6000},
}

// Models returns the catalog.
func Models() []Model {
	out := make([]Model, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a catalog entry by model name.
func Lookup(name string) (Model, bool) {
	for _, m := range catalog {
		if m.Name == name {
			return m, true
		}
	}
	return Model{}, false
}
