package registry

import (
	"embed"
	"encoding/json"
	"log/slog"
	"path"
	"strings"

	"github.com/digitallysavvy/go-llm/pkg/provider/types"
)

//go:embed metadata/*.json
var catalogFS embed.FS

// ProviderInfo is the provider-level section of a catalog file.
type ProviderInfo struct {
	// Env lists API-key environment variable names, most specific first.
	Env []string `json:"env"`
}

// ModelMetadata is one catalog entry.
type ModelMetadata struct {
	ID         string `json:"id"`
	Limit      types.Limit `json:"limit"`
	Modalities struct {
		Input  []string `json:"input"`
		Output []string `json:"output"`
	} `json:"modalities"`
	Cost types.Cost `json:"cost"`

	Reasoning   bool  `json:"reasoning"`
	ToolCall    bool  `json:"tool_call"`
	Temperature *bool `json:"temperature"`
	Attachment  bool  `json:"attachment"`
}

// ModalitiesOrDefault applies the text-only boundary default.
func (m ModelMetadata) ModalitiesOrDefault() types.Modalities {
	out := types.Modalities{Input: m.Modalities.Input, Output: m.Modalities.Output}
	if len(out.Input) == 0 {
		out.Input = []string{"text"}
	}
	if len(out.Output) == 0 {
		out.Output = []string{"text"}
	}
	return out
}

// CapabilitiesOrDefault applies the all-false-except-temperature default.
func (m ModelMetadata) CapabilitiesOrDefault() types.Capabilities {
	caps := types.Capabilities{
		Reasoning:   m.Reasoning,
		ToolCall:    m.ToolCall,
		Attachment:  m.Attachment,
		Temperature: true,
	}
	if m.Temperature != nil {
		caps.Temperature = *m.Temperature
	}
	return caps
}

// ProviderMetadata is one parsed catalog file.
type ProviderMetadata struct {
	Provider ProviderInfo    `json:"provider"`
	Models   []ModelMetadata `json:"models"`
}

// Model looks up a catalog entry by model id. Catalogs are small; a scan
// keeps the snapshot free of mutable lookup state.
func (p *ProviderMetadata) Model(id string) (*ModelMetadata, bool) {
	for i := range p.Models {
		if p.Models[i].ID == id {
			return &p.Models[i], true
		}
	}
	return nil, false
}

// loadEmbeddedCatalog parses every embedded metadata file. A file that
// fails to parse is logged with the provider name and skipped; catalog
// problems never abort registry initialization. Hyphens in file names map
// to underscores in provider ids.
func loadEmbeddedCatalog(log *slog.Logger) map[string]*ProviderMetadata {
	out := make(map[string]*ProviderMetadata)

	files, err := catalogFS.ReadDir("metadata")
	if err != nil {
		log.Warn("reading embedded model catalog", "error", err)
		return out
	}
	for _, file := range files {
		name := file.Name()
		data, err := catalogFS.ReadFile(path.Join("metadata", name))
		if err != nil {
			log.Warn("reading catalog file", "file", name, "error", err)
			continue
		}
		var meta ProviderMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			log.Warn("parsing catalog file", "file", name, "error", err)
			continue
		}
		id := strings.ReplaceAll(strings.TrimSuffix(name, ".json"), "-", "_")
		out[id] = &meta
	}
	return out
}
