package ai

import (
	"encoding/json"
	"os"
	"sort"
)

// Model metadata and simple pricing helpers for budget warnings.
// Prices are illustrative; sync from a JSON file to keep them current.

type ModelInfo struct {
	Name          string
	Provider      string
	ContextTokens int     // approximate context window
	InputPerK     float64 // USD per 1K input tokens
	OutputPerK    float64 // USD per 1K output tokens
}

var models = map[string]ModelInfo{
	"openai/gpt-4o-mini":          {"openai/gpt-4o-mini", ProviderOpenRouter, 128000, 0.00015, 0.0006},
	"openai/gpt-4o":               {"openai/gpt-4o", ProviderOpenRouter, 128000, 0.0025, 0.01},
	"openai/gpt-4":                {"openai/gpt-4", ProviderOpenRouter, 8192, 0.03, 0.06},
	"anthropic/claude-3.5-sonnet": {"anthropic/claude-3.5-sonnet", ProviderOpenRouter, 200000, 0.003, 0.015},
	"anthropic/claude-3-haiku":    {"anthropic/claude-3-haiku", ProviderOpenRouter, 200000, 0.00025, 0.00125},
	"deepseek/deepseek-r1:free":   {"deepseek/deepseek-r1:free", ProviderOpenRouter, 128000, 0, 0},
	"gpt-4o-mini":                 {"gpt-4o-mini", ProviderOpenAI, 128000, 0.00015, 0.0006},
	"gpt-4o":                      {"gpt-4o", ProviderOpenAI, 128000, 0.0025, 0.01},
	"gpt-4":                       {"gpt-4", ProviderOpenAI, 8192, 0.03, 0.06},
	"gemini-2.0-flash":            {"gemini-2.0-flash", ProviderGemini, 1048576, 0.0001, 0.0004},
	"gemini-1.5-pro":              {"gemini-1.5-pro", ProviderGemini, 2097152, 0.00125, 0.005},
	"llama3.1:8b":                 {"llama3.1:8b", ProviderOllama, 131072, 0, 0},
	"llama3:latest":               {"llama3:latest", ProviderOllama, 8192, 0, 0},
	"mistral:7b-instruct":         {"mistral:7b-instruct", ProviderOllama, 8192, 0, 0},
}

var defaultModels = map[string]string{
	ProviderOpenRouter: "openai/gpt-4o-mini",
	ProviderOpenAI:     "gpt-4o-mini",
	ProviderGemini:     "gemini-2.0-flash",
	ProviderOllama:     "llama3.1:8b",
}

// DefaultModel returns the model used for provider when none is configured.
func DefaultModel(provider string) (string, bool) {
	m, ok := defaultModels[provider]
	return m, ok
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// ModelsFor lists catalog entries for provider sorted by name; empty provider lists all.
func ModelsFor(provider string) []ModelInfo {
	var out []ModelInfo
	for _, m := range models {
		if provider == "" || m.Provider == provider {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// EstimateCostUSD estimates total cost in USD for given tokens using model pricing.
// If the model is unknown, returns 0 and ok=false.
func EstimateCostUSD(model string, promptTokens, completionTokens int) (float64, bool) {
	mi, ok := LookupModel(model)
	if !ok {
		return 0, false
	}
	inCost := (float64(promptTokens) / 1000.0) * mi.InputPerK
	outCost := (float64(completionTokens) / 1000.0) * mi.OutputPerK
	return inCost + outCost, true
}

// LoadCatalogFromJSON loads a JSON object map[string]ModelInfo from a file path.
// Example entry:
// { "openai/gpt-4o-mini": {"Name":"openai/gpt-4o-mini","Provider":"openrouter","ContextTokens":128000,"InputPerK":0.00015,"OutputPerK":0.0006} }
func LoadCatalogFromJSON(path string) (map[string]ModelInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var m map[string]ModelInfo
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// MergeCatalog merges/overrides entries in the in-memory catalog.
func MergeCatalog(m map[string]ModelInfo) {
	for k, v := range m {
		if v.Name == "" {
			v.Name = k
		}
		models[k] = v
	}
}
