// Package webagent hosts the research agent: its public metadata and agent
// card, the A2A executor, and the HTTP gateway routes.
package webagent

import (
	"strings"

	"github.com/a2aproject/a2a-go/a2a"
)

// MetadataExtensionURI identifies the agent-card extension that carries
// Metadata.
const MetadataExtensionURI = "https://brightdata.com/a2a/extensions/agent-metadata/v1"

// Version is reported in the agent card.
const Version = "1.0.0"

// ToolInfo names a tool the agent advertises.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// EnvVar describes an environment variable the agent reads.
type EnvVar struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

type Capability struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Author struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	URL   string `json:"url"`
}

// Metadata is the descriptive information published with the agent.
type Metadata struct {
	Name              string       `json:"name"`
	DisplayName       string       `json:"display_name"`
	Description       string       `json:"description"`
	UIType            string       `json:"ui_type"`
	Greeting          string       `json:"user_greeting"`
	Tools             []ToolInfo   `json:"tools"`
	Env               []EnvVar     `json:"env"`
	RecommendedModels []string     `json:"recommended_models"`
	Capabilities      []Capability `json:"capabilities"`
	Framework         string       `json:"framework"`
	Author            Author       `json:"author"`
}

// DefaultMetadata describes the Bright Data web agent.
func DefaultMetadata() Metadata {
	return Metadata{
		Name:        "the_web_agent",
		DisplayName: "The Web Agent",
		Description: "Conversational agent with memory, supporting real-time search, scraping and structured data extraction.",
		UIType:      "chat",
		Greeting:    "Hello! I'm your Web Search assistant. What would you like to browse today?",
		Tools: []ToolInfo{
			{Name: "search_engine", Description: "Search Google, Bing or Yandex and return the results page as markdown."},
			{Name: "scrape_as_markdown", Description: "Scrape a web page and return its content as markdown."},
		},
		Env: []EnvVar{
			{Name: "BRIGHT_DATA_API_TOKEN", Description: "Required API key for Bright Data - The Web MCP Integration", Required: true},
			{Name: "GOOGLE_API_KEY", Description: "Required API key for Google Gemini Integration", Required: true},
		},
		RecommendedModels: []string{"gemini-2.0-flash"},
		Capabilities: []Capability{
			{Name: "Web Search", Description: "search using Google, Bing or Yandex"},
			{Name: "Structured Data extraction", Description: "extract structured data from 40+ Data feeds"},
			{Name: "Web Data Extraction", Description: "Extract Data from web pages at scale without getting blocked"},
		},
		Framework: "ADK",
		Author: Author{
			Name:  "Meirk",
			Email: "meirk@brightdata.com",
			URL:   "https://brightdata.com",
		},
	}
}

// Card builds the A2A agent card served at invokeURL. Each capability
// becomes a skill; the full metadata rides in a card extension.
func (m Metadata) Card(invokeURL string) *a2a.AgentCard {
	skills := make([]a2a.AgentSkill, 0, len(m.Capabilities))
	for _, c := range m.Capabilities {
		skills = append(skills, a2a.AgentSkill{
			ID:          skillID(c.Name),
			Name:        c.Name,
			Description: c.Description,
			Tags:        []string{"web", "research"},
			Examples:    skillExamples[c.Name],
		})
	}

	return &a2a.AgentCard{
		Name:               m.Name,
		Description:        m.Description,
		URL:                invokeURL,
		Version:            Version,
		Provider:           &a2a.AgentProvider{Org: "Bright Data", URL: m.Author.URL},
		Skills:             skills,
		DefaultInputModes:  []string{"text/plain"},
		DefaultOutputModes: []string{"text/plain", "application/json"},
		PreferredTransport: a2a.TransportProtocolJSONRPC,
		Capabilities: a2a.AgentCapabilities{
			Streaming: true,
			Extensions: []a2a.AgentExtension{{
				URI:         MetadataExtensionURI,
				Description: "Display and configuration metadata for chat front ends.",
				Params:      m.params(),
			}},
		},
	}
}

var skillExamples = map[string][]string{
	"Web Search": {
		"Should I buy the new espresso machine from Quantum Brews?",
		"Compare the iPad Pro M4 and the iPad Air M2",
	},
	"Structured Data extraction": {"Summarize the Amazon reviews for the Kindle Paperwhite"},
	"Web Data Extraction":        {"Extract the pricing table from https://example.com/pricing"},
}

func skillID(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

// params flattens the metadata into the extension's free-form params.
func (m Metadata) params() map[string]any {
	return map[string]any{
		"display_name":       m.DisplayName,
		"ui_type":            m.UIType,
		"user_greeting":      m.Greeting,
		"tools":              m.Tools,
		"env":                m.Env,
		"recommended_models": m.RecommendedModels,
		"capabilities":       m.Capabilities,
		"framework":          m.Framework,
		"author":             m.Author,
	}
}
