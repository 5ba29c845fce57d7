package webagent

import "testing"

func TestDefaultMetadata(t *testing.T) {
	m := DefaultMetadata()
	if m.DisplayName != "The Web Agent" {
		t.Errorf("DisplayName = %q", m.DisplayName)
	}
	if m.Greeting != "Hello! I'm your Web Search assistant. What would you like to browse today?" {
		t.Errorf("Greeting = %q", m.Greeting)
	}
	if len(m.Tools) != 2 || m.Tools[0].Name != "search_engine" || m.Tools[1].Name != "scrape_as_markdown" {
		t.Errorf("Tools = %+v", m.Tools)
	}
	for _, env := range m.Env {
		if !env.Required {
			t.Errorf("env %s should be required", env.Name)
		}
	}
	if len(m.RecommendedModels) != 1 || m.RecommendedModels[0] != "gemini-2.0-flash" {
		t.Errorf("RecommendedModels = %v", m.RecommendedModels)
	}
	if len(m.Capabilities) != 3 {
		t.Errorf("Capabilities = %+v", m.Capabilities)
	}
}

func TestMetadata_Card(t *testing.T) {
	m := DefaultMetadata()
	card := m.Card("http://localhost:1107/invoke")

	if card.URL != "http://localhost:1107/invoke" {
		t.Errorf("URL = %q", card.URL)
	}
	if card.Name != m.Name || card.Version != Version {
		t.Errorf("Name/Version = %q/%q", card.Name, card.Version)
	}
	if !card.Capabilities.Streaming {
		t.Error("streaming capability not set")
	}

	wantSkills := []string{"web_search", "structured_data_extraction", "web_data_extraction"}
	if len(card.Skills) != len(wantSkills) {
		t.Fatalf("skills = %+v", card.Skills)
	}
	for i, id := range wantSkills {
		if card.Skills[i].ID != id {
			t.Errorf("skill %d ID = %q, want %q", i, card.Skills[i].ID, id)
		}
	}

	if len(card.Capabilities.Extensions) != 1 {
		t.Fatalf("extensions = %+v", card.Capabilities.Extensions)
	}
	ext := card.Capabilities.Extensions[0]
	if ext.URI != MetadataExtensionURI {
		t.Errorf("extension URI = %q", ext.URI)
	}
	if ext.Params["user_greeting"] != m.Greeting {
		t.Errorf("greeting param = %v", ext.Params["user_greeting"])
	}
	if ext.Params["display_name"] != "The Web Agent" {
		t.Errorf("display_name param = %v", ext.Params["display_name"])
	}
}
