package feeds

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Source describes one configured feed: a display name and an RSS endpoint.
type Source struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

var defaultSources = []Source{
	{Name: "Autosport", URL: "https://www.autosport.com/rss/f1/news/"},
	{Name: "Motorsport.com", URL: "https://www.motorsport.com/rss/f1/news/"},
	{Name: "BBC Sport F1", URL: "https://feeds.bbci.co.uk/sport/formula1/rss.xml"},
	{Name: "RaceFans", URL: "https://www.racefans.net/feed/"},
	{Name: "GPblog", URL: "https://www.gpblog.com/en/rss"},
}

const sourcesSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "required": ["name", "url"],
    "additionalProperties": false,
    "properties": {
      "name": {"type": "string", "minLength": 1},
      "url": {"type": "string", "minLength": 1, "pattern": "^https?://"}
    }
  }
}`

var sourcesSchema = jsonschema.MustCompileString("sources.schema.json", sourcesSchemaJSON)

// LoadSources resolves the feed list. An optional JSON file replaces the
// built-in list entirely; FEED_SOURCE_<n> environment entries (format
// "Name|URL", 1-based index) then override individual positions.
func LoadSources(sourcesFile string) ([]Source, error) {
	sources := make([]Source, len(defaultSources))
	copy(sources, defaultSources)

	if path := strings.TrimSpace(sourcesFile); path != "" {
		fromFile, err := loadSourcesFile(path)
		if err != nil {
			return nil, err
		}
		sources = fromFile
	}

	for i := range sources {
		override := strings.TrimSpace(os.Getenv(fmt.Sprintf("FEED_SOURCE_%d", i+1)))
		if override == "" {
			continue
		}
		source, err := parseSourceOverride(override)
		if err != nil {
			return nil, fmt.Errorf("FEED_SOURCE_%d: %w", i+1, err)
		}
		sources[i] = source
	}

	return sources, nil
}

func loadSourcesFile(path string) ([]Source, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file %q: %w", path, err)
	}

	var value any
	if err := json.Unmarshal(payload, &value); err != nil {
		return nil, fmt.Errorf("decode sources file %q: %w", path, err)
	}
	if err := sourcesSchema.Validate(value); err != nil {
		return nil, fmt.Errorf("sources file %q failed schema validation: %w", path, err)
	}

	var sources []Source
	if err := json.Unmarshal(payload, &sources); err != nil {
		return nil, fmt.Errorf("decode sources file %q: %w", path, err)
	}
	return sources, nil
}

func parseSourceOverride(raw string) (Source, error) {
	parts := strings.SplitN(raw, "|", 2)
	if len(parts) != 2 {
		return Source{}, fmt.Errorf("must be in \"Name|URL\" format")
	}
	name := strings.TrimSpace(parts[0])
	url := strings.TrimSpace(parts[1])
	if name == "" || url == "" {
		return Source{}, fmt.Errorf("name and URL must not be empty")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return Source{}, fmt.Errorf("URL must start with http:// or https://")
	}
	return Source{Name: name, URL: url}, nil
}
