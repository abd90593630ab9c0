package actions

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// planDocument mirrors the wire shape of Plan for schema generation. The
// sum types cannot be reflected directly, so variants are flattened.
type planDocument struct {
	Actions []actionDocument `json:"actions" jsonschema:"required,description=Ordered list of actions to perform"`
}

type actionDocument struct {
	Type  string         `json:"type" jsonschema:"required,enum=respond,enum=tool"`
	Text  string         `json:"text,omitempty" jsonschema:"description=Text returned to the user when type is respond"`
	Tool  string         `json:"tool,omitempty" jsonschema:"enum=http.fetch,enum=fs.read,description=Tool to invoke when type is tool"`
	Input *inputDocument `json:"input,omitempty" jsonschema:"description=Tool input when type is tool"`
}

type inputDocument struct {
	URL       string `json:"url,omitempty" jsonschema:"description=Absolute URL for http.fetch"`
	Path      string `json:"path,omitempty" jsonschema:"description=File path for fs.read"`
	TimeoutMs int    `json:"timeoutMs,omitempty" jsonschema:"minimum=1,description=Optional http.fetch timeout in milliseconds"`
	MaxBytes  int    `json:"maxBytes,omitempty" jsonschema:"minimum=1,description=Optional maximum number of bytes to return"`
}

// Schema returns the JSON Schema describing a valid action plan.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}
	schema := reflector.Reflect(&planDocument{})

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal action plan schema: %w", err)
	}
	return data, nil
}
