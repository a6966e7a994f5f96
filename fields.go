package quill

import (
	"strings"
	"sync"

	"github.com/zoobzio/sentinel"
)

var (
	catalogOnce sync.Once
	catalog     map[Field]bool
)

// knownFields returns the field names declared by Record's json tags.
// The catalogue is built once using sentinel.
func knownFields() map[Field]bool {
	catalogOnce.Do(func() {
		metadata := sentinel.Inspect[Record]()
		catalog = make(map[Field]bool, len(metadata.Fields))
		for _, field := range metadata.Fields {
			name := getJSONFieldName(field)
			if name == "-" {
				continue
			}
			catalog[Field(name)] = true
		}
	})
	return catalog
}

// IsKnown reports whether f is a field of the pipeline state.
func (f Field) IsKnown() bool {
	return knownFields()[f]
}

// getJSONFieldName extracts the JSON field name from metadata.
func getJSONFieldName(field sentinel.FieldMetadata) string {
	if jsonTag, ok := field.Tags["json"]; ok {
		// Handle "name,omitempty" format
		parts := strings.Split(jsonTag, ",")
		if len(parts) > 0 && parts[0] != "" {
			return parts[0]
		}
	}

	// Default to lowercase field name
	return strings.ToLower(field.Name[:1]) + field.Name[1:]
}
