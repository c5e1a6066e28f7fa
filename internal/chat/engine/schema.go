package engine

import (
	"github.com/leapstack-ai/sop-copilot-backend/internal/ai"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// Tool names
const (
	ToolWriteDocument = "write_document"
	ToolCreateSOP     = "create_sop"
	ToolUpdateSOP     = "update_sop"
	ToolDeleteSOP     = "delete_sop"
)

// toolSchemas declares every tool exposed to the completion source. The
// dispatcher is validated against this list at startup: a schema without a
// handler (or the reverse) fails construction.
//
// The SOP-authoring tools take the whole SOP serialized as a JSON string
// argument rather than a nested object, so the model must produce one
// syntactically self-contained JSON document.
func toolSchemas() []ai.Tool {
	return []ai.Tool{
		{
			Name:        ToolWriteDocument,
			Description: "Write or overwrite an HTML document for the current workflow step. Use this for any deliverable the user asked for.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"stepId": {
						Type:        jsonschema.String,
						Description: "The id of the workflow step this document belongs to.",
					},
					"documentName": {
						Type:        jsonschema.String,
						Description: "Human-readable document name. Writing the same name again overwrites the document.",
					},
					"content": {
						Type:        jsonschema.String,
						Description: "The full document as HTML.",
					},
				},
				Required: []string{"stepId", "documentName", "content"},
			},
		},
		{
			Name:        ToolCreateSOP,
			Description: "Create a new Standard Operating Procedure. The sop argument must be the complete SOP object serialized as a JSON string.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"sop": {
						Type:        jsonschema.String,
						Description: "The SOP as a JSON string with id, name, display_name and a steps array.",
					},
				},
				Required: []string{"sop"},
			},
		},
		{
			Name:        ToolUpdateSOP,
			Description: "Overwrite an existing Standard Operating Procedure. The sop argument must be the complete SOP object serialized as a JSON string.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"sop": {
						Type:        jsonschema.String,
						Description: "The full replacement SOP as a JSON string.",
					},
				},
				Required: []string{"sop"},
			},
		},
		{
			Name:        ToolDeleteSOP,
			Description: "Delete a Standard Operating Procedure by id. Built-in SOPs cannot be deleted.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"sopId": {
						Type:        jsonschema.String,
						Description: "The id of the SOP to delete.",
					},
				},
				Required: []string{"sopId"},
			},
		},
	}
}
