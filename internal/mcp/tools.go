package mcp

import (
	"github.com/google/jsonschema-go/jsonschema"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// answerSchema accepts the encodings Answer understands. null means missing.
func answerSchema(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Types:       []string{"string", "integer", "boolean", "null"},
		Description: desc,
	}
}

func layoutSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Enum:        []any{"caseControl", "cohort"},
		Description: "Study design. caseControl reports odds ratios, cohort reports risk ratios.",
	}
}

func requestProperties() map[string]*jsonschema.Schema {
	return map[string]*jsonschema.Schema{
		"layout": layoutSchema(),
		"subjects": {
			Type:        "array",
			Description: "One entry per person in the line list.",
			Items: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"outcome": answerSchema(`"1" for case/ill, "0" for control/well, null when unknown`),
					"exposures": {
						Type:        "array",
						Description: "Answers in factor order.",
						Items:       answerSchema(`"1" exposed, "0" unexposed, null when unknown`),
					},
				},
				Required: []string{"outcome", "exposures"},
			},
		},
		"factors": {
			Type:        "array",
			Description: "Exposure definitions, index-aligned with each subject's exposures. Omit to analyze generic placeholder factors.",
			Items: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"id":          {Type: "string"},
					"displayName": {Type: "string"},
				},
				Required: []string{"id"},
			},
		},
		"yatesCorrectionEnabled": {
			Type:        "boolean",
			Description: "Apply the Yates continuity correction to chi-square tests. Defaults to the server setting.",
		},
	}
}

func datasetIDSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: "ID returned by dataset_import or dataset_list"}
}

func (s *Server) registerTools() {
	s.server.AddTool(&sdk.Tool{
		Name: "analyze_association",
		Description: "Screen every exposure factor of an outbreak line list against the outcome. " +
			"Builds a 2x2 table per factor, runs chi-square (or Fisher's exact test for sparse tables) " +
			"and estimates the odds ratio (case-control) or risk ratio (cohort) with a 95% confidence interval.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: requestProperties(),
			Required:   []string{"subjects"},
		},
	}, s.handleAnalyzeAssociation)

	s.server.AddTool(&sdk.Tool{
		Name: "dataset_import",
		Description: "Import a line list from a .csv, .xlsx or .json file on the server's file system. " +
			"The header row names the columns: one outcome column, an optional id column, every other column is an exposure factor.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path":             {Type: "string", Description: "Absolute path, or relative to DATA_PATH"},
				"name":             {Type: "string", Description: "Display name. Defaults to the file name."},
				"layout":           layoutSchema(),
				"outcome_column":   {Type: "string", Description: "Header of the outcome column (default: outcome)"},
				"id_column":        {Type: "string", Description: "Header of the subject id column to ignore (default: id)"},
				"sheet":            {Type: "string", Description: "Worksheet for .xlsx files (default: first sheet)"},
				"yates_correction": {Type: "boolean", Description: "Stored default for the Yates correction"},
			},
			Required: []string{"path"},
		},
	}, s.handleDatasetImport)

	s.server.AddTool(&sdk.Tool{
		Name:        "dataset_list",
		Description: "List imported datasets, newest first.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleDatasetList)

	s.server.AddTool(&sdk.Tool{
		Name: "dataset_analyze",
		Description: "Run the association screen on an imported dataset. " +
			"layout and yates_correction override the stored settings for this run only.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"dataset_id":       datasetIDSchema(),
				"layout":           layoutSchema(),
				"yates_correction": {Type: "boolean"},
			},
			Required: []string{"dataset_id"},
		},
	}, s.handleDatasetAnalyze)

	s.server.AddTool(&sdk.Tool{
		Name: "rank_sources",
		Description: "Rank the exposure factors of an imported dataset by strength of association " +
			"(ascending p-value). Factors without a test result are listed last.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"dataset_id":       datasetIDSchema(),
				"layout":           layoutSchema(),
				"yates_correction": {Type: "boolean"},
				"limit":            {Type: "integer", Description: "Return only the top N factors"},
			},
			Required: []string{"dataset_id"},
		},
	}, s.handleRankSources)
}
