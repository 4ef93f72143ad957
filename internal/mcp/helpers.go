package mcp

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"outbreak-mcp/internal/epi"
	"outbreak-mcp/internal/visuals"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// decodeArgs unmarshals tool arguments. Absent arguments leave v untouched.
func decodeArgs(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func textResult(data interface{}) (*sdk.CallToolResult, error) {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return toolError(fmt.Errorf("failed to encode result: %w", err)), nil
	}
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: string(out)}},
	}, nil
}

// toolError reports a failure to the client as a tool result so the model can react to it.
func toolError(err error) *sdk.CallToolResult {
	log.Warn().Err(err).Msg("Tool call failed")
	return &sdk.CallToolResult{
		IsError: true,
		Content: []sdk.Content{&sdk.TextContent{Text: err.Error()}},
	}
}

// overrideLayout parses an optional layout argument, falling back to def.
func overrideLayout(arg *string, def epi.Layout) (epi.Layout, error) {
	if arg == nil || *arg == "" {
		return def, nil
	}
	return epi.ParseLayout(*arg)
}

func boolOr(arg *bool, def bool) bool {
	if arg == nil {
		return def
	}
	return *arg
}

func (s *Server) resolvePath(path string) string {
	if filepath.IsAbs(path) || s.dataPath == "" {
		return path
	}
	return filepath.Join(s.dataPath, path)
}

// withVisuals adds the Mermaid charts for resp when charts are enabled.
func (s *Server) withVisuals(res map[string]interface{}, resp epi.AnalysisResponse) map[string]interface{} {
	if !s.enableMermaidCharts {
		return res
	}
	if chart := visuals.GenerateEffectChart(resp); chart != "" {
		res["visual_effect_bar"] = chart
	}
	if chart := visuals.GeneratePValueChart(resp); chart != "" {
		res["visual_pvalue_bar"] = chart
	}
	return res
}
