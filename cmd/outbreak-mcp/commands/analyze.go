package commands

import (
	"encoding/json"
	"fmt"

	"outbreak-mcp/internal/dataset"
	"outbreak-mcp/internal/epi"
	"outbreak-mcp/internal/visuals"

	"github.com/spf13/cobra"
)

var analyzeOpts struct {
	layout        string
	yates         bool
	chart         bool
	rank          bool
	sheet         string
	outcomeColumn string
	idColumn      string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a line list (.csv, .xlsx or .json) and print the results as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		layout, err := epi.ParseLayout(analyzeOpts.layout)
		if err != nil {
			return err
		}

		yates := cfg.YatesCorrection
		if cmd.Flags().Changed("yates") {
			yates = analyzeOpts.yates
		}

		ds, err := dataset.LoadFile(args[0], dataset.LoadOptions{
			Layout:        layout,
			OutcomeColumn: analyzeOpts.outcomeColumn,
			IDColumn:      analyzeOpts.idColumn,
			Sheet:         analyzeOpts.sheet,
			Yates:         yates,
		})
		if err != nil {
			return err
		}

		engine := epi.NewEngine(epi.Options{
			PlaceholderFactors: cfg.PlaceholderFactors,
			Workers:            cfg.AnalysisWorkers,
		})
		req := ds.Request()
		// A .json request carries its own layout; the flag only wins when given explicitly.
		if cmd.Flags().Changed("layout") {
			req.Layout = layout
		}
		resp := engine.Analyze(req)
		if analyzeOpts.rank {
			resp.Results = epi.RankByPValue(resp.Results)
		}

		out := map[string]interface{}{
			"dataset":  ds.Info(),
			"analysis": resp,
		}
		if analyzeOpts.chart || cfg.EnableMermaidCharts {
			if chart := visuals.GenerateEffectChart(resp); chart != "" {
				out["visual_effect_bar"] = chart
			}
			if chart := visuals.GeneratePValueChart(resp); chart != "" {
				out["visual_pvalue_bar"] = chart
			}
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
		return nil
	},
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeOpts.layout, "layout", string(epi.CaseControl), "study design: caseControl or cohort")
	f.BoolVar(&analyzeOpts.yates, "yates", false, "apply the Yates continuity correction (default from YATES_CORRECTION)")
	f.BoolVar(&analyzeOpts.chart, "chart", false, "include Mermaid charts in the output")
	f.BoolVar(&analyzeOpts.rank, "rank", false, "order factors by ascending p-value")
	f.StringVar(&analyzeOpts.sheet, "sheet", "", "worksheet to read from an .xlsx file")
	f.StringVar(&analyzeOpts.outcomeColumn, "outcome-column", "outcome", "header of the outcome column")
	f.StringVar(&analyzeOpts.idColumn, "id-column", "id", "header of the subject id column")
}
