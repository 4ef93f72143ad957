package mcp

import (
	"context"
	"errors"
	"fmt"

	"outbreak-mcp/internal/dataset"
	"outbreak-mcp/internal/epi"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

type analyzeArgs struct {
	Layout   epi.Layout    `json:"layout"`
	Subjects []epi.Subject `json:"subjects"`
	Factors  []epi.Factor  `json:"factors"`
	Yates    *bool         `json:"yatesCorrectionEnabled"`
}

func (s *Server) handleAnalyzeAssociation(ctx context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
	var args analyzeArgs
	if err := decodeArgs(req.Params.Arguments, &args); err != nil {
		return toolError(err), nil
	}
	if args.Layout == "" {
		args.Layout = epi.CaseControl
	}

	resp := s.engine.Analyze(epi.AnalysisRequest{
		Layout:                 args.Layout,
		Subjects:               args.Subjects,
		Factors:                args.Factors,
		YatesCorrectionEnabled: boolOr(args.Yates, s.defaultYates),
	})

	return textResult(s.withVisuals(map[string]interface{}{"analysis": resp}, resp))
}

type importArgs struct {
	Path          string  `json:"path"`
	Name          string  `json:"name"`
	Layout        *string `json:"layout"`
	OutcomeColumn string  `json:"outcome_column"`
	IDColumn      string  `json:"id_column"`
	Sheet         string  `json:"sheet"`
	Yates         *bool   `json:"yates_correction"`
}

func (s *Server) handleDatasetImport(ctx context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
	var args importArgs
	if err := decodeArgs(req.Params.Arguments, &args); err != nil {
		return toolError(err), nil
	}
	if args.Path == "" {
		return toolError(errors.New("path is required")), nil
	}
	layout, err := overrideLayout(args.Layout, epi.CaseControl)
	if err != nil {
		return toolError(err), nil
	}

	ds, err := dataset.LoadFile(s.resolvePath(args.Path), dataset.LoadOptions{
		Layout:        layout,
		OutcomeColumn: args.OutcomeColumn,
		IDColumn:      args.IDColumn,
		Sheet:         args.Sheet,
		Yates:         boolOr(args.Yates, s.defaultYates),
	})
	if err != nil {
		return toolError(err), nil
	}
	if args.Name != "" {
		ds.Name = args.Name
	}

	id := s.store.Put(ds)
	persisted := true
	if err := s.store.Save(id); err != nil {
		log.Warn().Err(err).Str("dataset", id).Msg("Dataset kept in memory only")
		persisted = false
	}

	return textResult(map[string]interface{}{
		"dataset":   ds.Info(),
		"factors":   ds.Factors,
		"persisted": persisted,
	})
}

func (s *Server) handleDatasetList(ctx context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
	return textResult(map[string]interface{}{"datasets": s.store.List()})
}

type datasetRunArgs struct {
	DatasetID string  `json:"dataset_id"`
	Layout    *string `json:"layout"`
	Yates     *bool   `json:"yates_correction"`
	Limit     int     `json:"limit"`
}

// runDataset analyzes a stored dataset with any per-call overrides applied. Overrides
// never modify the stored dataset; every call is a full re-run.
func (s *Server) runDataset(args datasetRunArgs) (*dataset.Dataset, epi.AnalysisResponse, error) {
	if args.DatasetID == "" {
		return nil, epi.AnalysisResponse{}, errors.New("dataset_id is required")
	}
	ds, err := s.store.Get(args.DatasetID)
	if err != nil {
		return nil, epi.AnalysisResponse{}, err
	}

	req := ds.Request()
	if req.Layout, err = overrideLayout(args.Layout, req.Layout); err != nil {
		return nil, epi.AnalysisResponse{}, err
	}
	req.YatesCorrectionEnabled = boolOr(args.Yates, req.YatesCorrectionEnabled)

	return ds, s.engine.Analyze(req), nil
}

func (s *Server) handleDatasetAnalyze(ctx context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
	var args datasetRunArgs
	if err := decodeArgs(req.Params.Arguments, &args); err != nil {
		return toolError(err), nil
	}
	ds, resp, err := s.runDataset(args)
	if err != nil {
		return toolError(err), nil
	}

	res := map[string]interface{}{
		"dataset":  ds.Info(),
		"analysis": resp,
	}
	return textResult(s.withVisuals(res, resp))
}

// rankedFactor is the compact view returned by rank_sources.
type rankedFactor struct {
	Rank          int            `json:"rank"`
	Factor        epi.Factor     `json:"factor"`
	TestMethod    epi.TestMethod `json:"testMethod"`
	PValue        *float64       `json:"pValue"`
	EffectMeasure epi.Value      `json:"effectMeasure"`
	CILower       epi.Value      `json:"ciLower"`
	CIUpper       epi.Value      `json:"ciUpper"`
}

func (s *Server) handleRankSources(ctx context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
	var args datasetRunArgs
	if err := decodeArgs(req.Params.Arguments, &args); err != nil {
		return toolError(err), nil
	}
	if args.Limit < 0 {
		return toolError(fmt.Errorf("limit must not be negative, got %d", args.Limit)), nil
	}
	ds, resp, err := s.runDataset(args)
	if err != nil {
		return toolError(err), nil
	}

	ranked := epi.RankByPValue(resp.Results)
	if args.Limit > 0 && args.Limit < len(ranked) {
		ranked = ranked[:args.Limit]
	}

	out := make([]rankedFactor, len(ranked))
	for i, r := range ranked {
		out[i] = rankedFactor{
			Rank:          i + 1,
			Factor:        r.Factor,
			TestMethod:    r.TestMethod,
			PValue:        r.PValue,
			EffectMeasure: r.EffectMeasure,
			CILower:       r.CILower,
			CIUpper:       r.CIUpper,
		}
	}

	rankedResp := resp
	rankedResp.Results = ranked
	res := map[string]interface{}{
		"dataset": ds.Info(),
		"layout":  resp.Layout,
		"ranking": out,
	}
	return textResult(s.withVisuals(res, rankedResp))
}
