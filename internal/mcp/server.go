// Package mcp exposes the engine as Model Context Protocol tools over stdio,
// so assistants can run phenotype queries, gene rankings, and question
// suggestions directly.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/domain"
	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/service"
)

const serverVersion = "1.0.0"

// Server wraps the MCP tool server around the service engine.
type Server struct {
	engine *service.Engine
	logger *logrus.Logger
	server *mcp.Server
}

// NewServer creates the MCP server and registers every tool.
func NewServer(engine *service.Engine, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}

	s := &Server{
		engine: engine,
		logger: logger,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "mpv-clinical-demo",
			Version: serverVersion,
		}, nil),
	}
	s.registerTools()
	return s
}

// Run serves MCP over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("MCP server listening on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query_phenotypes",
		Description: "Rank disease modules against observed and excluded phenotypes, with candidate genes, predicted missing phenotypes, and a full explainability trail.",
	}, s.queryPhenotypes)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rank_genes",
		Description: "Look up a gene and return its module assignment, stability classification, and the module's full gene ranking.",
	}, s.rankGenes)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "predict_missing_phenotypes",
		Description: "List a module's expected-but-unobserved phenotypes above the prevalence threshold, ranked by prevalence.",
	}, s.predictMissing)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "suggest_next_question",
		Description: "Suggest the phenotype question that would best separate the current top two modules.",
	}, s.suggestNextQuestion)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "module_summary",
		Description: "Summarize a disease module: gene count, core genes, and its most characteristic phenotypes.",
	}, s.moduleSummary)
}

// QueryPhenotypesInput is the input of the query_phenotypes tool.
type QueryPhenotypesInput struct {
	Observed       []string `json:"observed" jsonschema:"observed phenotypes, as HPO identifiers or names"`
	Excluded       []string `json:"excluded,omitempty" jsonschema:"phenotypes confirmed absent"`
	TopPredictions int      `json:"top_predictions,omitempty" jsonschema:"cap on predicted missing phenotypes"`
}

func (s *Server) queryPhenotypes(ctx context.Context, req *mcp.CallToolRequest, in QueryPhenotypesInput) (*mcp.CallToolResult, *domain.QueryResult, error) {
	result, err := s.engine.Query(ctx, service.QueryParams{
		Observed:       in.Observed,
		Excluded:       in.Excluded,
		TopPredictions: in.TopPredictions,
	})
	if err != nil {
		return nil, nil, err
	}
	return textResult(result), result, nil
}

// RankGenesInput is the input of the rank_genes tool.
type RankGenesInput struct {
	Gene string `json:"gene" jsonschema:"gene symbol, case-sensitive"`
}

func (s *Server) rankGenes(ctx context.Context, req *mcp.CallToolRequest, in RankGenesInput) (*mcp.CallToolResult, *domain.GeneQueryResult, error) {
	result, err := s.engine.QueryGene(ctx, in.Gene)
	if err != nil {
		return nil, nil, err
	}
	return textResult(result), result, nil
}

// PredictMissingInput is the input of the predict_missing_phenotypes tool.
type PredictMissingInput struct {
	ModuleID int      `json:"module_id" jsonschema:"target module identifier"`
	Observed []string `json:"observed,omitempty" jsonschema:"phenotypes already observed"`
	Excluded []string `json:"excluded,omitempty" jsonschema:"phenotypes confirmed absent"`
	TopN     int      `json:"top_n,omitempty" jsonschema:"cap on returned predictions"`
}

// PredictMissingOutput is the output of the predict_missing_phenotypes tool.
type PredictMissingOutput struct {
	ModuleID        int                          `json:"module_id"`
	Predictions     []domain.PhenotypePrediction `json:"predictions"`
	UnmatchedInputs []string                     `json:"unmatched_inputs,omitempty"`
}

func (s *Server) predictMissing(ctx context.Context, req *mcp.CallToolRequest, in PredictMissingInput) (*mcp.CallToolResult, *PredictMissingOutput, error) {
	observed, excluded, unmatched := s.engine.ResolveInputs(in.Observed, in.Excluded)
	predictions, err := s.engine.Predictor().PredictMissing(in.ModuleID, observed, excluded, in.TopN)
	if err != nil {
		return nil, nil, err
	}
	out := &PredictMissingOutput{
		ModuleID:        in.ModuleID,
		Predictions:     predictions,
		UnmatchedInputs: unmatched,
	}
	return textResult(out), out, nil
}

// SuggestNextQuestionInput is the input of the suggest_next_question tool.
type SuggestNextQuestionInput struct {
	Observed []string `json:"observed" jsonschema:"phenotypes already observed"`
	Excluded []string `json:"excluded,omitempty" jsonschema:"phenotypes confirmed absent"`
}

// SuggestNextQuestionOutput is the output of the suggest_next_question tool.
type SuggestNextQuestionOutput struct {
	Question        *domain.PhenotypePrediction `json:"question,omitempty"`
	Message         string                      `json:"message,omitempty"`
	UnmatchedInputs []string                    `json:"unmatched_inputs,omitempty"`
}

func (s *Server) suggestNextQuestion(ctx context.Context, req *mcp.CallToolRequest, in SuggestNextQuestionInput) (*mcp.CallToolResult, *SuggestNextQuestionOutput, error) {
	next, unmatched, err := s.engine.SuggestNext(ctx, in.Observed, in.Excluded)
	if err != nil {
		return nil, nil, err
	}
	out := &SuggestNextQuestionOutput{
		Question:        next,
		UnmatchedInputs: unmatched,
	}
	if next == nil {
		out.Message = "no further question available"
	}
	return textResult(out), out, nil
}

// ModuleSummaryInput is the input of the module_summary tool.
type ModuleSummaryInput struct {
	ModuleID      int `json:"module_id" jsonschema:"target module identifier"`
	TopPhenotypes int `json:"top_phenotypes,omitempty" jsonschema:"cap on characteristic phenotypes"`
}

func (s *Server) moduleSummary(ctx context.Context, req *mcp.CallToolRequest, in ModuleSummaryInput) (*mcp.CallToolResult, *domain.ModuleSummary, error) {
	summary, err := s.engine.ModuleSummary(ctx, in.ModuleID, in.TopPhenotypes)
	if err != nil {
		return nil, nil, err
	}
	return textResult(summary), summary, nil
}

// textResult renders the structured output as pretty JSON text content too,
// for clients that only read text.
func textResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		data = []byte(fmt.Sprintf("%+v", v))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}
