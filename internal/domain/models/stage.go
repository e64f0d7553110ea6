package models

// StageName identifies a pipeline stage or graph node.
type StageName string

const (
	StageNews        StageName = "news"
	StageTechnical   StageName = "technical"
	StageFundamental StageName = "fundamental"
	StageRisk        StageName = "risk"
	StageSynthesis   StageName = "synthesis"

	// StageAnalysis is the fused fan-out node running news, technical and fundamental.
	StageAnalysis StageName = "analysis"
	// StageEnd is the terminal marker of the stage graph.
	StageEnd StageName = "end"

	// ParallelExecution is the error key the fan-out records when it had to run sequentially.
	ParallelExecution StageName = "parallel_execution"
)

// AnalysisStages are the independent stages run by the fan-out, in fallback order.
var AnalysisStages = []StageName{StageNews, StageTechnical, StageFundamental}

func (s StageName) String() string { return string(s) }

// StageResult is one stage's outcome. Success implies Error is empty and a failure carries no data.
type StageResult[T any] struct {
	Success bool   `json:"success"`
	Data    *T     `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func Succeeded[T any](data T) *StageResult[T] {
	return &StageResult[T]{Success: true, Data: &data}
}

func Failed[T any](msg string) *StageResult[T] {
	return &StageResult[T]{Success: false, Error: msg}
}

// OK reports whether r is present, successful and carries data.
func (r *StageResult[T]) OK() bool {
	return r != nil && r.Success && r.Data != nil
}

func cloneResult[T any](r *StageResult[T], cp func(T) T) *StageResult[T] {
	if r == nil {
		return nil
	}
	out := &StageResult[T]{Success: r.Success, Error: r.Error}
	if r.Data != nil {
		d := cp(*r.Data)
		out.Data = &d
	}
	return out
}
