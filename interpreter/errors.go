package interpreter

import "errors"

var ErrAnalysisFailed = errors.New("analysis failed")

// FailureMessage is the only text users see when a generation call fails.
const FailureMessage = "推演失敗：目前連線不穩定，請確認 API 設定或稍後再試。"

// AnalysisError carries the user-facing message; the cause is kept for logs.
type AnalysisError struct {
	Message string
	Err     error
}

func (e *AnalysisError) Error() string { return e.Message }

func (e *AnalysisError) Unwrap() []error { return []error{ErrAnalysisFailed, e.Err} }
