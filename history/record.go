package history

import "chart_interpreter/interpreter"

// Record 是一条历史：一次推演结果或一次仅储存的输入。
type Record struct {
	ID        string                `json:"id"`
	Timestamp int64                 `json:"timestamp"` // epoch millis
	Input     interpreter.UserInput `json:"input"`
	Result    string                `json:"result"`
}
