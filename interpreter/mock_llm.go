package interpreter

import (
	"context"
	"fmt"
	"strings"
)

// MockLLM 一个简单的占位实现，便于本地调试，不调用外部模型。
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, req Request) (string, error) {
	var text []string
	images := 0
	for _, p := range req.Parts {
		if p.Kind == PartImage {
			images++
			continue
		}
		text = append(text, strings.TrimSpace(p.Text))
	}

	var sb strings.Builder
	sb.WriteString("# 盤面識別\n")
	sb.WriteString(fmt.Sprintf("* 收到 **%d** 段文字、**%d** 張截圖。\n\n", len(text), images))
	sb.WriteString("# 核心論斷\n")
	sb.WriteString("此為離線示範回應，未連線任何模型。\n\n")
	sb.WriteString("# 決策策略\n")
	for _, line := range strings.Split(strings.Join(text, "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		sb.WriteString("- ")
		sb.WriteString(strings.ReplaceAll(line, "**", ""))
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
