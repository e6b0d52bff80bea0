package interpreter

import "strings"

// NoResponseText is returned when the model completes without any text.
const NoResponseText = "正在溝通天地，暫無回應。"

// PostProcess 规整模型输出，保证调用方总有可渲染的内容。
func PostProcess(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return NoResponseText
	}
	return text
}
