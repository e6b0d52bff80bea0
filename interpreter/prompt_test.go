package interpreter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	pngURI  = "data:image/png;base64,iVBORw0KGgo="
	jpegURI = "data:image/jpeg;base64,/9j/4AAQ"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local)

func newTestAssembler() *Assembler {
	return NewAssembler(WithClock(func() time.Time { return fixedNow }))
}

func kinds(parts []Part) []PartKind {
	out := make([]PartKind, len(parts))
	for i, p := range parts {
		out[i] = p.Kind
	}
	return out
}

func TestParts_QuestionOnly_SingleTextPart(t *testing.T) {
	parts := newTestAssembler().Parts(UserInput{Question: "今年換工作好嗎？"})

	require.Len(t, parts, 1)
	assert.Equal(t, PartText, parts[0].Kind)
	assert.Contains(t, parts[0].Text, "**用戶提問**：今年換工作好嗎？")
	assert.NotContains(t, parts[0].Text, "參考時間")
	assert.NotContains(t, parts[0].Text, "命主八字")
}

func TestParts_IsNow_EmbedsCurrentTimeInSamePart(t *testing.T) {
	parts := newTestAssembler().Parts(UserInput{Question: "明日面試是否順利？", IsNow: true})

	require.Len(t, parts, 1)
	assert.Contains(t, parts[0].Text, "明日面試是否順利？")
	assert.Contains(t, parts[0].Text, "**參考時間**：即刻 ("+fixedNow.Format(localTimeLayout)+")")
}

func TestParts_ExplicitConsultationTime(t *testing.T) {
	parts := newTestAssembler().Parts(UserInput{
		Question:          "q",
		ConsultationTime:  "2026-01-01T08:00",
		DivinationPillars: "乙巳 戊子 甲午 庚午",
	})

	require.Len(t, parts, 1)
	text := parts[0].Text
	assert.Contains(t, text, "**【起局四柱】**：乙巳 戊子 甲午 庚午")
	assert.Contains(t, text, "**參考時間**：2026-01-01T08:00")
	assert.Less(t, strings.Index(text, "起局四柱"), strings.Index(text, "參考時間"))
}

func TestParts_BothImages_PreserveOrderWithCaptions(t *testing.T) {
	parts := newTestAssembler().Parts(UserInput{
		Question:        "q",
		IsNow:           true,
		ChartText:       "值符天心",
		ChartImage:      pngURI,
		BirthChartImage: jpegURI,
		BirthPillars:    "甲子 乙丑 丙寅 丁卯",
	})

	require.Equal(t, []PartKind{
		PartText,  // greeting + question
		PartImage, // chart image
		PartText,  // caption
		PartText,  // chart text + time
		PartImage, // birth chart image
		PartText,  // caption
		PartText,  // birth info
	}, kinds(parts))

	assert.Equal(t, InlineImage{MIMEType: "image/png", Data: "iVBORw0KGgo="}, parts[1].Image)
	assert.Equal(t, chartImageCaption, parts[2].Text)
	assert.Contains(t, parts[3].Text, "值符天心")
	assert.Contains(t, parts[3].Text, "參考時間")
	assert.Equal(t, InlineImage{MIMEType: "image/jpeg", Data: "/9j/4AAQ"}, parts[4].Image)
	assert.Equal(t, birthChartImageCaption, parts[5].Text)
	assert.Contains(t, parts[6].Text, "**【命主八字】**：甲子 乙丑 丙寅 丁卯")

	for i, p := range parts {
		if p.Kind == PartImage {
			require.Less(t, i+1, len(parts))
			assert.Equal(t, PartText, parts[i+1].Kind, "image at %d must be followed by its caption", i)
		}
	}
}

func TestParts_ImageOnlyThenNothing_EndsWithCaption(t *testing.T) {
	parts := newTestAssembler().Parts(UserInput{Question: "q", ChartImage: pngURI})

	require.Equal(t, []PartKind{PartText, PartImage, PartText}, kinds(parts))
	assert.Equal(t, chartImageCaption, parts[2].Text)
}

func TestParts_UnparseableImageIsSkippedWithCaption(t *testing.T) {
	parts := newTestAssembler().Parts(UserInput{Question: "q", ChartImage: "not-a-data-uri", ChartText: "盤"})

	require.Len(t, parts, 1)
	assert.NotContains(t, parts[0].Text, chartImageCaption)
	assert.Contains(t, parts[0].Text, "盤")
}

func TestParts_BirthInfoFallbackOrder(t *testing.T) {
	tests := []struct {
		name string
		in   UserInput
		want string
	}{
		{"pillars win", UserInput{Question: "q", BirthPillars: "甲子", BirthDate: "1990-01-01"}, "**【命主八字】**：甲子"},
		{"date and time", UserInput{Question: "q", BirthDate: "1990-01-01", BirthTime: "08:30"}, "**【命主八字】**：1990-01-01 08:30"},
		{"chart text only", UserInput{Question: "q", BirthChartText: "紫微坐命"}, "**【命主八字】**：" + birthInfoMissing},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parts := newTestAssembler().Parts(tc.in)
			require.Len(t, parts, 1)
			assert.Contains(t, parts[0].Text, tc.want)
		})
	}
}

func TestParts_EmptyOptionalFieldsNeverProducePlaceholders(t *testing.T) {
	parts := newTestAssembler().Parts(UserInput{Question: "q", ChartText: "   ", BirthTime: " "})

	require.Len(t, parts, 1)
	assert.NotContains(t, parts[0].Text, "預測盤面文字資訊")
	assert.NotContains(t, parts[0].Text, "命主")
}
