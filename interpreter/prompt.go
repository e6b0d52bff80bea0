package interpreter

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	chartImageCaption      = "(上圖為用戶提供的預測盤面截圖，請分析其象義)"
	birthChartImageCaption = "(上圖為命主命盤截圖，請分析其年命與格位)"
	birthInfoMissing       = "未提供"

	localTimeLayout = "2006/1/2 15:04:05"
)

// partBuffer 累积文本，遇到图片时先把已有文本作为一个 part 输出。
type partBuffer struct {
	parts []Part
	text  strings.Builder
}

func (b *partBuffer) write(format string, args ...any) {
	fmt.Fprintf(&b.text, format, args...)
}

func (b *partBuffer) flush() {
	if b.text.Len() == 0 {
		return
	}
	b.parts = append(b.parts, TextPart(b.text.String()))
	b.text.Reset()
}

func (b *partBuffer) image(img InlineImage, caption string) {
	b.flush()
	b.parts = append(b.parts, ImagePart(img), TextPart(caption))
}

// step is one conditional contributor to the prompt, applied in slice order.
type step struct {
	name    string
	applies func(in UserInput) bool
	emit    func(a *Assembler, b *partBuffer, in UserInput)
}

var assemblySteps = []step{
	{
		name:    "question",
		applies: func(UserInput) bool { return true },
		emit: func(_ *Assembler, b *partBuffer, in UserInput) {
			b.write("請根據以下資訊進行命理預測與解盤：\n\n**用戶提問**：%s\n", strings.TrimSpace(in.Question))
		},
	},
	{
		name:    "chart_image",
		applies: func(in UserInput) bool { return in.ChartImage != "" },
		emit: func(a *Assembler, b *partBuffer, in UserInput) {
			a.emitImage(b, "chartImage", in.ChartImage, chartImageCaption)
		},
	},
	{
		name:    "chart_text",
		applies: func(in UserInput) bool { return strings.TrimSpace(in.ChartText) != "" },
		emit: func(_ *Assembler, b *partBuffer, in UserInput) {
			b.write("\n**【預測盤面文字資訊】**：\n%s\n", strings.TrimSpace(in.ChartText))
		},
	},
	{
		name: "divination_time",
		applies: func(in UserInput) bool {
			return strings.TrimSpace(in.DivinationPillars) != "" || in.IsNow || strings.TrimSpace(in.ConsultationTime) != ""
		},
		emit: func(a *Assembler, b *partBuffer, in UserInput) {
			if p := strings.TrimSpace(in.DivinationPillars); p != "" {
				b.write("\n**【起局四柱】**：%s\n", p)
			}
			if t := a.referenceTime(in); t != "" {
				b.write("\n**參考時間**：%s\n", t)
			}
		},
	},
	{
		name:    "birth_chart_image",
		applies: func(in UserInput) bool { return in.BirthChartImage != "" },
		emit: func(a *Assembler, b *partBuffer, in UserInput) {
			a.emitImage(b, "birthChartImage", in.BirthChartImage, birthChartImageCaption)
		},
	},
	{
		name: "birth_info",
		applies: func(in UserInput) bool {
			return strings.TrimSpace(in.BirthChartText) != "" ||
				strings.TrimSpace(in.BirthPillars) != "" ||
				strings.TrimSpace(in.BirthDate) != "" ||
				strings.TrimSpace(in.BirthTime) != ""
		},
		emit: func(_ *Assembler, b *partBuffer, in UserInput) {
			if t := strings.TrimSpace(in.BirthChartText); t != "" {
				b.write("\n**【命主命盤文字資訊】**：\n%s\n", t)
			}
			b.write("\n**【命主八字】**：%s\n", birthInfo(in))
		},
	},
}

// birthInfo 优先级：八字 > 出生日期时间 > 未提供。
func birthInfo(in UserInput) string {
	if p := strings.TrimSpace(in.BirthPillars); p != "" {
		return p
	}
	dt := strings.TrimSpace(strings.TrimSpace(in.BirthDate) + " " + strings.TrimSpace(in.BirthTime))
	if dt != "" {
		return dt
	}
	return birthInfoMissing
}

// Assembler turns a UserInput into ordered prompt parts.
type Assembler struct {
	now func() time.Time
	log *zap.Logger
}

type AssemblerOption func(*Assembler)

// WithClock overrides the wall clock used for "now" reference times.
func WithClock(now func() time.Time) AssemblerOption {
	return func(a *Assembler) { a.now = now }
}

func WithAssemblerLogger(l *zap.Logger) AssemblerOption {
	return func(a *Assembler) {
		if l != nil {
			a.log = l
		}
	}
}

func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{now: time.Now, log: zap.NewNop()}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Parts builds the prompt. Text preceding an image is always flushed as a
// single part, and each image is immediately followed by its caption.
func (a *Assembler) Parts(in UserInput) []Part {
	var b partBuffer
	for _, s := range assemblySteps {
		if !s.applies(in) {
			continue
		}
		s.emit(a, &b, in)
	}
	b.flush()
	return b.parts
}

func (a *Assembler) referenceTime(in UserInput) string {
	if in.IsNow {
		return fmt.Sprintf("即刻 (%s)", a.now().Local().Format(localTimeLayout))
	}
	return strings.TrimSpace(in.ConsultationTime)
}

func (a *Assembler) emitImage(b *partBuffer, field, uri, caption string) {
	img, ok := ParseDataURI(uri)
	if !ok {
		a.log.Warn("skipping unparseable image", zap.String("field", field), zap.Int("len", len(uri)))
		return
	}
	b.image(img, caption)
}
