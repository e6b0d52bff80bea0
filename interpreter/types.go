package interpreter

import (
	"errors"
	"strings"
)

var ErrEmptyQuestion = errors.New("question is required")

// UserInput 是一次提交可携带的全部字段，除 Question 外均可为空。
type UserInput struct {
	Question          string `json:"question"`
	IsNow             bool   `json:"isNow"`
	ConsultationTime  string `json:"consultationTime"`
	DivinationPillars string `json:"divinationPillars"`
	BirthDate         string `json:"birthDate"`
	BirthTime         string `json:"birthTime"`
	BirthPillars      string `json:"birthPillars"`
	ChartText         string `json:"chartText"`
	ChartImage        string `json:"chartImage"`
	BirthChartText    string `json:"birthChartText"`
	BirthChartImage   string `json:"birthChartImage"`
}

// Validate checks the submit precondition.
func (in UserInput) Validate() error {
	if strings.TrimSpace(in.Question) == "" {
		return ErrEmptyQuestion
	}
	return nil
}

// HasContent 用于"仅储存"：至少要有一项可保存的信息。
func (in UserInput) HasContent() bool {
	return strings.TrimSpace(in.Question) != "" ||
		strings.TrimSpace(in.ChartText) != "" ||
		in.ChartImage != "" ||
		strings.TrimSpace(in.BirthChartText) != "" ||
		in.BirthChartImage != ""
}

// StripImages returns a copy without the embedded image payloads.
func (in UserInput) StripImages() UserInput {
	in.ChartImage = ""
	in.BirthChartImage = ""
	return in
}

// PartKind distinguishes text segments from inline images.
type PartKind int

const (
	PartText PartKind = iota
	PartImage
)

// InlineImage is a decoded data URI: MIME type plus base64 payload.
type InlineImage struct {
	MIMEType string
	Data     string
}

// Part 是多模态请求中的一个单元。
type Part struct {
	Kind  PartKind
	Text  string
	Image InlineImage
}

func TextPart(s string) Part { return Part{Kind: PartText, Text: s} }

func ImagePart(img InlineImage) Part { return Part{Kind: PartImage, Image: img} }

// Sampling holds the fixed generation parameters.
type Sampling struct {
	Temperature    float64
	ThinkingBudget int32
}

// Request 表示发送给 LLM 的完整请求。
type Request struct {
	System   string
	Sampling Sampling
	Parts    []Part
}
