package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chart_interpreter/history"
	"chart_interpreter/interpreter"
	"chart_interpreter/report"
	"chart_interpreter/session"
)

const (
	msgPDFFailed    = "PDF 生成失敗。"
	msgNoResult     = "目前沒有可匯出的策論。"
	msgNothingSaved = "請輸入至少一項資訊再儲存。"
	msgDraftSaved   = "資訊已儲存至歷史錦囊。"
)

type sessionResp struct {
	session.Snapshot
	HTML string `json:"html,omitempty"`
}

type renderReq struct {
	Text    string `json:"text"`
	Variant string `json:"variant"`
}

func (s *Server) snapshotResp(snap session.Snapshot) sessionResp {
	resp := sessionResp{Snapshot: snap}
	if snap.State == session.Success && snap.Result != "" {
		html, err := report.RenderText(snap.Result, report.Screen)
		if err != nil {
			s.log.Error("render result", zap.Error(err), zap.String("session", snap.ID))
		}
		resp.HTML = html
	}
	return resp
}

func (s *Server) handleSessionCreate(c *gin.Context) {
	id := newSessionID()
	sess := session.New(id, s.analyzer, s.history, s.log)
	s.store.set(id, sess)
	c.JSON(http.StatusCreated, s.snapshotResp(sess.Snapshot()))
}

func (s *Server) handleSessionGet(c *gin.Context, sess *session.Session) {
	c.JSON(http.StatusOK, s.snapshotResp(sess.Snapshot()))
}

func (s *Server) handleAnalyze(c *gin.Context, sess *session.Session) {
	var in interpreter.UserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	// a closed browser tab does not abort the request; the result still lands in history
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), analyzeTimeout)
	defer cancel()

	start := time.Now()
	snap, err := sess.Submit(ctx, in)
	switch {
	case err == nil:
		s.metrics.analyses.WithLabelValues("success").Inc()
		s.metrics.duration.Observe(time.Since(start).Seconds())
		c.JSON(http.StatusOK, s.snapshotResp(snap))
	case errors.Is(err, interpreter.ErrEmptyQuestion):
		writeError(c, http.StatusBadRequest, "請輸入問題。")
	case errors.Is(err, session.ErrBusy):
		writeError(c, http.StatusConflict, "正在解盤推演中，請稍候。")
	default:
		s.metrics.analyses.WithLabelValues("error").Inc()
		s.metrics.duration.Observe(time.Since(start).Seconds())
		msg := snap.Result
		if snap.State != session.Error {
			// superseded by Select/Retry while loading; the snapshot shows the newer state
			msg = session.UserMessage(err)
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": msg, "session": s.snapshotResp(snap)})
	}
}

func (s *Server) handleSaveDraft(c *gin.Context, sess *session.Session) {
	var in interpreter.UserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := sess.SaveDraft(c.Request.Context(), in)
	if errors.Is(err, session.ErrNothingToSave) {
		writeError(c, http.StatusBadRequest, msgNothingSaved)
		return
	}
	s.metrics.drafts.Inc()
	c.JSON(http.StatusCreated, gin.H{"record": rec, "message": msgDraftSaved})
}

func (s *Server) handleRetry(c *gin.Context, sess *session.Session) {
	c.JSON(http.StatusOK, s.snapshotResp(sess.Retry()))
}

func (s *Server) handleSelect(c *gin.Context, sess *session.Session) {
	snap, err := sess.Select(c.Request.Context(), c.Param("rid"))
	if errors.Is(err, history.ErrNotFound) {
		writeError(c, http.StatusNotFound, "record not found")
		return
	}
	c.JSON(http.StatusOK, s.snapshotResp(snap))
}

func (s *Server) handleExportHTML(c *gin.Context, sess *session.Session) {
	snap := sess.Snapshot()
	if snap.State != session.Success || snap.Result == "" {
		writeError(c, http.StatusConflict, msgNoResult)
		return
	}
	now := s.now()
	var buf bytes.Buffer
	if err := report.ExportHTML(&buf, snap.Result, now); err != nil {
		s.metrics.exports.WithLabelValues("html", "error").Inc()
		s.log.Error("html export", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "HTML 匯出失敗。")
		return
	}
	s.metrics.exports.WithLabelValues("html", "success").Inc()
	c.Header("Content-Disposition", `attachment; filename="`+report.Filename(now, "html")+`"`)
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (s *Server) handleExportPDF(c *gin.Context, sess *session.Session) {
	snap := sess.Snapshot()
	if snap.State != session.Success || snap.Result == "" {
		writeError(c, http.StatusConflict, msgNoResult)
		return
	}
	now := s.now()
	var buf bytes.Buffer
	if err := report.ExportPDF(&buf, snap.Result, now, s.pdf); err != nil {
		s.metrics.exports.WithLabelValues("pdf", "error").Inc()
		s.log.Error("pdf generation error", zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, report.ErrPDFUnavailable) {
			status = http.StatusServiceUnavailable
		}
		writeError(c, status, msgPDFFailed)
		return
	}
	s.metrics.exports.WithLabelValues("pdf", "success").Inc()
	c.Header("Content-Disposition", `attachment; filename="`+report.Filename(now, "pdf")+`"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (s *Server) handleHistoryList(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"records": s.history.Records(c.Request.Context())})
}

func (s *Server) handleHistoryDelete(c *gin.Context) {
	records, err := s.history.Delete(c.Request.Context(), c.Param("rid"))
	if err != nil {
		s.log.Error("delete history record", zap.Error(err), zap.String("id", c.Param("rid")))
		writeError(c, http.StatusInternalServerError, "刪除失敗。")
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (s *Server) handleHistoryClear(c *gin.Context) {
	if err := s.history.Clear(c.Request.Context()); err != nil {
		s.log.Error("clear history", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "清除失敗。")
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleRender(c *gin.Context) {
	var req renderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	html, err := report.RenderText(req.Text, report.ParseVariant(req.Variant))
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"html": html})
}
