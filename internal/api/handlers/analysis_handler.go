package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/intervuo/internal/api/middleware"
	"github.com/yoockh/intervuo/internal/models"
	"github.com/yoockh/intervuo/internal/services"
	"github.com/yoockh/intervuo/internal/utils"
)

type AnalysisHandler struct {
	svc services.AnalysisService
}

func NewAnalysisHandler(svc services.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{svc: svc}
}

// transcriptEntry treats a missing isFinal as final; web clients only send
// finished utterances.
type transcriptEntry struct {
	Speaker models.Speaker `json:"speaker"`
	Text    string         `json:"text"`
	IsFinal *bool          `json:"isFinal"`
}

type AnalyzeTranscriptRequest struct {
	Transcript       []transcriptEntry      `json:"transcript"`
	InterviewDetails models.InterviewConfig `json:"interviewDetails"`
	InterviewID      string                 `json:"interviewId"`
}

func (r AnalyzeTranscriptRequest) entries() []models.TranscriptEntry {
	out := make([]models.TranscriptEntry, 0, len(r.Transcript))
	for _, e := range r.Transcript {
		final := true
		if e.IsFinal != nil {
			final = *e.IsFinal
		}
		out = append(out, models.TranscriptEntry{Speaker: e.Speaker, Text: e.Text, IsFinal: final})
	}
	return out
}

func (h *AnalysisHandler) Analyze(c *gin.Context) {
	const op = "AnalysisHandler.Analyze"

	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req AnalyzeTranscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}

	middleware.SetInterviewID(c, req.InterviewID)

	res, err := h.svc.Analyze(c.Request.Context(), user, services.AnalyzeRequest{
		Transcript:       req.entries(),
		InterviewDetails: req.InterviewDetails,
		InterviewID:      req.InterviewID,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
