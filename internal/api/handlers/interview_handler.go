package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/intervuo/internal/api/middleware"
	"github.com/yoockh/intervuo/internal/models"
	"github.com/yoockh/intervuo/internal/providers/voice"
	"github.com/yoockh/intervuo/internal/services"
	"github.com/yoockh/intervuo/internal/utils"
)

type InterviewHandler struct {
	gateway    services.GatewayService
	interviews services.InterviewService
}

func NewInterviewHandler(gateway services.GatewayService, interviews services.InterviewService) *InterviewHandler {
	return &InterviewHandler{gateway: gateway, interviews: interviews}
}

// StartInterviewRequest accepts the camelCase fields and the short keys
// older web clients send (co, lvl, iType, lang).
type StartInterviewRequest struct {
	Company           string `json:"company"`
	Role              string `json:"role"`
	Level             string `json:"level"`
	InterviewType     string `json:"interviewType"`
	PreferredLanguage string `json:"preferredLanguage"`

	Co    string `json:"co"`
	Lvl   string `json:"lvl"`
	IType string `json:"iType"`
	Lang  string `json:"lang"`

	NotificationPreference string `json:"notificationPreference"`
	Medium                 string `json:"medium"`
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func (r StartInterviewRequest) Config() models.InterviewConfig {
	return models.InterviewConfig{
		Company:           firstNonEmpty(r.Company, r.Co),
		Role:              r.Role,
		Level:             models.Level(firstNonEmpty(r.Level, r.Lvl)),
		InterviewType:     models.InterviewType(firstNonEmpty(r.InterviewType, r.IType)),
		PreferredLanguage: firstNonEmpty(r.PreferredLanguage, r.Lang),
	}
}

func (h *InterviewHandler) Start(c *gin.Context) {
	const op = "InterviewHandler.Start"

	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req StartInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}

	res, err := h.gateway.Start(c.Request.Context(), user, services.StartRequest{
		Config:                 req.Config(),
		Medium:                 voice.ParseMedium(req.Medium),
		NotificationPreference: req.NotificationPreference,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	middleware.SetInterviewID(c, res.InterviewID)

	c.JSON(http.StatusOK, res)
}

func (h *InterviewHandler) List(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	items, err := h.interviews.List(c.Request.Context(), user.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"interviews": items})
}

func (h *InterviewHandler) Get(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	iv, err := h.interviews.Get(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, iv)
}

// Archive returns a short-lived download link for the archived transcript.
func (h *InterviewHandler) Archive(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	url, err := h.interviews.ArchiveURL(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}
