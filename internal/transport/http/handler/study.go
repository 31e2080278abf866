package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pdfchat/internal/app"
	"pdfchat/internal/transport/http/response"
)

type StudyHandler struct {
	studyService *app.StudyService
}

type SessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

func NewStudyHandler(studyService *app.StudyService) *StudyHandler {
	return &StudyHandler{studyService: studyService}
}

func (h *StudyHandler) Quiz(c *gin.Context) {
	sessionID, ok := bindSession(c)
	if !ok {
		return
	}
	questions, err := h.studyService.Quiz(c.Request.Context(), sessionID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"questions": questions})
}

func (h *StudyHandler) Flashcards(c *gin.Context) {
	sessionID, ok := bindSession(c)
	if !ok {
		return
	}
	cards, err := h.studyService.Flashcards(c.Request.Context(), sessionID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"flashcards": cards})
}

func (h *StudyHandler) ConversationName(c *gin.Context) {
	sessionID, ok := bindSession(c)
	if !ok {
		return
	}
	name, err := h.studyService.ConversationName(c.Request.Context(), sessionID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"name": name})
}

func bindSession(c *gin.Context) (string, bool) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return "", false
	}
	return req.SessionID, true
}
