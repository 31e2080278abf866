package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"pdfchat/internal/app"
	"pdfchat/internal/transport/http/response"
)

type RAGHandler struct {
	ragService     *app.RAGService
	maxUploadBytes int64
}

type ChatRequest struct {
	Question       string `json:"question"`
	SessionID      string `json:"session_id" binding:"required"`
	ConversationID string `json:"conversation_id"`
}

func NewRAGHandler(ragService *app.RAGService, maxUploadBytes int64) *RAGHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &RAGHandler{ragService: ragService, maxUploadBytes: maxUploadBytes}
}

// Upload accepts a multipart form with "file" (PDF) and an optional "session_id" to merge into.
func (h *RAGHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+(1<<20))
	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.tooLarge(c)
			return
		}
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > h.maxUploadBytes {
		h.tooLarge(c)
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "failed to open uploaded file")
		return
	}
	defer f.Close()

	result, err := h.ragService.Upload(c.Request.Context(), app.UploadInput{
		FileName:  file.Filename,
		File:      f,
		SessionID: c.PostForm("session_id"),
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *RAGHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	result, err := h.ragService.Chat(c.Request.Context(), app.ChatInput{
		SessionID:      req.SessionID,
		Question:       req.Question,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *RAGHandler) tooLarge(c *gin.Context) {
	response.Error(c, http.StatusRequestEntityTooLarge, response.CodeTooLarge,
		fmt.Sprintf("file too large (max %dMB)", h.maxUploadBytes>>20))
}
