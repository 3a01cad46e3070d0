package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/code-100-precent/echobridge/internal/models"
)

// CallHandler serves read access to finished and in-flight calls.
type CallHandler struct {
	db *gorm.DB
}

func NewCallHandler(db *gorm.DB) *CallHandler {
	return &CallHandler{db: db}
}

func (h *CallHandler) GetCall(c *gin.Context) {
	callID := c.Param("callId")
	record, err := models.GetCallRecordByCallID(h.db, callID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "call not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *CallHandler) GetTranscripts(c *gin.Context) {
	callID := c.Param("callId")
	entries, err := models.ListTranscripts(h.db, callID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"call_id":     callID,
		"transcripts": entries,
	})
}
