package handlers

import (
	"log"
	"net/http"

	"scribe/middleware"
	"scribe/models"
	"scribe/repository"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
)

type PushHandler struct {
	subs      repository.PushRepository
	publicKey string
}

func NewPushHandler(subs repository.PushRepository, publicKey string) *PushHandler {
	return &PushHandler{subs: subs, publicKey: publicKey}
}

type SubscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required,url"`
	Keys     struct {
		P256dh string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys" binding:"required"`
}

func (h *PushHandler) GetVapidPublicKey(c *gin.Context) {
	if h.publicKey == "" {
		respondError(c, models.NewUnavailableError("VAPID public key not configured"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"publicKey": h.publicKey})
}

func (h *PushHandler) Subscribe(c *gin.Context) {
	var req SubscribeRequest
	if !bindJSON(c, &req) {
		return
	}
	session := middleware.SessionFrom(c)
	if session == nil {
		respondError(c, models.NewUnauthenticatedError("Authentication required"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	sub := webpush.Subscription{
		Endpoint: req.Endpoint,
		Keys:     webpush.Keys{P256dh: req.Keys.P256dh, Auth: req.Keys.Auth},
	}
	if err := h.subs.Save(ctx, session.UID, sub); err != nil {
		respondError(c, err)
		return
	}

	log.Printf("Push subscription saved for user: %s", session.UID)
	c.JSON(http.StatusOK, MessageResponse{Message: "Push subscription saved successfully"})
}
