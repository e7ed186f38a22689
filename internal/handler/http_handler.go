package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aviator-hackers/backend-avapk/internal/config"
	"github.com/aviator-hackers/backend-avapk/internal/contact"
	"github.com/aviator-hackers/backend-avapk/internal/directory"
	"github.com/aviator-hackers/backend-avapk/internal/hub"
	"github.com/aviator-hackers/backend-avapk/internal/registry"
	"github.com/aviator-hackers/backend-avapk/internal/upload"
	"github.com/aviator-hackers/backend-avapk/pkg/log"
	"github.com/aviator-hackers/backend-avapk/pkg/response"
)

// multipartOverhead is allowed on top of the image limit for form framing.
const multipartOverhead = 64 << 10

// Handler serves the HTTP side of the app backend. The endpoints the mobile
// app already calls keep their flat JSON bodies; only errors and the support
// session endpoints use the response envelope.
type Handler struct {
	contact   *contact.Service
	uploads   *upload.Processor
	hub       *hub.Hub
	registry  *registry.Registry
	directory directory.Directory
	app       config.AppConfig
}

func NewHandler(contactSvc *contact.Service, uploads *upload.Processor, h *hub.Hub, reg *registry.Registry, dir directory.Directory, app config.AppConfig) *Handler {
	if dir == nil {
		dir = directory.Nop{}
	}
	return &Handler{
		contact:   contactSvc,
		uploads:   uploads,
		hub:       h,
		registry:  reg,
		directory: dir,
		app:       app,
	}
}

type whatsAppContactResponse struct {
	Success bool `json:"success"`
	contact.WhatsAppContact
}

type sendWhatsAppResponse struct {
	Success bool `json:"success"`
	contact.SendWhatsAppResult
}

type adminContactResponse struct {
	Success bool                 `json:"success"`
	Contact contact.AdminContact `json:"contact"`
}

type versionResponse struct {
	LatestVersion string `json:"latestVersion"`
	DownloadURL   string `json:"downloadUrl"`
}

type uploadResponse struct {
	ImageURL string `json:"imageUrl"`
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	{
		api.GET("/links", h.Links)
		api.GET("/whatsapp-contact", h.WhatsAppContact)
		api.POST("/send-whatsapp", h.SendWhatsApp)
		api.GET("/admin-contact", h.AdminContact)
		api.GET("/check-version", h.CheckVersion)
		api.POST("/upload", h.Upload)
		api.GET("/support/sessions", h.ListSessions)
		api.GET("/support/sessions/:sessionId", h.GetSession)
	}
}

func (h *Handler) Health(c *gin.Context) {
	response.Success(c, gin.H{
		"status":      "ok",
		"connections": h.hub.ClientCount(),
		"rooms":       h.hub.Router().RoomCount(),
	})
}

func (h *Handler) Links(c *gin.Context) {
	c.JSON(http.StatusOK, h.contact.Links())
}

func (h *Handler) WhatsAppContact(c *gin.Context) {
	c.JSON(http.StatusOK, whatsAppContactResponse{
		Success:         true,
		WhatsAppContact: h.contact.WhatsAppContact(c.Query("message")),
	})
}

func (h *Handler) SendWhatsApp(c *gin.Context) {
	var req contact.SendWhatsAppRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			l := log.Ctx(c.Request.Context())
			l.Warn().Err(err).Msg("failed to bind send-whatsapp request")
			response.BadRequest(c, "invalid request body")
			return
		}
	}
	c.JSON(http.StatusOK, sendWhatsAppResponse{
		Success:            true,
		SendWhatsAppResult: h.contact.SendWhatsApp(req),
	})
}

func (h *Handler) AdminContact(c *gin.Context) {
	c.JSON(http.StatusOK, adminContactResponse{Success: true, Contact: h.contact.AdminContact()})
}

func (h *Handler) CheckVersion(c *gin.Context) {
	c.JSON(http.StatusOK, versionResponse{
		LatestVersion: h.app.LatestVersion,
		DownloadURL:   h.app.DownloadURL,
	})
}

// Upload accepts one image in the multipart field "image".
func (h *Handler) Upload(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.uploads.MaxBytes()+multipartOverhead)

	fh, err := c.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.PayloadTooLarge(c, "image too large")
			return
		}
		response.BadRequest(c, "no image uploaded")
		return
	}
	if fh.Size > h.uploads.MaxBytes() {
		response.PayloadTooLarge(c, "image too large")
		return
	}

	f, err := fh.Open()
	if err != nil {
		l.Error().Err(err).Msg("failed to open uploaded file")
		response.InternalError(c, "failed to read upload")
		return
	}
	defer f.Close()

	url, err := h.uploads.Save(ctx, f)
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrTooLarge):
			response.PayloadTooLarge(c, "image too large")
		case errors.Is(err, upload.ErrNotImage):
			response.UnsupportedMediaType(c, "only image files are allowed")
		default:
			l.Error().Err(err).Msg("failed to store upload")
			response.InternalError(c, "upload failed")
		}
		return
	}

	c.JSON(http.StatusOK, uploadResponse{ImageURL: url})
}

type sessionView struct {
	SessionID   string    `json:"sessionId"`
	DisplayName string    `json:"displayName"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// ListSessions returns the user sessions connected right now.
func (h *Handler) ListSessions(c *gin.Context) {
	sessions := h.registry.Sessions()
	out := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionView{
			SessionID:   s.SessionID,
			DisplayName: s.DisplayName,
			JoinedAt:    s.JoinedAt,
		})
	}
	response.Success(c, gin.H{"sessions": out})
}

// GetSession answers from the session directory, so with Redis enabled it
// also sees sessions held by sibling processes sharing the prefix.
func (h *Handler) GetSession(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := c.Param("sessionId")

	entry, err := h.directory.Lookup(ctx, sessionID)
	if err != nil {
		if errors.Is(err, directory.ErrSessionNotFound) {
			response.NotFound(c, "session not found")
			return
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldSessionID, sessionID).Msg("failed to lookup session")
		response.InternalError(c, "failed to lookup session")
		return
	}

	response.Success(c, gin.H{
		"sessionId":   sessionID,
		"displayName": entry.DisplayName,
		"address":     entry.Address,
	})
}
