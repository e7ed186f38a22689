// Package contact builds the support contact links handed to the app.
package contact

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/aviator-hackers/backend-avapk/internal/config"
)

var nonDigits = regexp.MustCompile(`\D`)

// Links are the community links shown in the app.
type Links struct {
	Telegram string `json:"telegram"`
	WhatsApp string `json:"whatsapp"`
}

// WhatsAppContact is a chat link pair for one phone and message.
type WhatsAppContact struct {
	Phone   string `json:"phone"`
	AppURL  string `json:"appUrl"`
	WebURL  string `json:"webUrl"`
	Message string `json:"message"`
}

type SendWhatsAppRequest struct {
	Phone    string `json:"phone"`
	Message  string `json:"message"`
	UserID   string `json:"userId"`
	Platform string `json:"platform"`
}

type SendWhatsAppResult struct {
	Phone            string `json:"phone"`
	AppURL           string `json:"appUrl"`
	WebURL           string `json:"webUrl"`
	FormattedMessage string `json:"formattedMessage"`
}

type AdminWhatsApp struct {
	Phone          string `json:"phone"`
	AppURL         string `json:"appUrl"`
	WebURL         string `json:"webUrl"`
	DefaultMessage string `json:"defaultMessage"`
}

type AdminContact struct {
	WhatsApp      AdminWhatsApp `json:"whatsapp"`
	Telegram      string        `json:"telegram"`
	WhatsAppGroup string        `json:"whatsappGroup"`
}

type Service struct {
	cfg config.ContactConfig
}

func NewService(cfg config.ContactConfig) *Service {
	return &Service{cfg: cfg}
}

func (s *Service) Links() Links {
	return Links{Telegram: s.cfg.TelegramLink, WhatsApp: s.cfg.WhatsAppLink}
}

// WhatsAppContact links to the admin phone; an empty message uses the default.
func (s *Service) WhatsAppContact(message string) WhatsAppContact {
	if message == "" {
		message = s.cfg.DefaultMessage
	}
	appURL, webURL := WhatsAppURLs(s.cfg.AdminPhone, message)
	return WhatsAppContact{
		Phone:   s.cfg.AdminPhone,
		AppURL:  appURL,
		WebURL:  webURL,
		Message: message,
	}
}

// SendWhatsApp appends the user id and platform to the message when given.
func (s *Service) SendWhatsApp(req SendWhatsAppRequest) SendWhatsAppResult {
	phone := req.Phone
	if phone == "" {
		phone = s.cfg.AdminPhone
	}
	message := req.Message
	if message == "" {
		message = s.cfg.DefaultMessage
	}
	if req.UserID != "" {
		message += "\n\nUser ID: " + req.UserID
	}
	if req.Platform != "" {
		message += "\nPlatform: " + req.Platform
	}

	appURL, webURL := WhatsAppURLs(phone, message)
	return SendWhatsAppResult{
		Phone:            phone,
		AppURL:           appURL,
		WebURL:           webURL,
		FormattedMessage: message,
	}
}

func (s *Service) AdminContact() AdminContact {
	appURL, webURL := WhatsAppURLs(s.cfg.AdminPhone, s.cfg.DefaultMessage)
	return AdminContact{
		WhatsApp: AdminWhatsApp{
			Phone:          s.cfg.AdminPhone,
			AppURL:         appURL,
			WebURL:         webURL,
			DefaultMessage: s.cfg.DefaultMessage,
		},
		Telegram:      s.cfg.TelegramLink,
		WhatsAppGroup: s.cfg.WhatsAppLink,
	}
}

// WhatsAppURLs returns the app deep link and the wa.me fallback. Everything
// but digits is stripped from phone.
func WhatsAppURLs(phone, message string) (appURL, webURL string) {
	digits := nonDigits.ReplaceAllString(phone, "")
	text := EncodeURIComponent(message)
	appURL = "whatsapp://send?phone=" + digits + "&text=" + text
	webURL = "https://wa.me/" + digits + "?text=" + text
	return appURL, webURL
}

var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeURIComponent escapes s the way browsers do for a single URI component:
// spaces become %20 and !'()* are kept.
func EncodeURIComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}
