package api

import (
	"context"
	"encoding/xml"
	"log/slog"
	"net/http"
	"strings"

	xerrors "hushpay/internal/errors"
	"hushpay/internal/i18n"
	"hushpay/internal/identity"
	"hushpay/internal/phone"
	"hushpay/internal/provider"
	"hushpay/pkg/logger"
)

const whatsappPrefix = "whatsapp:"

type twiml struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message,omitempty"`
}

func (s *Server) handleSMS(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}
	from := r.PostForm.Get("From")
	body := strings.TrimSpace(r.PostForm.Get("Body"))

	reply, err := s.conv.HandleInboundMessage(r.Context(), from, body, provider.ChannelSMS)
	if xerrors.Is(err, identity.ErrInvalidIdentifier) {
		s.log.Warn("sms from invalid sender", slog.String("from", from))
		http.Error(w, "invalid sender", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.log.Error("handle sms", logger.Phone(from), slog.Any("error", err))
		reply = s.apology(from)
	}
	writeTwiML(w, reply)
}

// handleWhatsApp acknowledges at once and answers through the outbound queue.
func (s *Server) handleWhatsApp(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}
	from := strings.TrimPrefix(r.PostForm.Get("From"), whatsappPrefix)
	body := strings.TrimSpace(r.PostForm.Get("Body"))
	ctx := context.WithoutCancel(r.Context())

	w.WriteHeader(http.StatusOK)

	s.async(func() {
		reply, err := s.conv.HandleInboundMessage(ctx, from, body, provider.ChannelWhatsApp)
		if xerrors.Is(err, identity.ErrInvalidIdentifier) {
			s.log.Warn("whatsapp from invalid sender", slog.String("from", from))
			return
		}
		if err != nil {
			s.log.Error("handle whatsapp", logger.Phone(from), slog.Any("error", err))
			reply = s.apology(from)
		}
		if reply == "" || s.replies == nil {
			return
		}
		if err := s.replies.Notify(ctx, from, provider.ChannelWhatsApp, reply); err != nil {
			s.log.Error("queue whatsapp reply", logger.Phone(from), slog.Any("error", err))
		}
	})
}

func (s *Server) apology(from string) string {
	lang := i18n.Default
	if normalized, ok := phone.Normalize(from); ok {
		lang = phone.Language(normalized)
	}
	return i18n.T(lang, i18n.GenericError)
}

func writeTwiML(w http.ResponseWriter, message string) {
	out, err := xml.Marshal(twiml{Message: message})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	_, _ = w.Write(out)
}
