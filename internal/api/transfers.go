package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"hushpay/internal/money"
)

const maxWebhookBody = 1 << 20

// transferEvent is the subset of an enhanced transaction webhook we read.
// Native amounts are minor units with the same nine decimals as money.Amount.
type transferEvent struct {
	Type            string `json:"type"`
	Signature       string `json:"signature"`
	NativeTransfers []struct {
		FromUserAccount string `json:"fromUserAccount"`
		ToUserAccount   string `json:"toUserAccount"`
		Amount          int64  `json:"amount"`
	} `json:"nativeTransfers"`
}

// handleTransfers always answers 200 once the body parses so the provider
// does not redeliver events we already acted on.
func (s *Server) handleTransfers(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	events, err := decodeEvents(body)
	if err != nil {
		s.log.Warn("malformed transfer webhook", slog.Any("error", err))
		http.Error(w, "malformed body", http.StatusBadRequest)
		return
	}

	notified := 0
	for _, ev := range events {
		if ev.Type != "TRANSFER" {
			continue
		}
		for _, nt := range ev.NativeTransfers {
			if nt.ToUserAccount == "" || nt.Amount <= 0 {
				continue
			}
			err := s.conv.HandleIncomingTransfer(r.Context(), nt.ToUserAccount, money.Amount(nt.Amount), s.native, nt.FromUserAccount)
			if err != nil {
				s.log.Warn("incoming transfer notification failed",
					slog.String("signature", ev.Signature),
					slog.Any("error", err),
				)
				continue
			}
			notified++
		}
	}
	s.log.Debug("transfer webhook processed", slog.Int("events", len(events)), slog.Int("notified", notified))
	w.WriteHeader(http.StatusOK)
}

func decodeEvents(body []byte) ([]transferEvent, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var one transferEvent
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, err
		}
		return []transferEvent{one}, nil
	}
	var many []transferEvent
	if err := json.Unmarshal(trimmed, &many); err != nil {
		return nil, err
	}
	return many, nil
}
