package main

import (
	"net/url"

	"go.uber.org/zap"
)

type NotifyResult struct {
	OK       bool
	ResetURL string
}

// Notifier delivers a reset secret to an address, embedded in a link the
// recipient can follow to the confirm-reset endpoint. Email transport lives
// behind this seam; the core never sees SMTP.
type Notifier interface {
	Send(to, token string) NotifyResult
}

// LogNotifier is the development notifier: it builds the reset link and
// writes it to the server log instead of sending mail.
type LogNotifier struct {
	appURL string
	log    *zap.Logger
}

func NewLogNotifier(appURL string, log *zap.Logger) *LogNotifier {
	return &LogNotifier{appURL: appURL, log: log}
}

func (n *LogNotifier) Send(to, token string) NotifyResult {
	resetURL := n.appURL + "/auth/reset/confirm?token=" + url.QueryEscape(token)
	n.log.Info("password reset link issued",
		zap.String("to", to),
		zap.String("reset_url", resetURL),
	)
	return NotifyResult{OK: true, ResetURL: resetURL}
}
