// Package api exposes the webhook surface: inbound SMS and WhatsApp
// messages, the PIN confirmation page, incoming-transfer notifications,
// health and metrics.
package api
