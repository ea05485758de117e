package api

import (
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"hushpay/internal/conversation"
	"hushpay/internal/i18n"
	"hushpay/internal/intent"
	"hushpay/internal/stepup"
)

var confirmPage = template.Must(template.New("confirm").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>HushPay</title>
<style>
body{font-family:system-ui,sans-serif;max-width:420px;margin:3rem auto;padding:0 1rem}
input{font-size:1.4rem;letter-spacing:.4rem;width:100%;padding:.5rem;margin:.4rem 0}
button{font-size:1.1rem;width:100%;padding:.6rem}
.note{white-space:pre-line}
</style>
</head>
<body>
<h1>HushPay</h1>
{{if .Summary}}<p><strong>{{.Summary}}</strong></p>{{end}}
{{if .Message}}<p class="note">{{.Message}}</p>{{end}}
{{if .Form}}
<form method="post">
<label>{{if .SetPIN}}Choose a 4-6 digit PIN{{else}}Enter your PIN{{end}}
<input type="password" name="pin" inputmode="numeric" pattern="[0-9]*" minlength="4" maxlength="6" autocomplete="off" required autofocus>
</label>
{{if .SetPIN}}<label>Repeat PIN
<input type="password" name="pin_confirm" inputmode="numeric" pattern="[0-9]*" minlength="4" maxlength="6" autocomplete="off" required>
</label>{{end}}
<button type="submit">{{if .SetPIN}}Set PIN{{else}}Confirm{{end}}</button>
</form>
{{end}}
</body>
</html>
`))

type confirmView struct {
	Summary string
	Message string
	Form    bool
	SetPIN  bool
}

func (s *Server) handleConfirmPage(w http.ResponseWriter, r *http.Request) {
	t, ok, err := s.links.Lookup(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		s.log.Error("lookup confirmation link", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if !ok {
		renderConfirm(w, http.StatusGone, confirmView{Message: i18n.T(i18n.Default, i18n.LinkExpired)})
		return
	}
	renderConfirm(w, http.StatusOK, formView(t, ""))
}

func (s *Server) handleConfirmSubmit(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}
	pin := strings.TrimSpace(r.PostForm.Get("pin"))

	t, ok, err := s.links.Lookup(r.Context(), token)
	if err != nil {
		s.log.Error("lookup confirmation link", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if !ok {
		renderConfirm(w, http.StatusGone, confirmView{Message: i18n.T(i18n.Default, i18n.LinkExpired)})
		return
	}

	var res conversation.StepUpResult
	switch t.Purpose {
	case stepup.PurposeSetPIN:
		if again := strings.TrimSpace(r.PostForm.Get("pin_confirm")); again != pin {
			renderConfirm(w, http.StatusOK, formView(t, "The two PINs do not match."))
			return
		}
		res, err = s.conv.SetPINWithToken(r.Context(), token, pin)
	default:
		res, err = s.conv.ResumeWithPIN(r.Context(), token, pin)
	}
	if err != nil {
		s.log.Error("confirm step-up", slog.String("purpose", string(t.Purpose)), slog.Any("error", err))
		renderConfirm(w, http.StatusInternalServerError, confirmView{Message: i18n.T(i18n.Default, i18n.GenericError)})
		return
	}
	if res.Retry {
		renderConfirm(w, http.StatusOK, formView(t, res.Message))
		return
	}
	renderConfirm(w, http.StatusOK, confirmView{Message: res.Message})
}

func formView(t stepup.Token, message string) confirmView {
	v := confirmView{Message: message, Form: true, SetPIN: t.Purpose == stepup.PurposeSetPIN}
	if !v.SetPIN && t.Intent.Intent != nil {
		v.Summary = intent.Describe(t.Intent.Intent)
	}
	return v
}

func renderConfirm(w http.ResponseWriter, status int, v confirmView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = confirmPage.Execute(w, v)
}
