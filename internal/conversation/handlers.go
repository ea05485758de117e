package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"hushpay/internal/alerts"
	xerrors "hushpay/internal/errors"
	"hushpay/internal/i18n"
	"hushpay/internal/identity"
	"hushpay/internal/intent"
	"hushpay/internal/ledger"
	"hushpay/internal/llm"
	"hushpay/internal/money"
	"hushpay/internal/phone"
	"hushpay/internal/provider"
	"hushpay/pkg/logger"
)

func (e *Engine) interpret(ctx context.Context, id identity.Identity, text string, channel provider.Channel) (string, error) {
	req := llm.Request{
		Identity:     id.Phone,
		Message:      text,
		Language:     id.Language,
		NativeToken:  e.nativeToken,
		Destinations: e.deps.Destinations.Names(),
	}
	if e.deps.Chat != nil {
		history, err := e.deps.Chat.Recent(ctx, id.Phone, e.historyDepth)
		if err != nil {
			return "", err
		}
		for _, m := range history {
			req.History = append(req.History, llm.Turn{Role: string(m.Role), Text: m.Text})
		}
	}
	contacts, err := e.deps.Identities.ListContacts(ctx, id.Phone)
	if err != nil {
		return "", err
	}
	for _, c := range contacts {
		req.Contacts = append(req.Contacts, c.Name)
	}

	resp, err := e.deps.Interpreter.Interpret(ctx, req)
	if err != nil {
		e.log.Warn("interpreter failed", logger.Phone(id.Phone), slog.Any("error", err))
		return i18n.T(id.Language, i18n.GenericError), nil
	}
	if resp == nil || resp.Intent == nil {
		if resp == nil || resp.Reply == "" {
			return i18n.T(id.Language, i18n.Unsupported), nil
		}
		return resp.Reply, nil
	}

	if staged, ok := resp.Intent.(intent.Staged); ok {
		return e.stage(ctx, id, staged, resp.Reply)
	}
	switch v := resp.Intent.(type) {
	case intent.CheckBalance:
		return e.balance(ctx, id)
	case intent.GetWallet:
		return i18n.T(id.Language, i18n.Wallet, "wallet", id.WalletAddress), nil
	case intent.GetReceipts:
		return e.receipts(ctx, id)
	case intent.ListContacts:
		return e.listContacts(id, contacts), nil
	case intent.ListRecurring:
		return e.listRecurring(ctx, id)
	case intent.SaveContact:
		return e.saveContact(ctx, id, v)
	case intent.DeleteContact:
		return e.deleteContact(ctx, id, v)
	case intent.CancelRecurring:
		return e.cancelRecurring(ctx, id, v)
	case intent.SetLanguage:
		return e.setLanguage(ctx, id, v)
	case intent.PriceAlert:
		return e.priceAlert(ctx, id, v)
	case intent.PaymentRequest:
		return e.paymentRequest(ctx, id, v, channel)
	case intent.SetPIN:
		url, err := e.deps.Gate.CreatePINLink(ctx, id.Phone)
		if err != nil {
			return "", err
		}
		return i18n.T(id.Language, i18n.PINLink, "url", url), nil
	default:
		return i18n.T(id.Language, i18n.Unsupported), nil
	}
}

// stage validates in and makes it the identity's single pending action.
// Nothing is executed here.
func (e *Engine) stage(ctx context.Context, id identity.Identity, in intent.Staged, reply string) (string, error) {
	in = intent.WithDefaultToken(in, e.nativeToken)
	token := in.Symbol()
	if in.Principal() < money.MinTransfer {
		return i18n.T(id.Language, i18n.AmountTooSmall, "min", money.MinTransfer.String(), "token", token), nil
	}
	switch v := in.(type) {
	case intent.CrossChainSend:
		dest, ok := e.deps.Destinations.Lookup(v.DestinationChain)
		if !ok {
			return i18n.T(id.Language, i18n.UnknownChain, "chain", v.DestinationChain,
				"chains", strings.Join(e.deps.Destinations.Names(), ", ")), nil
		}
		if strings.TrimSpace(v.DestinationAddress) == "" {
			return i18n.T(id.Language, i18n.NeedDestination, "chain", dest.Name), nil
		}
	case intent.SplitPayment:
		if len(v.Recipients) == 0 {
			return i18n.T(id.Language, i18n.UnknownRecipient, "recipient", ""), nil
		}
		if share, _ := v.Total.Split(len(v.Recipients)); share < money.MinTransfer {
			return i18n.T(id.Language, i18n.AmountTooSmall, "min", money.MinTransfer.String(), "token", token), nil
		}
	case intent.RecurringPayment:
		if !v.Frequency.Valid() {
			return i18n.T(id.Language, i18n.Unsupported), nil
		}
	}
	if _, err := e.revokeLink(ctx, id.Phone); err != nil {
		return "", err
	}
	if _, err := e.deps.Pending.Stage(ctx, id.Phone, in); err != nil {
		return "", err
	}
	logger.Audit().Info("action staged", logger.Phone(id.Phone), slog.String("intent", string(in.Kind())))
	if strings.TrimSpace(reply) != "" {
		return reply, nil
	}
	return i18n.T(id.Language, i18n.ConfirmPrompt, "summary", intent.Describe(in)), nil
}

func (e *Engine) balance(ctx context.Context, id identity.Identity) (string, error) {
	var public, private money.Amount
	if e.deps.Balances != nil {
		bal, err := e.deps.Balances.Balance(ctx, id.WalletAddress)
		if err != nil {
			e.log.Warn("read public balance", logger.Phone(id.Phone), slog.Any("error", err))
		}
		public = bal
	}
	if e.deps.Pool != nil {
		key, err := e.deps.Identities.Keypair(id)
		if err != nil {
			return "", err
		}
		bal, err := e.deps.Pool.PrivateBalance(ctx, key, e.nativeToken)
		if err != nil {
			e.log.Warn("read private balance", logger.Phone(id.Phone), slog.Any("error", err))
		}
		private = bal
	}
	wallet := id.WalletAddress
	if len(wallet) > 8 {
		wallet = wallet[:8]
	}
	return i18n.T(id.Language, i18n.Balance,
		"public", public.Fixed(4), "private", private.Fixed(4),
		"token", e.nativeToken, "wallet", wallet), nil
}

func (e *Engine) receipts(ctx context.Context, id identity.Identity) (string, error) {
	if e.deps.Ledger == nil {
		return i18n.T(id.Language, i18n.ReceiptsEmpty), nil
	}
	list, err := e.deps.Ledger.ListForIdentity(ctx, id.Phone, e.receiptsLimit)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return i18n.T(id.Language, i18n.ReceiptsEmpty), nil
	}
	lines := []string{i18n.T(id.Language, i18n.ReceiptsHeader)}
	for _, t := range list {
		lines = append(lines, receiptLine(id.Phone, t))
	}
	return strings.Join(lines, "\n"), nil
}

func receiptLine(owner string, t ledger.Transfer) string {
	mark := "…"
	switch t.Status {
	case ledger.StatusConfirmed:
		mark = "✓"
	case ledger.StatusFailed:
		mark = "✗"
	}
	date := t.CreatedAt.Format("Jan 2")
	if t.Sender == owner {
		return fmt.Sprintf("%s -%s %s → %s (%s)", mark, t.Amount, t.Token, counterparty(t.Recipient), date)
	}
	return fmt.Sprintf("%s +%s %s ← %s (%s)", mark, t.Amount, t.Token, phone.Last4(t.Sender), date)
}

func counterparty(ref string) string {
	if strings.HasPrefix(ref, "+") {
		return phone.Last4(ref)
	}
	if len(ref) > 12 {
		return ref[:6] + "..." + ref[len(ref)-4:]
	}
	return ref
}

func (e *Engine) listContacts(id identity.Identity, contacts []identity.Contact) string {
	if len(contacts) == 0 {
		return i18n.T(id.Language, i18n.ContactsEmpty)
	}
	lines := []string{i18n.T(id.Language, i18n.ContactsHeader)}
	for _, c := range contacts {
		lines = append(lines, "• "+c.Name+": "+c.Phone)
	}
	return strings.Join(lines, "\n")
}

func (e *Engine) listRecurring(ctx context.Context, id identity.Identity) (string, error) {
	if e.deps.Recurring == nil {
		return i18n.T(id.Language, i18n.RecurringEmpty), nil
	}
	active, err := e.deps.Recurring.ListActive(ctx, id.Phone)
	if err != nil {
		return "", err
	}
	if len(active) == 0 {
		return i18n.T(id.Language, i18n.RecurringEmpty), nil
	}
	lines := []string{i18n.T(id.Language, i18n.RecurringHeader)}
	for _, a := range active {
		lines = append(lines, fmt.Sprintf("• %s %s → %s %s (next %s)",
			a.Amount, a.Token, a.Recipient, a.Frequency, a.NextRunAt.Format("Jan 2")))
	}
	return strings.Join(lines, "\n"), nil
}

func (e *Engine) saveContact(ctx context.Context, id identity.Identity, v intent.SaveContact) (string, error) {
	c, err := e.deps.Identities.SaveContact(ctx, id.Phone, v.Name, v.Phone)
	switch {
	case xerrors.Is(err, identity.ErrInvalidIdentifier), xerrors.CodeOf(err) == xerrors.CodeInvalidArgument:
		return i18n.T(id.Language, i18n.UnknownRecipient, "recipient", v.Phone), nil
	case err != nil:
		return "", err
	}
	return i18n.T(id.Language, i18n.ContactSaved, "name", c.Name, "phone", c.Phone), nil
}

func (e *Engine) deleteContact(ctx context.Context, id identity.Identity, v intent.DeleteContact) (string, error) {
	deleted, err := e.deps.Identities.DeleteContact(ctx, id.Phone, v.Name)
	if err != nil {
		return "", err
	}
	if !deleted {
		return i18n.T(id.Language, i18n.ContactNotFound, "name", v.Name), nil
	}
	return i18n.T(id.Language, i18n.ContactDeleted, "name", v.Name), nil
}

func (e *Engine) cancelRecurring(ctx context.Context, id identity.Identity, v intent.CancelRecurring) (string, error) {
	if e.deps.Recurring == nil {
		return i18n.T(id.Language, i18n.RecurringNotFound, "recipient", v.Recipient), nil
	}
	recipient, err := e.deps.Identities.ResolveRecipient(ctx, id.Phone, v.Recipient)
	if xerrors.Is(err, identity.ErrUnknownRecipient) {
		return i18n.T(id.Language, i18n.RecurringNotFound, "recipient", v.Recipient), nil
	}
	if err != nil {
		return "", err
	}
	n, err := e.deps.Recurring.Deactivate(ctx, id.Phone, recipient.Phone)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return i18n.T(id.Language, i18n.RecurringNotFound, "recipient", v.Recipient), nil
	}
	logger.Audit().Info("recurring payment cancelled", logger.Phone(id.Phone), slog.Int("count", n))
	return i18n.T(id.Language, i18n.RecurringCancelled, "recipient", v.Recipient), nil
}

func (e *Engine) setLanguage(ctx context.Context, id identity.Identity, v intent.SetLanguage) (string, error) {
	code, ok := i18n.Match(v.Language)
	if !ok {
		return i18n.T(id.Language, i18n.LanguageUnknown, "languages", strings.Join(i18n.Supported(), ", ")), nil
	}
	if err := e.deps.Identities.SetLanguage(ctx, id.Phone, code); err != nil {
		return "", err
	}
	return i18n.T(code, i18n.LanguageSet), nil
}

func (e *Engine) priceAlert(ctx context.Context, id identity.Identity, v intent.PriceAlert) (string, error) {
	if e.deps.Alerts == nil || (v.Condition != intent.Above && v.Condition != intent.Below) || !v.TargetPrice.IsPositive() {
		return i18n.T(id.Language, i18n.Unsupported), nil
	}
	token := strings.ToUpper(strings.TrimSpace(v.Token))
	if token == "" {
		token = e.nativeToken
	}
	a := alerts.Alert{
		ID:          uuid.NewString(),
		Identity:    id.Phone,
		Token:       token,
		Condition:   v.Condition,
		TargetPrice: v.TargetPrice,
		Active:      true,
		CreatedAt:   e.now().UTC(),
	}
	if err := e.deps.Alerts.Replace(ctx, a); err != nil {
		return "", err
	}
	return i18n.T(id.Language, i18n.PriceAlertSet,
		"token", token, "condition", string(v.Condition), "price", v.TargetPrice.String()), nil
}

func (e *Engine) paymentRequest(ctx context.Context, id identity.Identity, v intent.PaymentRequest, channel provider.Channel) (string, error) {
	payer, err := e.deps.Identities.ResolveRecipient(ctx, id.Phone, v.Payer)
	if xerrors.Is(err, identity.ErrUnknownRecipient) {
		return i18n.T(id.Language, i18n.UnknownRecipient, "recipient", v.Payer), nil
	}
	if err != nil {
		return "", err
	}
	token := strings.ToUpper(strings.TrimSpace(v.Token))
	if token == "" {
		token = e.nativeToken
	}
	if e.deps.Notifier != nil {
		text := i18n.T(payer.Language, i18n.RequestReceived, "from", id.Phone, "amount", v.Amount.String(), "token", token)
		if err := e.deps.Notifier.Notify(ctx, payer.Phone, channel, text); err != nil {
			e.log.Warn("deliver payment request", logger.Phone(payer.Phone), slog.Any("error", err))
		}
	}
	return i18n.T(id.Language, i18n.RequestSent, "amount", v.Amount.String(), "token", token, "recipient", v.Payer), nil
}
