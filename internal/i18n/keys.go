package i18n

const (
	Welcome            Key = "welcome"
	Cancelled          Key = "cancelled"
	NothingToCancel    Key = "nothing_to_cancel"
	NothingToRetry     Key = "nothing_to_retry"
	RetryPrompt        Key = "retry_prompt"
	ConfirmPrompt      Key = "confirm_prompt"
	AmountTooSmall     Key = "amount_too_small"
	NeedDestination    Key = "need_destination"
	StepUpLink         Key = "stepup_link"
	RateLimited        Key = "rate_limited"
	GenericError       Key = "generic_error"
	Sent               Key = "sent"
	Received           Key = "received"
	Blocked            Key = "blocked"
	InsufficientFunds  Key = "insufficient_funds"
	TransferFailed     Key = "transfer_failed"
	AnonSent           Key = "anon_sent"
	Deposited          Key = "deposited"
	Withdrew           Key = "withdrew"
	SplitHeader        Key = "split_header"
	SplitLineOK        Key = "split_line_ok"
	SplitLineFailed    Key = "split_line_failed"
	BridgeSent         Key = "bridge_sent"
	UnknownChain       Key = "unknown_chain"
	InvalidAddress     Key = "invalid_address"
	UnknownRecipient   Key = "unknown_recipient"
	RecurringCreated   Key = "recurring_created"
	RecurringSent      Key = "recurring_sent"
	RecurringReceived  Key = "recurring_received"
	RecurringEmpty     Key = "recurring_empty"
	RecurringHeader    Key = "recurring_header"
	RecurringCancelled Key = "recurring_cancelled"
	RecurringNotFound  Key = "recurring_not_found"
	Balance            Key = "balance"
	Wallet             Key = "wallet"
	ReceiptsEmpty      Key = "receipts_empty"
	ReceiptsHeader     Key = "receipts_header"
	ContactsEmpty      Key = "contacts_empty"
	ContactsHeader     Key = "contacts_header"
	ContactSaved       Key = "contact_saved"
	ContactDeleted     Key = "contact_deleted"
	ContactNotFound    Key = "contact_not_found"
	LanguageSet        Key = "language_set"
	LanguageUnknown    Key = "language_unknown"
	PriceAlertSet      Key = "price_alert_set"
	PriceAlertHit      Key = "price_alert_hit"
	RequestSent        Key = "request_sent"
	RequestReceived    Key = "request_received"
	PINLink            Key = "pin_link"
	PINSet             Key = "pin_set"
	PINFormat          Key = "pin_format"
	PINWrong           Key = "pin_wrong"
	PINLocked          Key = "pin_locked"
	PINTooMany         Key = "pin_too_many"
	LinkExpired        Key = "link_expired"
	Unsupported        Key = "unsupported"
)
