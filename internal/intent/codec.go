package intent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	xerrors "hushpay/internal/errors"
)

var ErrUnknownKind = xerrors.New(xerrors.CodeInvalidArgument, "unknown intent kind")

type header struct {
	Action Kind `json:"action"`
}

// Decode parses an interpreter intent object. A null object, an empty
// action or the "chat" action decode to a nil Intent without error.
func Decode(data []byte) (Intent, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "decode intent header")
	}
	kind := Kind(strings.ToLower(strings.TrimSpace(string(h.Action))))
	var target Intent
	switch kind {
	case "", "chat":
		return nil, nil
	case KindCheckBalance:
		return CheckBalance{}, nil
	case KindGetWallet:
		return GetWallet{}, nil
	case KindGetReceipts:
		return GetReceipts{}, nil
	case KindListContacts:
		return ListContacts{}, nil
	case KindListRecurring:
		return ListRecurring{}, nil
	case KindSetPIN:
		return SetPIN{}, nil
	case KindSaveContact:
		target = decodeInto[SaveContact](data)
	case KindDeleteContact:
		target = decodeInto[DeleteContact](data)
	case KindCancelRecurring:
		target = decodeInto[CancelRecurring](data)
	case KindSetLanguage:
		target = decodeInto[SetLanguage](data)
	case KindPriceAlert:
		target = decodeInto[PriceAlert](data)
	case KindPaymentRequest:
		target = decodeInto[PaymentRequest](data)
	case KindSendPayment:
		target = decodeInto[SendPayment](data)
	case KindAnonSend:
		target = decodeInto[AnonSend](data)
	case KindDeposit:
		target = decodeInto[Deposit](data)
	case KindWithdraw:
		target = decodeInto[Withdraw](data)
	case KindCrossChainSend:
		target = decodeInto[CrossChainSend](data)
	case KindSplitPayment:
		target = decodeInto[SplitPayment](data)
	case KindRecurringPayment:
		target = decodeInto[RecurringPayment](data)
	default:
		return nil, xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("unknown intent kind %q", kind))
	}
	if d, ok := target.(decodeFailure); ok {
		return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, d.err, "decode "+string(kind))
	}
	return target, nil
}

type decodeFailure struct {
	err error
}

func (decodeFailure) Kind() Kind { return "" }
func (decodeFailure) sealed()    {}

func decodeInto[T Intent](data []byte) Intent {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return decodeFailure{err: err}
	}
	return v
}

// Encode renders in as a flat JSON object tagged with "action".
func Encode(in Intent) ([]byte, error) {
	if in == nil {
		return []byte("null"), nil
	}
	body, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	tag, err := json.Marshal(header{Action: in.Kind()})
	if err != nil {
		return nil, err
	}
	if bytes.Equal(body, []byte("{}")) {
		return tag, nil
	}
	// {"action":"x"} + {"a":1} -> {"action":"x","a":1}
	out := make([]byte, 0, len(tag)+len(body))
	out = append(out, tag[:len(tag)-1]...)
	out = append(out, ',')
	out = append(out, body[1:]...)
	return out, nil
}

// Envelope carries an Intent through JSON-encoded records.
type Envelope struct {
	Intent Intent
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	return Encode(e.Intent)
}

func (e *Envelope) UnmarshalJSON(data []byte) error {
	in, err := Decode(data)
	if err != nil {
		return err
	}
	e.Intent = in
	return nil
}
