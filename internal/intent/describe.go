package intent

import (
	"fmt"
	"strings"
)

// Describe renders a short imperative summary used in confirmation prompts,
// for example "Send 1 ETH to +15551234567".
func Describe(in Intent) string {
	switch v := in.(type) {
	case SendPayment:
		return fmt.Sprintf("Send %s %s to %s", v.Amount, v.Token, v.Recipient)
	case AnonSend:
		return fmt.Sprintf("Send %s %s anonymously to %s", v.Amount, v.Token, shortAddress(v.Wallet))
	case Deposit:
		return fmt.Sprintf("Deposit %s %s to the private pool", v.Amount, v.Token)
	case Withdraw:
		return fmt.Sprintf("Withdraw %s %s to your public wallet", v.Amount, v.Token)
	case CrossChainSend:
		return fmt.Sprintf("Send %s %s to %s on %s", v.Amount, v.Token, shortAddress(v.DestinationAddress), v.DestinationChain)
	case SplitPayment:
		return fmt.Sprintf("Split %s %s between %s", v.Total, v.Token, strings.Join(v.Recipients, ", "))
	case RecurringPayment:
		return fmt.Sprintf("Send %s %s to %s %s", v.Amount, v.Token, v.Recipient, v.Frequency)
	case nil:
		return ""
	default:
		return strings.ReplaceAll(string(in.Kind()), "_", " ")
	}
}

func shortAddress(addr string) string {
	if len(addr) <= 14 {
		return addr
	}
	return addr[:8] + "..." + addr[len(addr)-4:]
}
