package i18n

var catalogs = map[string]map[Key]string{
	"en": {
		Welcome: "Welcome to HushPay! 🤫\n\nYour wallet is ready. Two ways to send:\n" +
			"• \"send 1 {token} to +234...\" (amount hidden)\n" +
			"• \"send anon 1 {token} to [wallet]\" (sender hidden)\n\n" +
			"Commands: balance, deposit, withdraw, receipts, help",
		Cancelled:          "Cancelled. Nothing was sent.",
		NothingToCancel:    "Nothing to cancel.",
		NothingToRetry:     "Nothing to retry.",
		RetryPrompt:        "Retry {summary}?\nReply YES to confirm or NO to cancel.",
		ConfirmPrompt:      "{summary}?\nReply YES to confirm or NO to cancel.",
		AmountTooSmall:     "Amount too small. The minimum is {min} {token}, below that the network fee eats the transfer.",
		NeedDestination:    "What {chain} address should receive it? Send the address and try again.",
		StepUpLink:         "🔐 Confirm with your PIN:\n{url}\n\nLink expires in 5 minutes.",
		RateLimited:        "Too many requests. Please wait a minute and try again.",
		GenericError:       "Something went wrong. Try again.",
		Sent:               "✓ Sent {amount} {token} to {recipient}\nAmount: [PRIVATE]\nTx: {tx}",
		Received:           "💰 You received {amount} {token}!\nFrom: {from}\n\nText \"balance\" to check.",
		Blocked:            "Transfer blocked: {reason}",
		InsufficientFunds:  "Insufficient balance. You have {balance} {token} but need {needed} {token} including fees.\nShort by {shortfall} {token}. Top up at least {topup} {token} to {wallet}.",
		TransferFailed:     "Transfer failed: {reason}\nReply RETRY to try again.",
		AnonSent:           "✓ Sent {amount} {token} anonymously\nSender: [UNTRACEABLE]\nTx: {tx}",
		Deposited:          "✓ Deposited {amount} {token} to private pool\nPrivate balance: {balance} {token}",
		Withdrew:           "✓ Withdrew {amount} {token} to public wallet\nPrivate balance: {balance} {token}",
		SplitHeader:        "Split {total} {token} ({share} each):",
		SplitLineOK:        "✓ {recipient}: sent",
		SplitLineFailed:    "✗ {recipient}: {reason}",
		BridgeSent:         "✓ Sent {amount} {token} to {chain}\nTo: {address}\nTx: {tx}",
		UnknownChain:       "{chain} is not supported. Try one of: {chains}.",
		InvalidAddress:     "That doesn't look like a valid wallet address.",
		UnknownRecipient:   "I couldn't find {recipient}. Use a phone number with country code or a saved contact name.",
		RecurringCreated:   "✓ Recurring payment set: {amount} {token} to {recipient} {frequency}.\nFirst payment will be sent now.",
		RecurringSent:      "✓ Recurring payment sent\n\n{amount} {token} → {recipient}\n[PRIVATE AMOUNT]",
		RecurringReceived:  "💸 You received {amount} {token}\n\n[PRIVATE AMOUNT]",
		RecurringEmpty:     "No recurring payments.",
		RecurringHeader:    "Recurring payments:",
		RecurringCancelled: "✓ Recurring payment to {recipient} cancelled.",
		RecurringNotFound:  "No active recurring payment to {recipient}.",
		Balance:            "Your balance:\n\n📊 Public:\n• {public} {token}\n\n🔒 Private Pool:\n• {private} {token}\n\nWallet: {wallet}...",
		Wallet:             "Your wallet address:\n{wallet}",
		ReceiptsEmpty:      "No payments yet. Send your first one!",
		ReceiptsHeader:     "Recent payments:",
		ContactsEmpty:      "No contacts saved yet. Try \"save mom +234...\".",
		ContactsHeader:     "Your contacts:",
		ContactSaved:       "✓ Saved {name} ({phone}).",
		ContactDeleted:     "✓ Deleted {name}.",
		ContactNotFound:    "No contact named {name}.",
		LanguageSet:        "✓ Language set to English.",
		LanguageUnknown:    "Supported languages: {languages}.",
		PriceAlertSet:      "✓ I'll text you when {token} goes {condition} ${price}.",
		PriceAlertHit:      "📈 {token} is now ${current} ({condition} ${price}).",
		RequestSent:        "✓ Payment request for {amount} {token} sent to {recipient}.",
		RequestReceived:    "💸 {from} requests {amount} {token}.\nReply \"send {amount} {token} to {from}\" to pay.",
		PINLink:            "🔐 Set your PIN here:\n{url}\n\nLink expires in 5 minutes.",
		PINSet:             "✓ PIN set. Payments of {threshold} {token} or more will ask for it.",
		PINFormat:          "PIN must be 4-6 digits.",
		PINWrong:           "Wrong PIN. {attempts} attempt(s) left.",
		PINLocked:          "Account locked. Try again in {minutes} minutes.",
		PINTooMany:         "Too many failed attempts. Account locked for {minutes} minutes. Start again from chat.",
		LinkExpired:        "Link expired or invalid. Start again from chat.",
		Unsupported:        "Sorry, I can't do that yet.",
	},
	"es": {
		Welcome: "¡Bienvenido a HushPay! 🤫\n\nTu billetera está lista. Dos formas de enviar:\n" +
			"• \"enviar 1 {token} a +34...\" (monto oculto)\n" +
			"• \"enviar anon 1 {token} a [billetera]\" (remitente oculto)\n\n" +
			"Comandos: saldo, depositar, retirar, recibos, ayuda",
		Cancelled:          "Cancelado. No se envió nada.",
		NothingToCancel:    "No hay nada que cancelar.",
		NothingToRetry:     "No hay nada que reintentar.",
		RetryPrompt:        "¿Reintentar {summary}?\nResponde SÍ para confirmar o NO para cancelar.",
		ConfirmPrompt:      "¿{summary}?\nResponde SÍ para confirmar o NO para cancelar.",
		AmountTooSmall:     "Monto demasiado pequeño. El mínimo es {min} {token}.",
		NeedDestination:    "¿Qué dirección de {chain} debe recibirlo? Envía la dirección e inténtalo de nuevo.",
		StepUpLink:         "🔐 Confirma con tu PIN:\n{url}\n\nEl enlace caduca en 5 minutos.",
		RateLimited:        "Demasiadas solicitudes. Espera un minuto e inténtalo de nuevo.",
		GenericError:       "Algo salió mal. Inténtalo de nuevo.",
		Sent:               "✓ Enviado {amount} {token} a {recipient}\nMonto: [PRIVADO]\nTx: {tx}",
		Received:           "💰 ¡Recibiste {amount} {token}!\nDe: {from}\n\nEscribe \"saldo\" para verlo.",
		Blocked:            "Transferencia bloqueada: {reason}",
		InsufficientFunds:  "Saldo insuficiente. Tienes {balance} {token} pero necesitas {needed} {token} con comisiones.\nTe faltan {shortfall} {token}. Recarga al menos {topup} {token} en {wallet}.",
		TransferFailed:     "La transferencia falló: {reason}\nResponde RETRY para reintentar.",
		AnonSent:           "✓ Enviado {amount} {token} de forma anónima\nRemitente: [IRRASTREABLE]\nTx: {tx}",
		Deposited:          "✓ Depositado {amount} {token} en el fondo privado\nSaldo privado: {balance} {token}",
		Withdrew:           "✓ Retirado {amount} {token} a la billetera pública\nSaldo privado: {balance} {token}",
		SplitHeader:        "Dividir {total} {token} ({share} cada uno):",
		SplitLineOK:        "✓ {recipient}: enviado",
		SplitLineFailed:    "✗ {recipient}: {reason}",
		BridgeSent:         "✓ Enviado {amount} {token} a {chain}\nA: {address}\nTx: {tx}",
		UnknownChain:       "{chain} no está soportada. Prueba con: {chains}.",
		InvalidAddress:     "Esa dirección de billetera no parece válida.",
		UnknownRecipient:   "No encontré a {recipient}. Usa un número con código de país o un contacto guardado.",
		RecurringCreated:   "✓ Pago recurrente: {amount} {token} a {recipient} {frequency}.\nEl primer pago se enviará ahora.",
		RecurringSent:      "✓ Pago recurrente enviado\n\n{amount} {token} → {recipient}\n[MONTO PRIVADO]",
		RecurringReceived:  "💸 Recibiste {amount} {token}\n\n[MONTO PRIVADO]",
		RecurringEmpty:     "No tienes pagos recurrentes.",
		RecurringHeader:    "Pagos recurrentes:",
		RecurringCancelled: "✓ Pago recurrente a {recipient} cancelado.",
		RecurringNotFound:  "No hay un pago recurrente activo a {recipient}.",
		Balance:            "Tu saldo:\n\n📊 Público:\n• {public} {token}\n\n🔒 Fondo privado:\n• {private} {token}\n\nBilletera: {wallet}...",
		Wallet:             "Tu dirección de billetera:\n{wallet}",
		ReceiptsEmpty:      "Aún no hay pagos. ¡Envía el primero!",
		ReceiptsHeader:     "Pagos recientes:",
		ContactsEmpty:      "Aún no tienes contactos. Prueba \"guardar mamá +34...\".",
		ContactsHeader:     "Tus contactos:",
		ContactSaved:       "✓ Guardado {name} ({phone}).",
		ContactDeleted:     "✓ Eliminado {name}.",
		ContactNotFound:    "No hay un contacto llamado {name}.",
		LanguageSet:        "✓ Idioma cambiado a español.",
		LanguageUnknown:    "Idiomas disponibles: {languages}.",
		PriceAlertSet:      "✓ Te avisaré cuando {token} esté {condition} ${price}.",
		PriceAlertHit:      "📈 {token} está en ${current} ({condition} ${price}).",
		RequestSent:        "✓ Solicitud de {amount} {token} enviada a {recipient}.",
		RequestReceived:    "💸 {from} te solicita {amount} {token}.\nResponde \"enviar {amount} {token} a {from}\" para pagar.",
		PINLink:            "🔐 Configura tu PIN aquí:\n{url}\n\nEl enlace caduca en 5 minutos.",
		PINSet:             "✓ PIN configurado. Los pagos de {threshold} {token} o más lo pedirán.",
		PINFormat:          "El PIN debe tener de 4 a 6 dígitos.",
		PINWrong:           "PIN incorrecto. Te quedan {attempts} intento(s).",
		PINLocked:          "Cuenta bloqueada. Inténtalo en {minutes} minutos.",
		PINTooMany:         "Demasiados intentos fallidos. Cuenta bloqueada por {minutes} minutos. Empieza de nuevo desde el chat.",
		LinkExpired:        "Enlace caducado o inválido. Empieza de nuevo desde el chat.",
		Unsupported:        "Lo siento, todavía no puedo hacer eso.",
	},
	"fr": {
		Welcome: "Bienvenue sur HushPay ! 🤫\n\nVotre portefeuille est prêt. Deux façons d'envoyer :\n" +
			"• \"envoyer 1 {token} à +33...\" (montant masqué)\n" +
			"• \"envoyer anon 1 {token} à [portefeuille]\" (expéditeur masqué)\n\n" +
			"Commandes : solde, dépôt, retrait, reçus, aide",
		Cancelled:         "Annulé. Rien n'a été envoyé.",
		NothingToCancel:   "Rien à annuler.",
		NothingToRetry:    "Rien à réessayer.",
		RetryPrompt:       "Réessayer {summary} ?\nRépondez OUI pour confirmer ou NON pour annuler.",
		ConfirmPrompt:     "{summary} ?\nRépondez OUI pour confirmer ou NON pour annuler.",
		AmountTooSmall:    "Montant trop faible. Le minimum est {min} {token}.",
		StepUpLink:        "🔐 Confirmez avec votre PIN :\n{url}\n\nLe lien expire dans 5 minutes.",
		RateLimited:       "Trop de demandes. Patientez une minute et réessayez.",
		GenericError:      "Une erreur est survenue. Réessayez.",
		Sent:              "✓ Envoyé {amount} {token} à {recipient}\nMontant : [PRIVÉ]\nTx : {tx}",
		Received:          "💰 Vous avez reçu {amount} {token} !\nDe : {from}\n\nÉcrivez \"solde\" pour vérifier.",
		Blocked:           "Transfert bloqué : {reason}",
		TransferFailed:    "Le transfert a échoué : {reason}\nRépondez RETRY pour réessayer.",
		LanguageSet:       "✓ Langue changée en français.",
		PINWrong:          "PIN incorrect. Il vous reste {attempts} essai(s).",
		PINLocked:         "Compte verrouillé. Réessayez dans {minutes} minutes.",
		LinkExpired:       "Lien expiré ou invalide. Recommencez depuis le chat.",
		InsufficientFunds: "Solde insuffisant. Vous avez {balance} {token} mais il faut {needed} {token} frais compris.\nIl manque {shortfall} {token}. Rechargez au moins {topup} {token} sur {wallet}.",
	},
	"pt": {
		Welcome: "Bem-vindo ao HushPay! 🤫\n\nSua carteira está pronta. Duas formas de enviar:\n" +
			"• \"enviar 1 {token} para +55...\" (valor oculto)\n" +
			"• \"enviar anon 1 {token} para [carteira]\" (remetente oculto)\n\n" +
			"Comandos: saldo, depositar, sacar, recibos, ajuda",
		Cancelled:         "Cancelado. Nada foi enviado.",
		NothingToCancel:   "Nada para cancelar.",
		NothingToRetry:    "Nada para tentar novamente.",
		RetryPrompt:       "Tentar novamente {summary}?\nResponda SIM para confirmar ou NÃO para cancelar.",
		ConfirmPrompt:     "{summary}?\nResponda SIM para confirmar ou NÃO para cancelar.",
		AmountTooSmall:    "Valor muito pequeno. O mínimo é {min} {token}.",
		StepUpLink:        "🔐 Confirme com seu PIN:\n{url}\n\nO link expira em 5 minutos.",
		RateLimited:       "Muitas solicitações. Aguarde um minuto e tente novamente.",
		GenericError:      "Algo deu errado. Tente novamente.",
		Sent:              "✓ Enviado {amount} {token} para {recipient}\nValor: [PRIVADO]\nTx: {tx}",
		Received:          "💰 Você recebeu {amount} {token}!\nDe: {from}\n\nEnvie \"saldo\" para conferir.",
		Blocked:           "Transferência bloqueada: {reason}",
		TransferFailed:    "A transferência falhou: {reason}\nResponda RETRY para tentar novamente.",
		LanguageSet:       "✓ Idioma alterado para português.",
		PINWrong:          "PIN incorreto. Restam {attempts} tentativa(s).",
		PINLocked:         "Conta bloqueada. Tente novamente em {minutes} minutos.",
		LinkExpired:       "Link expirado ou inválido. Comece de novo pelo chat.",
		InsufficientFunds: "Saldo insuficiente. Você tem {balance} {token} mas precisa de {needed} {token} com taxas.\nFaltam {shortfall} {token}. Recarregue pelo menos {topup} {token} em {wallet}.",
	},
}
