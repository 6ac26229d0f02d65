// Package i18n holds the static translated strings used for onboarding
// prompts and canned service replies.
package i18n

import "strings"

const (
	KeyWelcome       = "welcome"
	KeyTermsRequired = "terms_required"
	KeyTermsAccepted = "terms_accepted"
	KeyRequestEmail  = "request_email"
	KeyEmailSaved    = "email_saved"
	KeyUnsupported   = "unsupported_type"
)

// DefaultLanguage is used whenever a user has no stored preference or the
// preference has no translation table.
const DefaultLanguage = "en"

var messages = map[string]map[string]string{
	"en": {
		KeyWelcome:       "Welcome! Before continuing, we need your consent for GDPR. Do you agree? (Type '1' to accept)",
		KeyTermsRequired: "You need to accept the GDPR terms to continue. Type '1' to accept.",
		KeyTermsAccepted: "Thank you for accepting the terms.",
		KeyRequestEmail:  "Please provide your email to complete your registration.",
		KeyEmailSaved:    "Your email has been saved successfully. How can I assist you today?",
		KeyUnsupported:   "I can only process text and audio messages at the moment.",
	},
	"pt": {
		KeyWelcome:       "Bem-vindo! Antes de continuar, precisamos do seu consentimento para a LGPD. Você concorda? (Digite '1' para aceitar)",
		KeyTermsRequired: "Você precisa aceitar os termos para continuar. Digite '1' para aceitar.",
		KeyTermsAccepted: "Obrigado por aceitar os termos.",
		KeyRequestEmail:  "Por favor, informe seu e-mail para concluir seu cadastro.",
		KeyEmailSaved:    "Seu e-mail foi salvo com sucesso. Como posso ajudá-lo hoje?",
		KeyUnsupported:   "No momento só consigo processar mensagens de texto e áudio.",
	},
	"es": {
		KeyWelcome:       "¡Bienvenido! Antes de continuar, necesitamos su consentimiento para el RGPD. ¿Está de acuerdo? (Escriba '1' para aceptar)",
		KeyTermsRequired: "Debe aceptar los términos para continuar. Escriba '1' para aceptar.",
		KeyTermsAccepted: "Gracias por aceptar los términos.",
		KeyRequestEmail:  "Por favor, proporcione su correo electrónico para completar su registro.",
		KeyEmailSaved:    "Su correo electrónico se ha guardado correctamente. ¿Cómo puedo ayudarle hoy?",
		KeyUnsupported:   "Por el momento solo puedo procesar mensajes de texto y audio.",
	},
}

// Message returns the translated string for key in the given language,
// falling back to English and then to a fixed placeholder so callers never
// deal with a missing entry.
func Message(key, language string) string {
	lang := strings.ToLower(strings.TrimSpace(language))
	if table, ok := messages[lang]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	if msg, ok := messages[DefaultLanguage][key]; ok {
		return msg
	}
	return "Message not found"
}

// Supported reports whether a translation table exists for the language.
func Supported(language string) bool {
	_, ok := messages[strings.ToLower(strings.TrimSpace(language))]
	return ok
}
