package assistant

import "strings"

// Canned replies short-circuit the backend entirely for trivial queries.
// The exchange is still recorded as an interaction.

var cannedKeywords = map[string][]string{
	"greeting": {"hello", "hi", "hey", "olá", "oi", "hola"},
	"thanks":   {"thank", "thanks", "obrigado", "obrigada", "gracias"},
	"help":     {"help", "ajuda", "ayuda"},
}

// classification order is fixed so overlapping keyword hits stay stable.
var cannedOrder = []string{"greeting", "thanks", "help"}

var cannedResponses = map[string]map[string]string{
	"greeting": {
		"en": "Hello! How can I help you today?",
		"pt": "Olá! Como posso ajudá-lo hoje?",
		"es": "¡Hola! ¿Cómo puedo ayudarte hoy?",
	},
	"thanks": {
		"en": "You're welcome! Is there anything else I can help with?",
		"pt": "De nada! Há mais alguma coisa em que eu possa ajudar?",
		"es": "¡De nada! ¿Hay algo más en lo que pueda ayudar?",
	},
	"help": {
		"en": "I can answer questions, provide information, or help with specific tasks. What do you need assistance with?",
		"pt": "Posso responder perguntas, fornecer informações ou ajudar com tarefas específicas. Com o que você precisa de ajuda?",
		"es": "Puedo responder preguntas, proporcionar información o ayudar con tareas específicas. ¿Con qué necesitas ayuda?",
	},
}

// classifyQuestion returns the canned category for the question, or ""
// when it should go to the backend.
func classifyQuestion(question string) string {
	lowered := strings.ToLower(question)
	for _, category := range cannedOrder {
		for _, keyword := range cannedKeywords[category] {
			if strings.Contains(lowered, keyword) {
				return category
			}
		}
	}
	return ""
}

// cannedResponse returns the per-language canned reply for a category,
// falling back to English.
func cannedResponse(category, language string) string {
	table, ok := cannedResponses[category]
	if !ok {
		return ""
	}
	if resp, ok := table[strings.ToLower(strings.TrimSpace(language))]; ok {
		return resp
	}
	return table["en"]
}
