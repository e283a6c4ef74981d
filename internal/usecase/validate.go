package usecase

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minChatMessage     = 3
	maxChatMessage     = 1000
	minDescription     = 30
	maxDescription     = 5000
	maxSubject         = 200
	partialClientIPLen = 15
	maxConversationID  = 128
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// conversationKeyID returns the id to store the exchange under. Blank or
// oversized ids start a new conversation.
func conversationKeyID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || utf8.RuneCountInString(id) > maxConversationID {
		return newUUID()
	}
	return id
}

// validateChatMessage returns the trimmed message or the user-facing reason
// it was rejected.
func validateChatMessage(message string) (string, *Error) {
	if message == "" {
		return "", newUserError(ErrorInvalidInput, "message_required", "Mensagem é obrigatória")
	}
	trimmed := strings.TrimSpace(message)
	n := utf8.RuneCountInString(trimmed)
	if n < minChatMessage {
		return "", newUserError(ErrorInvalidInput, "message_too_short", "Mensagem muito curta (mín. 3 caracteres)")
	}
	if n > maxChatMessage {
		return "", newUserError(ErrorInvalidInput, "message_too_long", "Mensagem muito longa (máx. 1000 caracteres)")
	}
	return trimmed, nil
}

func validateComplaint(in ComplaintInput) *Error {
	if in.Description == "" {
		return newUserError(ErrorInvalidInput, "description_required", "Descrição é obrigatória")
	}
	n := utf8.RuneCountInString(strings.TrimSpace(in.Description))
	if n < minDescription {
		return newUserError(ErrorInvalidInput, "description_too_short", "Descreva os fatos com pelo menos 30 caracteres")
	}
	if n > maxDescription {
		return newUserError(ErrorInvalidInput, "description_too_long", "Descrição muito longa (máx. 5000 caracteres)")
	}
	if in.Email != "" && !emailPattern.MatchString(in.Email) {
		return newUserError(ErrorInvalidInput, "email_invalid", "E-mail inválido")
	}
	return nil
}

// clip returns at most n runes of s.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// optionalText trims s and returns nil when nothing is left.
func optionalText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
