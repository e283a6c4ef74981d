package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Role identifies who authored a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TimeLayout renders timestamps in UTC with millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// ErrMissingCredential is returned by model gateways that have no API key.
var ErrMissingCredential = errors.New("missing model credential")

// ChatMessage is a single stored conversation turn. Timestamp is RFC 3339.
type ChatMessage struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// Validate reports whether a decoded message is usable as prompt history.
func (m ChatMessage) Validate() error {
	switch m.Role {
	case RoleUser, RoleAssistant:
	default:
		return fmt.Errorf("domain: unknown message role %q", m.Role)
	}
	if strings.TrimSpace(m.Content) == "" {
		return errors.New("domain: message content is empty")
	}
	return nil
}

// Prompt is the provider-agnostic input to a single model call.
// Acknowledgement, when set, is replayed as the model's reply to System.
type Prompt struct {
	System          string
	Acknowledgement string
	History         []ChatMessage
	Message         string
}
