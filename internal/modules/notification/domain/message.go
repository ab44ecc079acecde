package domain

import (
	"regexp"
	"time"

	"github.com/jmoiron/sqlx/types"
)

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Format substitutes {name} tokens in template with values from args.
// Tokens with no matching argument are left as-is.
func Format(template string, args map[string]string) string {
	if len(args) == 0 {
		return template
	}
	return placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		if v, ok := args[token[1:len(token)-1]]; ok {
			return v
		}
		return token
	})
}

// Render builds a title/body pair for a catalog type.
func Render(t NotificationType, args map[string]string) (title, body string, err error) {
	spec, ok := t.Spec()
	if !ok {
		return "", "", ErrUnknownNotificationType
	}
	return Format(spec.TitleTemplate, args), Format(spec.BodyTemplate, args), nil
}

// NewNotification renders and assembles an unsaved notification for recipientID.
func NewNotification(recipientID int64, t NotificationType, args map[string]string, targetType TargetDomainType, targetID int64) (*Notification, error) {
	title, body, err := Render(t, args)
	if err != nil {
		return nil, err
	}
	raw, err := encodeArguments(args)
	if err != nil {
		return nil, err
	}
	return &Notification{
		RecipientID:      recipientID,
		Type:             t,
		Title:            title,
		Body:             body,
		Arguments:        raw,
		TargetDomainType: targetType,
		TargetDomainID:   targetID,
		CreatedAt:        time.Now(),
	}, nil
}

// ForRecipient copies a rendered notification for another recipient.
// The copy has no id and its own unread state.
func (n *Notification) ForRecipient(recipientID int64) *Notification {
	c := *n
	c.ID = 0
	c.RecipientID = recipientID
	c.IsRead = false
	c.Arguments = append(types.JSONText(nil), n.Arguments...)
	return &c
}
