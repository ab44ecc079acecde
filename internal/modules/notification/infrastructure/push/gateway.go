package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/weddly/wedding-planner/internal/shared/infrastructure/logging"
	"google.golang.org/api/option"
)

// Gateway submits one provider-native message.
type Gateway interface {
	Send(ctx context.Context, msg *messaging.Message) (string, error)
}

type FCMConfig struct {
	ProjectID       string
	CredentialsFile string
}

// NewFCMGateway builds a Firebase Cloud Messaging client. Without a
// credentials file the application default credentials are used.
func NewFCMGateway(ctx context.Context, cfg FCMConfig) (*messaging.Client, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase messaging: %w", err)
	}
	return client, nil
}

var ErrPushDisabled = errors.New("push delivery disabled")

// NoopGateway stands in when push is switched off.
type NoopGateway struct {
	Logger *slog.Logger
}

func (g NoopGateway) Send(_ context.Context, msg *messaging.Message) (string, error) {
	logging.OrDefault(g.Logger).Debug("push disabled, message not sent", "data", msg.Data)
	return "", ErrPushDisabled
}
