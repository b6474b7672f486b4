package notifications

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/pkg/errors"
	"github.com/taskistation/todo-backend/pkg/logger"
	"github.com/taskistation/todo-backend/pkg/users"
	"google.golang.org/api/option"
)

// MulticastSender is the part of the messaging client the FirebaseNotifier uses
type MulticastSender interface {
	SendMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FirebaseNotifier sends notifications over Firebase Cloud Messaging
type FirebaseNotifier struct {
	Logger logger.Interface
	Client MulticastSender
}

// NewFirebaseNotifier connects to Firebase Cloud Messaging
func NewFirebaseNotifier(ctx context.Context, apiKey string, projectID string, logger logger.Interface) (*FirebaseNotifier, error) {
	opt := option.WithAPIKey(apiKey)
	config := &firebase.Config{ProjectID: projectID}
	app, err := firebase.NewApp(ctx, config, opt)
	if err != nil {
		return nil, errors.Wrap(err, "could not initialize firebase")
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "could not initialize firebase messaging")
	}

	return &FirebaseNotifier{
		Logger: logger,
		Client: client,
	}, nil
}

// SendNotification sends the notification to all registered devices of the user
func (n *FirebaseNotifier) SendNotification(ctx context.Context, user *users.User, notification Notification) (Result, error) {
	tokens := user.DeviceTokenStrings()
	if len(tokens) == 0 {
		n.Logger.Debug(fmt.Sprintf("user %s has no devices to notify", user.ID.Hex()))
		return Result{}, nil
	}

	message := &messaging.MulticastMessage{
		Notification: &messaging.Notification{
			Title: notification.Title,
			Body:  notification.Message,
		},
		Data:   notification.Data,
		Tokens: tokens,
	}

	response, err := n.Client.SendMulticast(ctx, message)
	if err != nil {
		return Result{}, errors.Wrap(err, "could not send messaging request")
	}

	if response.FailureCount > 0 {
		n.Logger.Info(fmt.Sprintf("%d of %d notifications to user %s failed",
			response.FailureCount, len(tokens), user.ID.Hex()))
	}

	return Result{Delivered: response.SuccessCount, Failed: response.FailureCount}, nil
}
