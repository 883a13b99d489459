// Package fcm wraps the Firebase Admin SDK: push delivery over Cloud
// Messaging and ID-token verification, both backed by one service account.
package fcm

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type Client struct {
	messaging *messaging.Client
	auth      *auth.Client
}

// NewClient initializes the Firebase app from a service-account file.
// Call once at process start and reuse across requests.
func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	msg, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing messaging client: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing auth client: %w", err)
	}

	return &Client{messaging: msg, auth: authClient}, nil
}

// Send delivers one push notification to the device identified by token.
func (c *Client) Send(ctx context.Context, token, title, body string) error {
	_, err := c.messaging.Send(ctx, &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
	})
	if err != nil {
		return fmt.Errorf("error sending push notification: %w", err)
	}
	return nil
}

// VerifyIDToken validates a Firebase ID token and returns the user ID it
// was minted for.
func (c *Client) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	tok, err := c.auth.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", fmt.Errorf("error verifying token: %w", err)
	}
	return tok.UID, nil
}
