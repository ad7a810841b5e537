// README: Firebase ID-token verification and the pricing claims carried by each token.
package infra

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Custom claims set on operator accounts.
const (
	RoleClaim         = "role"
	OrganizationClaim = "org_id"
)

type FirebaseToken struct {
	UID    string
	Claims map[string]interface{}
}

// StringClaim returns a string custom claim, or "" when absent or not a string.
func (t *FirebaseToken) StringClaim(name string) string {
	if t == nil {
		return ""
	}
	v, _ := t.Claims[name].(string)
	return strings.TrimSpace(v)
}

func (t *FirebaseToken) Role() string { return strings.ToLower(t.StringClaim(RoleClaim)) }

func (t *FirebaseToken) Organization() string { return t.StringClaim(OrganizationClaim) }

type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*FirebaseToken, error)
}

type FirebaseOptions struct {
	ProjectID       string
	CredentialsFile string
	// CheckRevoked makes every verification a round trip to Firebase.
	CheckRevoked bool
}

type firebaseVerifier struct {
	client       *auth.Client
	checkRevoked bool
}

// NewFirebaseVerifier falls back to application-default credentials when no
// credentials file is given.
func NewFirebaseVerifier(ctx context.Context, opts FirebaseOptions) (TokenVerifier, error) {
	if opts.ProjectID == "" {
		return nil, fmt.Errorf("firebase: project id is required")
	}
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: opts.ProjectID}, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}
	return &firebaseVerifier{client: client, checkRevoked: opts.CheckRevoked}, nil
}

func (v *firebaseVerifier) VerifyIDToken(ctx context.Context, idToken string) (*FirebaseToken, error) {
	var (
		token *auth.Token
		err   error
	)
	if v.checkRevoked {
		token, err = v.client.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	} else {
		token, err = v.client.VerifyIDToken(ctx, idToken)
	}
	if err != nil {
		return nil, err
	}
	return &FirebaseToken{UID: token.UID, Claims: token.Claims}, nil
}
