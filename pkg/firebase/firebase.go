// Package firebase initializes the Firebase Admin SDK app shared by the
// Firestore document store and the Firebase Auth token verifier.
package firebase

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	fb "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

var (
	ErrFailedToInitApp       = errors.New("failed to initialize firebase app")
	ErrFailedToInitFirestore = errors.New("failed to initialize firestore client")
	ErrFailedToInitAuth      = errors.New("failed to initialize firebase auth client")
)

type Config struct {
	ProjectID       string `env:"FIREBASE_PROJECT_ID"`
	CredentialsFile string `env:"FIREBASE_CREDENTIALS_FILE"` // Service account JSON; empty uses application default credentials
	UsersCollection string `env:"FIREBASE_USERS_COLLECTION" envDefault:"users"`
}

// App wraps the Admin SDK app with lazily created clients.
type App struct {
	app *fb.App
	cfg Config
}

// New initializes the Admin SDK app.
func New(ctx context.Context, cfg Config) (*App, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	var fbCfg *fb.Config
	if cfg.ProjectID != "" {
		fbCfg = &fb.Config{ProjectID: cfg.ProjectID}
	}

	app, err := fb.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, errors.Join(ErrFailedToInitApp, err)
	}
	return &App{app: app, cfg: cfg}, nil
}

// Firestore returns a new Firestore client. The caller closes it.
func (a *App) Firestore(ctx context.Context) (*firestore.Client, error) {
	client, err := a.app.Firestore(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToInitFirestore, err)
	}
	return client, nil
}

// Auth returns the Firebase Auth client used to verify ID tokens.
func (a *App) Auth(ctx context.Context) (*auth.Client, error) {
	client, err := a.app.Auth(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToInitAuth, err)
	}
	return client, nil
}

// UsersCollection is the Firestore collection holding per-user records.
func (a *App) UsersCollection() string {
	if a.cfg.UsersCollection == "" {
		return "users"
	}
	return a.cfg.UsersCollection
}

// Healthcheck reads a sentinel document to prove Firestore is reachable.
// A missing document still counts as healthy.
func Healthcheck(client *firestore.Client, collection string) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := client.Collection(collection).Doc("_healthcheck").Get(ctx)
		if err != nil && !IsNotFound(err) {
			return err
		}
		return nil
	}
}
