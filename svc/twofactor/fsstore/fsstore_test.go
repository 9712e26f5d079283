package fsstore_test

import (
	"context"
	"os"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rafiki-assist/rafiki/svc/twofactor/fsstore"
	"github.com/rafiki-assist/rafiki/svc/twofactor/storetest"
)

// Runs against the Firestore emulator, e.g.
// FIRESTORE_EMULATOR_HOST=localhost:8080 go test ./svc/twofactor/fsstore
func TestStore(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST is not set")
	}

	client, err := firestore.NewClient(context.Background(), "rafiki-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	storetest.Run(t, fsstore.New(client, "users_"+uuid.NewString()[:8]))
}
