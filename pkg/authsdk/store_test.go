package authsdk_test

import (
	"testing"

	"github.com/aussiebroadwan/sessionkit/internal/credstore/credstoretest"
	"github.com/aussiebroadwan/sessionkit/pkg/authsdk"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	credstoretest.Run(t, func(t *testing.T) authsdk.CredentialStore {
		return authsdk.NewMemoryStore()
	})
}
