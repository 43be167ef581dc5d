package s3io_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/studio1767/fileman/internal/s3io"
)

// testClient connects to the bucket named by the environment, or skips
// the test when none is configured.
func testClient(t *testing.T, compress bool) s3io.Client {
	profile := os.Getenv("FILEMAN_TEST_PROFILE")
	bucket := os.Getenv("FILEMAN_TEST_BUCKET")
	if profile == "" || bucket == "" {
		t.Skip("FILEMAN_TEST_PROFILE and FILEMAN_TEST_BUCKET not set")
	}

	client, err := s3io.NewClient(s3io.Options{
		Profile:        profile,
		Bucket:         bucket,
		Compress:       compress,
		IdentitiesFile: "default",
		SecretsFile:    "default",
	})
	require.NoError(t, err)

	return client
}
