package s3io_test

import (
	"bytes"
	crand "crypto/rand"
	"fmt"
	mrand "math/rand"
	"time"

	"github.com/stretchr/testify/require"
	"testing"
)

func TestUpDown(t *testing.T) {
	for _, compress := range []bool{false, true} {
		client := testClient(t, compress)

		// generate a prefix to test with
		now := time.Now()
		prefix := fmt.Sprintf("test-%s-%t/", now.Format("20060102150405"), compress)

		// create some data to upload
		num_buffers := 3
		buffers := make([][]byte, num_buffers)
		for i := 0; i < num_buffers; i++ {
			size := 1024*1024 + mrand.Int31n(5*1024*1024)
			buffer := make([]byte, size)
			_, err := crand.Read(buffer)
			require.NoError(t, err)

			buffers[i] = buffer
		}

		// upload the buffers
		for idx, buffer := range buffers {
			key := fmt.Sprintf("%s%09d", prefix, idx)

			size, err := client.Upload(key, "application/octet-stream", bytes.NewReader(buffer))
			require.NoError(t, err)
			require.Equal(t, len(buffer), int(size))

			info, err := client.Head(key)
			require.NoError(t, err)
			require.Equal(t, int64(len(buffer)), info.Size)
			require.Equal(t, "application/octet-stream", info.ContentType)
		}

		// download the buffers
		for idx, buffer := range buffers {
			key := fmt.Sprintf("%s%09d", prefix, idx)
			dbuffer := bytes.NewBuffer(nil)

			size, err := client.Download(key, dbuffer)

			require.NoError(t, err)
			require.Equal(t, len(buffer), int(size))
			require.Equal(t, buffer, dbuffer.Bytes(), fmt.Sprintf("iteration %d", idx))
		}

		// the listing sees all of them
		objects, prefixes, err := client.List(prefix)
		require.NoError(t, err)
		require.Len(t, objects, num_buffers)
		require.Empty(t, prefixes)

		// the last file that was uploaded
		expected_key := fmt.Sprintf("%s%09d", prefix, len(buffers)-1)

		key, _, err := client.LatestMatching(prefix)
		require.NoError(t, err)
		require.Equal(t, expected_key, key)

		// clean up
		for idx := range buffers {
			require.NoError(t, client.Delete(fmt.Sprintf("%s%09d", prefix, idx)))
		}
	}
}
