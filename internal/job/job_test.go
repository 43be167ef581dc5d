package job_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/zap/zaptest"

	"github.com/studio1767/fileman/internal/fsnode"
	"github.com/studio1767/fileman/internal/fsnode/memfs"
	"github.com/studio1767/fileman/internal/job"
	"github.com/studio1767/fileman/internal/s3io"
	"github.com/studio1767/fileman/internal/worker"
)

const sample = `
name: tidy
steps:
  - mode: copy
    sources: [docs/a.txt, docs/sub]
    destination: backup
  - mode: move
    sources: [inbox/new.txt]
    destination: docs
  - mode: delete
    sources: [inbox]
`

func TestParse(t *testing.T) {
	j, err := job.Parse([]byte(sample))
	require.NoError(t, err)
	require.Equal(t, "tidy", j.Name)
	require.Len(t, j.Steps, 3)
	require.Equal(t, job.Step{
		Mode:        job.ModeCopy,
		Sources:     []string{"docs/a.txt", "docs/sub"},
		Destination: "backup",
	}, j.Steps[0])
	require.Equal(t, job.ModeDelete, j.Steps[2].Mode)
}

func TestParseRejectsBadJobs(t *testing.T) {
	bad := []string{
		"name: x\n",
		"steps:\n  - mode: shred\n    sources: [a]\n",
		"steps:\n  - mode: copy\n    sources: [a]\n",
		"steps:\n  - mode: delete\n",
	}
	for _, doc := range bad {
		_, err := job.Parse([]byte(doc))
		var invalid *job.ErrInvalidJob
		require.ErrorAs(t, err, &invalid, doc)
	}

	_, err := job.Parse([]byte("steps: [unclosed"))
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tidy.yml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0600))

	j, err := job.Load(path)
	require.NoError(t, err)
	require.Len(t, j.Steps, 3)
}

func TestNextKey(t *testing.T) {
	key, err := job.NextKey("tidy", "")
	require.NoError(t, err)
	require.Equal(t, "jobs/tidy/tidy-001.yml", key)

	key, err = job.NextKey("tidy", "jobs/tidy/tidy-041.yml")
	require.NoError(t, err)
	require.Equal(t, "jobs/tidy/tidy-042.yml", key)

	_, err = job.NextKey("tidy", "jobs/tidy/other.yml")
	require.Error(t, err)
}

func TestRun(t *testing.T) {
	fs := memfs.New("root")
	fs.AddFile("docs/a.txt", []byte("a"), "")
	fs.AddFile("docs/sub/b.txt", []byte("b"), "")
	fs.AddFile("inbox/new.txt", []byte("new"), "")
	fs.AddDir("backup")

	j, err := job.Parse([]byte(sample))
	require.NoError(t, err)

	runner := worker.NewRunner(worker.Config{Logger: zaptest.NewLogger(t)})
	outcomes, err := job.Run(runner, fs.Root(), j)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		require.True(t, o.Succeeded())
	}
	require.Equal(t, worker.KindCopy, outcomes[0].Kind)
	require.Equal(t, worker.KindMove, outcomes[1].Kind)
	require.Equal(t, worker.KindDelete, outcomes[2].Kind)

	require.True(t, fs.Exists("backup/a.txt"))
	require.True(t, fs.Exists("backup/sub/b.txt"))
	require.True(t, fs.Exists("docs/new.txt"))
	require.False(t, fs.Exists("inbox"))
}

func TestRunStopsOnUnresolvedPath(t *testing.T) {
	fs := memfs.New("root")
	fs.AddDir("backup")

	j, err := job.Parse([]byte(sample))
	require.NoError(t, err)

	runner := worker.NewRunner(worker.Config{Logger: zaptest.NewLogger(t)})
	outcomes, err := job.Run(runner, fs.Root(), j)
	require.Empty(t, outcomes)

	var notfound *fsnode.ErrNotFound
	require.ErrorAs(t, err, &notfound)
}

func TestUploadDownload(t *testing.T) {
	profile := os.Getenv("FILEMAN_TEST_PROFILE")
	bucket := os.Getenv("FILEMAN_TEST_BUCKET")
	if profile == "" || bucket == "" {
		t.Skip("FILEMAN_TEST_PROFILE and FILEMAN_TEST_BUCKET not set")
	}

	client, err := s3io.NewClient(s3io.Options{
		Profile:        profile,
		Bucket:         bucket,
		IdentitiesFile: "default",
		SecretsFile:    "default",
	})
	require.NoError(t, err)

	key, err := job.Upload(client, strings.NewReader(sample), "fileman-test")
	if err != nil {
		var nopass *s3io.ErrPassphraseNotFound
		if errors.As(err, &nopass) {
			t.Skip("no passphrases configured")
		}
	}
	require.NoError(t, err)
	t.Cleanup(func() { client.Delete(key) })

	j, jobkey, err := job.Download(client, "fileman-test")
	require.NoError(t, err)
	require.Equal(t, key, jobkey)
	require.Equal(t, "fileman-test", j.Name)
	require.Len(t, j.Steps, 3)
}
