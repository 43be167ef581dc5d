package job

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"

	"gitlab.com/tozd/go/errors"
	yaml "gopkg.in/yaml.v3"

	"github.com/studio1767/fileman/internal/s3io"
)

type ErrNoSuchJob struct {
	msg string
}

func (e *ErrNoSuchJob) Error() string {
	return e.msg
}

type ErrInvalidJob struct {
	msg string
}

func (e *ErrInvalidJob) Error() string {
	return e.msg
}

type Mode string

const (
	ModeCopy   Mode = "copy"
	ModeMove   Mode = "move"
	ModeDelete Mode = "delete"
)

// Step is one bulk operation. Paths are relative to the store root.
type Step struct {
	Mode        Mode
	Sources     []string
	Destination string
}

// Job is a list of steps run one after the other.
type Job struct {
	Name  string
	Steps []Step
}

// Parse decodes and checks a job file.
func Parse(data []byte) (*Job, error) {
	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, errors.Errorf("parsing job: %w", err)
	}

	if len(job.Steps) == 0 {
		return nil, &ErrInvalidJob{msg: "job has no steps"}
	}
	for i, step := range job.Steps {
		switch step.Mode {
		case ModeCopy, ModeMove:
			if step.Destination == "" {
				return nil, &ErrInvalidJob{msg: fmt.Sprintf("step %d: %s needs a destination", i+1, step.Mode)}
			}
		case ModeDelete:
		default:
			return nil, &ErrInvalidJob{msg: fmt.Sprintf("step %d: unknown mode %q", i+1, step.Mode)}
		}
		if len(step.Sources) == 0 {
			return nil, &ErrInvalidJob{msg: fmt.Sprintf("step %d: no sources", i+1)}
		}
	}

	return &job, nil
}

// Load reads a job file from local disk.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Download(client s3io.Client, jobname string) (*Job, string, error) {
	// the prefix path
	prefix := fmt.Sprintf("jobs/%s/", jobname)

	// get the key for the latest job configuration
	jobkey, _, err := client.LatestMatching(prefix)
	if err != nil {
		var nomatch *s3io.ErrNoMatch
		if errors.As(err, &nomatch) {
			return nil, "", &ErrNoSuchJob{
				msg: fmt.Sprintf("No such job: %s", jobname),
			}
		}
		return nil, "", err
	}

	// download the job into a buffer
	data := bytes.NewBuffer(nil)

	_, err = client.Download(jobkey, data)
	if err != nil {
		return nil, jobkey, err
	}

	job, err := Parse(data.Bytes())
	if err != nil {
		return nil, jobkey, err
	}

	job.Name = jobname

	return job, jobkey, nil
}

// NextKey returns the key the next revision of a job is stored under,
// given the key of the latest one, or "" for the first upload.
func NextKey(jobname, latest string) (string, error) {
	if latest == "" {
		latest = fmt.Sprintf("jobs/%s/%s-000.yml", jobname, jobname)
	}

	re := regexp.MustCompile(fmt.Sprintf("^(.*/%s-)(\\d+)(.*)$", regexp.QuoteMeta(jobname)))

	matches := re.FindStringSubmatch(latest)
	if len(matches) != 4 {
		return "", &ErrInvalidJob{msg: fmt.Sprintf("unexpected job key: %s", latest)}
	}

	id, err := strconv.Atoi(matches[2])
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%03d%s", matches[1], id+1, matches[3]), nil
}

// Upload stores a new revision of a job, encrypted with the newest
// passphrase from the secrets file.
func Upload(client s3io.Client, source io.Reader, jobname string) (string, error) {
	data, err := io.ReadAll(source)
	if err != nil {
		return "", err
	}
	if _, err := Parse(data); err != nil {
		return "", err
	}

	// get the key for the latest job configuration
	latest, _, err := client.LatestMatching(fmt.Sprintf("jobs/%s/", jobname))
	if err != nil {
		var nomatch *s3io.ErrNoMatch
		if !errors.As(err, &nomatch) {
			return "", err
		}
		latest = ""
	}

	key, err := NextKey(jobname, latest)
	if err != nil {
		return "", err
	}

	_, err = client.UploadPassphrase(key, bytes.NewReader(data), true)

	return key, err
}
