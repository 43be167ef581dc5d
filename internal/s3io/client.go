package s3io

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"

	"filippo.io/age"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectInfo is the subset of object metadata the file store needs.
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
}

type Client interface {
	Exists(key string) (bool, error)
	Head(key string) (*ObjectInfo, error)
	List(prefix string) ([]ObjectInfo, []string, error)
	LatestMatching(prefix string) (string, int64, error)

	Upload(key, contentType string, source io.Reader) (int64, error)
	UploadPassphrase(key string, source io.Reader, compress bool) (int64, error)

	Open(key string) (io.ReadCloser, error)
	Download(key string, sink io.Writer) (int64, error)

	Copy(srcKey, dstKey string) error
	Delete(key string) error
}

// Options select the bucket and how objects are transformed on the way
// in. Objects are always decoded on the way out according to their own
// metadata, whatever the options say.
type Options struct {
	Profile        string
	Bucket         string
	Compress       bool
	Encrypt        bool
	IdentitiesFile string
	SecretsFile    string
}

type client struct {
	client      *s3.Client
	bucket      *string
	compress    bool
	encrypt     bool
	recipients  []age.Recipient
	identities  []age.Identity
	passkeys    []string
	passphrases map[string]string
}

func NewClient(opts Options) (Client, error) {

	// load the profile
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithSharedConfigProfile(opts.Profile))
	if err != nil {
		return nil, errors.Errorf("loading aws profile %s: %w", opts.Profile, err)
	}

	// create the client
	s3client := s3.NewFromConfig(cfg)

	// recipients are only needed when we encrypt
	var recipients []age.Recipient
	if opts.Encrypt {
		recipients, err = loadRecipients(s3client, opts.Bucket)
		if err != nil {
			return nil, err
		}
	}

	identities, err := loadIdentities(opts.IdentitiesFile)
	if err != nil {
		return nil, err
	}
	passkeys, passphrases, err := loadSecrets(opts.SecretsFile)
	if err != nil {
		return nil, err
	}

	cl := client{
		client:      s3client,
		bucket:      aws.String(opts.Bucket),
		compress:    opts.Compress,
		encrypt:     opts.Encrypt,
		recipients:  recipients,
		identities:  identities,
		passkeys:    passkeys,
		passphrases: passphrases,
	}

	return &cl, nil
}

func loadRecipients(cl *s3.Client, bucket string) ([]age.Recipient, error) {

	resp, err := cl.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String("repo/recipients.txt"),
	})
	if err != nil {
		var nosuchkey *types.NoSuchKey
		if errors.As(err, &nosuchkey) {
			return nil, &ErrNoRecipientsFile{}
		}
		return nil, err
	}
	defer resp.Body.Close()

	return age.ParseRecipients(resp.Body)
}

func defaultPath(file, name string) (string, error) {
	if file != "default" && file != "" {
		return file, nil
	}
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	return filepath.Join(u.HomeDir, ".fileman", name), nil
}

// checkPerms fails for key material readable by group or others. A
// missing file is reported as (false, nil).
func checkPerms(file string) (bool, error) {
	info, err := os.Stat(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	perms := info.Mode()
	if perms&0077 != 0 {
		return false, &ErrPermissionsTooOpen{
			msg: fmt.Sprintf("Permissions on %s are too open: %#o", file, perms),
		}
	}
	return true, nil
}

func loadIdentities(identities_file string) ([]age.Identity, error) {
	identities_file, err := defaultPath(identities_file, "identities.txt")
	if err != nil {
		return nil, err
	}

	found, err := checkPerms(identities_file)
	if err != nil || !found {
		return nil, err
	}

	f, err := os.Open(identities_file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return age.ParseIdentities(f)
}

// loadSecrets reads the passphrases used for job files. Unlike the
// identities these are optional: without them passphrase uploads and
// downloads fail with ErrPassphraseNotFound.
func loadSecrets(secrets_file string) ([]string, map[string]string, error) {
	secrets_file, err := defaultPath(secrets_file, "secrets.yml")
	if err != nil {
		return nil, nil, err
	}

	found, err := checkPerms(secrets_file)
	if err != nil || !found {
		return nil, nil, err
	}

	data, err := os.ReadFile(secrets_file)
	if err != nil {
		return nil, nil, err
	}

	type Data struct {
		Id         string
		Passphrase string
	}
	var raw []Data

	err = yaml.Unmarshal(data, &raw)
	if err != nil {
		return nil, nil, errors.Errorf("parsing %s: %w", secrets_file, err)
	}

	if len(raw) == 0 {
		return nil, nil, &ErrNoSecretsFound{
			file: secrets_file,
		}
	}

	passphrases := make(map[string]string)
	var passkeys []string

	for _, entry := range raw {
		passkeys = append(passkeys, entry.Id)
		passphrases[entry.Id] = entry.Passphrase
	}

	return passkeys, passphrases, nil
}
