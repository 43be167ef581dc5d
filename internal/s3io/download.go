package s3io

import (
	"context"
	"io"
	"strings"

	"filippo.io/age"
	"github.com/klauspost/compress/gzip"
	"gitlab.com/tozd/go/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

var downloadable = map[string]bool{
	"":                                 true,
	string(types.StorageClassStandard): true,
	string(types.StorageClassReducedRedundancy): true,
	string(types.StorageClassStandardIa):        true,
	string(types.StorageClassOnezoneIa):         true,
	string(types.StorageClassIntelligentTiering): true,
}

func (cl *client) checkDownloadable(key string) error {
	hoo, err := cl.client.HeadObject(context.Background(), &s3.HeadObjectInput{
		Bucket: cl.bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return &ErrNoSuchObject{
				key: key,
			}
		}
		return err
	}

	sclass := string(hoo.StorageClass)
	if downloadable[sclass] {
		return nil
	}

	return &ErrNotDownloadable{
		key:          key,
		storageClass: sclass,
	}
}

// objectReader decodes an object body and closes every layer it stacked.
type objectReader struct {
	io.Reader
	closers []io.Closer
}

func (or *objectReader) Close() error {
	var first error
	for i := len(or.closers) - 1; i >= 0; i-- {
		if err := or.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open streams the decoded contents of key.
func (cl *client) Open(key string) (io.ReadCloser, error) {

	// verify we can download the object
	err := cl.checkDownloadable(key)
	if err != nil {
		return nil, err
	}

	// use the simple GetObject method as we won't have a io.WriterAt interface
	//   to use the manager/parallel downloader
	resp, err := cl.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: cl.bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		var nosuchkey *types.NoSuchKey
		if errors.As(err, &nosuchkey) {
			return nil, &ErrNoSuchObject{
				key: key,
			}
		}
		return nil, err
	}

	or := &objectReader{
		Reader:  resp.Body,
		closers: []io.Closer{resp.Body},
	}

	// check the meta data to see if decompressing/decryption is needed
	compressed := false
	encrypted := false
	passkey := ""

	for k, v := range resp.Metadata {
		switch strings.ToLower(k) {
		case metaCompress:
			compressed = true
		case metaEncrypt:
			encrypted = true
		case metaScryptId:
			passkey = v
		}
	}

	// decrypt first
	if encrypted && passkey == "" {
		if len(cl.identities) == 0 {
			or.Close()
			return nil, &ErrIdentitiesNotFound{}
		}

		dreader, err := age.Decrypt(or.Reader, cl.identities...)
		if err != nil {
			or.Close()
			return nil, err
		}

		or.Reader = dreader
	}

	if len(passkey) > 0 {
		// get the passphrase to decrypt with
		passphrase, ok := cl.passphrases[passkey]
		if !ok {
			or.Close()
			return nil, &ErrPassphraseNotFound{
				operation: "download",
			}
		}

		identity, err := age.NewScryptIdentity(passphrase)
		if err != nil {
			or.Close()
			return nil, err
		}
		dreader, err := age.Decrypt(or.Reader, identity)
		if err != nil {
			or.Close()
			return nil, err
		}

		or.Reader = dreader
	}

	// then decompress
	if compressed {
		gzreader, err := gzip.NewReader(or.Reader)
		if err != nil {
			or.Close()
			return nil, err
		}

		or.Reader = gzreader
		or.closers = append(or.closers, gzreader)
	}

	return or, nil
}

func (cl *client) Download(key string, sink io.Writer) (int64, error) {

	reader, err := cl.Open(key)
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	counter := NewWriteCounter(sink)

	_, err = io.Copy(counter, reader)
	if err != nil {
		return 0, err
	}

	return counter.TotalBytes(), nil
}
