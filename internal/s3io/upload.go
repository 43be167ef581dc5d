package s3io

import (
	"context"
	"io"
	"strconv"

	"filippo.io/age"
	"github.com/klauspost/compress/gzip"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const (
	metaCompress = "fileman-compress"
	metaEncrypt  = "fileman-encrypt"
	metaScrypt   = "fileman-scrypt"
	metaScryptId = "fileman-scrypt-id"
	metaRawSize  = "fileman-raw-size"
)

// Upload stores source under key, compressed and/or encrypted as the
// client was configured. It returns the number of bytes read from source.
func (cl *client) Upload(key, contentType string, source io.Reader) (int64, error) {

	scrypt := false

	return cl.upload(key, contentType, source, cl.compress, cl.encrypt, scrypt)
}

func (cl *client) UploadPassphrase(key string, source io.Reader, compress bool) (int64, error) {

	if len(cl.passkeys) == 0 {
		return 0, &ErrPassphraseNotFound{
			operation: "upload",
		}
	}

	encrypt := false
	scrypt := true

	return cl.upload(key, "", source, compress, encrypt, scrypt)
}

// pipeThrough runs wrap over source in a goroutine and hands back the
// reading end. The writers are all io.WriteClosers but the uploader wants
// a reader.
func pipeThrough(source io.Reader, wrap func(io.Writer) (io.WriteCloser, error)) *io.PipeReader {
	reader, writer := io.Pipe()

	go func() {
		wc, err := wrap(writer)
		if err != nil {
			writer.CloseWithError(err)
			return
		}

		_, err = io.Copy(wc, source)

		cerr := wc.Close()
		if err == nil {
			err = cerr
		}
		if err != nil {
			writer.CloseWithError(err)
		} else {
			writer.Close()
		}
	}()

	return reader
}

func (cl *client) upload(key, contentType string, source io.Reader, compress, encrypt, scrypt bool) (int64, error) {

	// create the map for metadata
	mdata := make(map[string]string)

	// count the bytes handed to us before anything transforms them
	raw := NewReadCounter(source)
	source = raw

	if compress {
		mdata[metaCompress] = "gzip"

		reader := pipeThrough(source, func(w io.Writer) (io.WriteCloser, error) {
			return gzip.NewWriter(w), nil
		})
		defer reader.Close()

		source = reader
	}

	if encrypt && !scrypt {
		mdata[metaEncrypt] = "age"

		recipients := cl.recipients
		reader := pipeThrough(source, func(w io.Writer) (io.WriteCloser, error) {
			return age.Encrypt(w, recipients...)
		})
		defer reader.Close()

		source = reader
	}

	if scrypt {
		passkey := cl.passkeys[len(cl.passkeys)-1]
		passphrase := cl.passphrases[passkey]

		recipient, err := age.NewScryptRecipient(passphrase)
		if err != nil {
			return 0, err
		}

		mdata[metaScrypt] = "age"
		mdata[metaScryptId] = passkey

		reader := pipeThrough(source, func(w io.Writer) (io.WriteCloser, error) {
			return age.Encrypt(w, recipient)
		})
		defer reader.Close()

		source = reader
	}

	input := &s3.PutObjectInput{
		Bucket:   cl.bucket,
		Key:      aws.String(key),
		Body:     source,
		Metadata: mdata,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	// can't use the simple PutObject method because don't know the ContentLength
	// in advance so use an Uploader...
	ctx := context.Background()
	uploader := manager.NewUploader(cl.client)

	_, err := uploader.Upload(ctx, input)
	if err != nil {
		return raw.TotalBytes(), err
	}

	// the stored size no longer matches what was written, so record the
	// original size now that it is known
	if len(mdata) > 0 {
		mdata[metaRawSize] = strconv.FormatInt(raw.TotalBytes(), 10)

		copyInput := &s3.CopyObjectInput{
			Bucket:            cl.bucket,
			Key:               aws.String(key),
			CopySource:        aws.String(copySource(*cl.bucket, key)),
			Metadata:          mdata,
			MetadataDirective: types.MetadataDirectiveReplace,
		}
		if contentType != "" {
			copyInput.ContentType = aws.String(contentType)
		}
		if _, err := cl.client.CopyObject(ctx, copyInput); err != nil {
			return raw.TotalBytes(), err
		}
	}

	return raw.TotalBytes(), nil
}
