package s3io

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"gitlab.com/tozd/go/errors"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func isNotFound(err error) bool {
	var nosuchkey *types.NoSuchKey
	if errors.As(err, &nosuchkey) {
		return true
	}
	var notfound *types.NotFound
	if errors.As(err, &notfound) {
		return true
	}
	var responseError *awshttp.ResponseError
	return errors.As(err, &responseError) && responseError.ResponseError.HTTPStatusCode() == http.StatusNotFound
}

func copySource(bucket, key string) string {
	return url.PathEscape(bucket) + "/" + strings.ReplaceAll(url.PathEscape(key), "%2F", "/")
}

// Head returns the object metadata. Size is the size of the decoded
// content when the object was stored compressed or encrypted.
func (cl *client) Head(key string) (*ObjectInfo, error) {

	hoo, err := cl.client.HeadObject(context.Background(), &s3.HeadObjectInput{
		Bucket: cl.bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, &ErrNoSuchObject{
				key: key,
			}
		}
		return nil, err
	}

	info := ObjectInfo{
		Key:         key,
		Size:        aws.ToInt64(hoo.ContentLength),
		ContentType: aws.ToString(hoo.ContentType),
	}
	for k, v := range hoo.Metadata {
		if strings.ToLower(k) == metaRawSize {
			if size, err := strconv.ParseInt(v, 10, 64); err == nil {
				info.Size = size
			}
		}
	}

	return &info, nil
}

// List returns the objects directly under prefix and the common prefixes
// one level down, using '/' as the delimiter.
func (cl *client) List(prefix string) ([]ObjectInfo, []string, error) {

	loi := s3.ListObjectsV2Input{
		Bucket:    cl.bucket,
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	}

	var objects []ObjectInfo
	var prefixes []string

	for {
		resp, err := cl.client.ListObjectsV2(context.Background(), &loi)
		if err != nil {
			return nil, nil, err
		}

		for _, object := range resp.Contents {
			objects = append(objects, ObjectInfo{
				Key:  aws.ToString(object.Key),
				Size: aws.ToInt64(object.Size),
			})
		}
		for _, cp := range resp.CommonPrefixes {
			prefixes = append(prefixes, aws.ToString(cp.Prefix))
		}

		if !aws.ToBool(resp.IsTruncated) {
			break
		}
		loi.ContinuationToken = resp.NextContinuationToken
	}

	return objects, prefixes, nil
}

func (cl *client) Copy(srcKey, dstKey string) error {

	_, err := cl.client.CopyObject(context.Background(), &s3.CopyObjectInput{
		Bucket:     cl.bucket,
		Key:        aws.String(dstKey),
		CopySource: aws.String(copySource(*cl.bucket, srcKey)),
	})
	if err != nil && isNotFound(err) {
		return &ErrNoSuchObject{
			key: srcKey,
		}
	}

	return err
}

func (cl *client) Delete(key string) error {

	_, err := cl.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: cl.bucket,
		Key:    aws.String(key),
	})

	return err
}
