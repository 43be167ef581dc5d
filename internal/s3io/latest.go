package s3io

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// LatestMatching returns the last key, in lexical order, under prefix.
func (cl *client) LatestMatching(prefix string) (string, int64, error) {

	loi := s3.ListObjectsV2Input{
		Bucket: cl.bucket,
		Prefix: aws.String(prefix),
	}

	latest := ""
	var size int64

	for {
		resp, err := cl.client.ListObjectsV2(context.Background(), &loi)
		if err != nil {
			return "", 0, err
		}

		if num := len(resp.Contents); num > 0 {
			object := resp.Contents[num-1]
			latest = aws.ToString(object.Key)
			size = aws.ToInt64(object.Size)
		}

		if !aws.ToBool(resp.IsTruncated) {
			break
		}
		loi.ContinuationToken = resp.NextContinuationToken
	}

	if latest == "" {
		return "", 0, &ErrNoMatch{
			msg: fmt.Sprintf("No objects found with prefix: %s", prefix),
		}
	}

	return latest, size, nil
}
