package store

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/rotblauer/ftmsd/params"
)

// ArchiveS3 mirrors one encoded workout file to S3, keyed by filename.
// Best-effort offsite copy of the local recovery point: errors are the
// caller's to log, never to fail the session on. The AWS SDK
// configures itself from the environment.
func ArchiveS3(filename string, content []byte) error {
	sess := session.Must(session.NewSession())
	svc := s3.New(sess)

	ctx, cancelFn := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelFn()

	_, err := svc.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(params.AWS_BUCKETNAME),
		Key:           aws.String("workouts/" + filename),
		Body:          bytes.NewReader(content),
		ContentType:   aws.String("application/xml"),
		ContentLength: aws.Int64(int64(len(content))),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == request.CanceledErrorCode {
			slog.Error("AWS S3 archive canceled due to timeout", "error", err)
		} else {
			slog.Error("Failed to archive workout to S3", "error", err)
		}
		return err
	}
	slog.Info("Archived workout to AWS S3", "bucket", params.AWS_BUCKETNAME, "key", filename)
	return nil
}
