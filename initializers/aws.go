package initializers

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	S3Client *s3.Client
	S3Bucket string
	S3Region string
)

func InitAWS() {
	S3Region = os.Getenv("AWS_REGION")
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(S3Region),
	)
	if err != nil {
		log.Fatalf("unable to load AWS SDK config: %v", err)
	}

	S3Client = s3.NewFromConfig(cfg)
	S3Bucket = os.Getenv("AWS_BUCKET_NAME")
}
