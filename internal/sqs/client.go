package sqs

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/iyhunko/product-catalog/internal/config"
)

// NewClient creates an SQS client from the AWS settings. A non-empty endpoint
// overrides the resolved one, which is how LocalStack is reached in development.
func NewClient(ctx context.Context, region string, endpoint string) (*sqs.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(endpoint)
	}

	return sqs.NewFromConfig(awsCfg), nil
}

// NewClientFromConfig creates an SQS client from the service configuration.
func NewClientFromConfig(ctx context.Context, conf config.AWS) (*sqs.Client, error) {
	return NewClient(ctx, conf.Region, conf.Endpoint)
}
