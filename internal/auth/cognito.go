package auth

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
)

// NewCognitoClient builds a user pool client for region. Every call the
// gateway makes is public or authorized by the user's own tokens, so
// requests are sent unsigned and no AWS credentials are needed.
func NewCognitoClient(ctx context.Context, region string) (*cip.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return cip.NewFromConfig(cfg), nil
}
