package common

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
)

// NewAWSSession creates a session using the default credential chain.
// Empty region and endpoint fall back to the SDK defaults (AWS_REGION, ...).
func NewAWSSession(region, endpoint string) (*session.Session, error) {
	cfg := aws.Config{}
	if region != "" {
		cfg.Region = aws.String(region)
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            cfg,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return sess, nil
}
