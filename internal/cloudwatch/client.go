package cloudwatch

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
)

// Session holds one resolved AWS configuration so the logs and metrics
// clients built from it share credentials and region.
type Session struct {
	cfg     aws.Config
	profile string
}

// LoadSession resolves the AWS configuration for profile and region. Empty
// values fall back to the SDK's default chain.
func LoadSession(ctx context.Context, profile, region string) (*Session, error) {
	var opts []func(*config.LoadOptions) error

	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Session{cfg: cfg, profile: profile}, nil
}

// Region is the region the session resolved to, which may come from the
// profile rather than an explicit flag.
func (s *Session) Region() string {
	return s.cfg.Region
}

// Profile is the shared config profile the session was loaded with.
func (s *Session) Profile() string {
	return s.profile
}

// Logs returns a CloudWatch Logs client, used to read traces.
func (s *Session) Logs() *cloudwatchlogs.Client {
	return cloudwatchlogs.NewFromConfig(s.cfg)
}

// Metrics returns a CloudWatch client, used to publish replay results.
func (s *Session) Metrics() *cloudwatch.Client {
	return cloudwatch.NewFromConfig(s.cfg)
}
