package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// SESConfig holds AWS SES settings for the alternative outreach
// transport.
type SESConfig struct {
	AccessKey string
	SecretKey string
	Region    string
	From      string
}

func (c SESConfig) validate() error {
	var missing []string
	if c.AccessKey == "" {
		missing = append(missing, "access_key")
	}
	if c.SecretKey == "" {
		missing = append(missing, "secret_key")
	}
	if c.Region == "" {
		missing = append(missing, "region")
	}
	if c.From == "" {
		missing = append(missing, "from")
	}
	if len(missing) > 0 {
		return fmt.Errorf("ses transport: missing settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// SESTransport delivers through the AWS SES v2 API. SES has no
// long-lived wire session; Open builds the SDK client once per batch,
// which is where credential problems surface.
type SESTransport struct {
	cfg SESConfig
}

// NewSESTransport validates the SES settings up front.
func NewSESTransport(cfg SESConfig) (*SESTransport, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &SESTransport{cfg: cfg}, nil
}

// From returns the configured sender address.
func (t *SESTransport) From() string { return t.cfg.From }

// Open constructs the SES client for this batch.
func (t *SESTransport) Open(ctx context.Context) (Session, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(t.cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(t.cfg.AccessKey, t.cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("ses: load aws config: %w", err)
	}
	return &sesSession{client: sesv2.NewFromConfig(awsCfg), ctx: ctx}, nil
}

type sesSession struct {
	client *sesv2.Client
	ctx    context.Context
}

func (s *sesSession) Send(from, to, subject, body string) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	if _, err := s.client.SendEmail(s.ctx, input); err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}

func (s *sesSession) Close() error { return nil }
