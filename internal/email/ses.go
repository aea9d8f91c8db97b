package email

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// SESAPI is the subset of *sesv2.Client the sender uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type sesClient struct {
	api  SESAPI
	from string
}

// NewSESClient returns a Sender backed by AWS SES v2. With empty keys the
// default credential chain is used.
func NewSESClient(ctx context.Context, region, accessKey, secretKey, fromAddr, fromName string) (Sender, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("email: load aws config: %w", err)
	}
	return NewSESClientFromAPI(sesv2.NewFromConfig(cfg), fromAddr, fromName), nil
}

// NewSESClientFromAPI wraps an existing SES client.
func NewSESClientFromAPI(api SESAPI, fromAddr, fromName string) Sender {
	return &sesClient{api: api, from: From(fromName, fromAddr)}
}

// Send delivers msg through SES.
func (c *sesClient) Send(ctx context.Context, msg Message) error {
	_, err := c.api.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(c.from),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
				},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("app"), Value: aws.String("digest")},
		},
	})
	if err != nil {
		return fmt.Errorf("email: ses send: %w", err)
	}
	return nil
}
