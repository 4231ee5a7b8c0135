package mail

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// sesAPI is the part of the SES client SESSender uses.
type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender sends email through Amazon SES v2.
type SESSender struct {
	client sesAPI
}

// NewSESSender loads the default AWS configuration for region.
func NewSESSender(ctx context.Context, region string) (*SESSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESSender{client: sesv2.NewFromConfig(cfg)}, nil
}

// maxSESRecipients is the SES limit on recipients per message.
const maxSESRecipients = 50

// Send implements Sender. A single recipient is addressed directly; larger
// recipient lists go out as Bcc in batches of maxSESRecipients so
// recipients never see each other's addresses.
func (s *SESSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 1 {
		return s.send(ctx, msg, &types.Destination{ToAddresses: msg.To})
	}

	for start := 0; start < len(msg.To); start += maxSESRecipients {
		end := min(start+maxSESRecipients, len(msg.To))
		batch := &types.Destination{BccAddresses: msg.To[start:end]}
		if err := s.send(ctx, msg, batch); err != nil {
			return fmt.Errorf("recipients %d-%d of %d: %w", start+1, end, len(msg.To), err)
		}
	}
	return nil
}

func (s *SESSender) send(ctx context.Context, msg Message, dest *types.Destination) error {
	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.From),
		Destination:      dest,
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML)},
				},
			},
		},
	})
	return err
}
