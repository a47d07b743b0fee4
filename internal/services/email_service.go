package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	pkglogger "github.com/BradenHooton/barberbook/pkg/logger"
)

// EmailSender delivers account emails
type EmailSender interface {
	SendVerificationEmail(ctx context.Context, email, token string) error
}

// sesAPI is the subset of the SES client used here
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESEmailSender sends emails using AWS SES
type SESEmailSender struct {
	client      sesAPI
	fromAddress string
	frontendURL string
	logger      *slog.Logger
}

// NewSESEmailSender loads the default AWS credential chain for region
func NewSESEmailSender(ctx context.Context, region, fromAddress, frontendURL string, logger *slog.Logger) (*SESEmailSender, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newSESEmailSender(ses.NewFromConfig(cfg), fromAddress, frontendURL, logger), nil
}

func newSESEmailSender(client sesAPI, fromAddress, frontendURL string, logger *slog.Logger) *SESEmailSender {
	return &SESEmailSender{
		client:      client,
		fromAddress: fromAddress,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

func verificationLink(frontendURL, token string) string {
	return fmt.Sprintf("%s/verify-email/%s", frontendURL, token)
}

// SendVerificationEmail sends the welcome email carrying the verification link
func (s *SESEmailSender) SendVerificationEmail(ctx context.Context, email, token string) error {
	link := verificationLink(s.frontendURL, token)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
    <h1>Welcome to MyBarber.ai!</h1>
    <p>Please click the link below to verify your email address:</p>
    <p><a href="%s">%s</a></p>
    <p>If you didn't create this account, you can ignore this email.</p>
</body>
</html>
`, link, link)

	textBody := fmt.Sprintf(`Welcome to MyBarber.ai!

Please open the link below to verify your email address:

%s

If you didn't create this account, you can ignore this email.
`, link)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String("Verify your email")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(htmlBody)},
				Text: &types.Content{Data: aws.String(textBody)},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("verification email sent",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("message_id", aws.ToString(result.MessageId)))
	return nil
}

// LogEmailSender writes emails to the log instead of sending them
type LogEmailSender struct {
	frontendURL string
	env         string
	logger      *slog.Logger
}

func NewLogEmailSender(frontendURL, env string, logger *slog.Logger) *LogEmailSender {
	return &LogEmailSender{frontendURL: frontendURL, env: env, logger: logger}
}

func (s *LogEmailSender) SendVerificationEmail(_ context.Context, email, token string) error {
	s.logger.Info("verification email (not sent)",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		pkglogger.RedactedAttr("link", verificationLink(s.frontendURL, token), s.env))
	return nil
}
