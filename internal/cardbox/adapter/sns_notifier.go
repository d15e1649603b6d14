package adapter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/cardbox-io/cardbox/internal/auth"
)

// snsPublisher is a narrow, consumer-defined interface for the subset of
// SNS operations the notifier needs. The real *sns.Client satisfies it.
type snsPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

var _ auth.Notifier = (*SNSNotifier)(nil)
var _ auth.Notifier = (*LogNotifier)(nil)

// SNSNotifier delivers OTP codes via Amazon SNS SMS.
type SNSNotifier struct {
	client snsPublisher
}

// NewSNSNotifier creates an SNSNotifier backed by the given SNS client.
func NewSNSNotifier(client snsPublisher) *SNSNotifier {
	return &SNSNotifier{client: client}
}

// SendOTP publishes the code to the given phone number via SNS.
func (n *SNSNotifier) SendOTP(ctx context.Context, phone, otp string) error {
	message := fmt.Sprintf("Your cardbox verification code is: %s", otp)

	_, err := n.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: &phone,
		Message:     &message,
	})
	if err != nil {
		return fmt.Errorf("sns notifier: send otp to %s: %w", maskPhone(phone), err)
	}
	return nil
}

// LogNotifier logs OTP deliveries instead of sending them. For local
// development only: the code appears in the log output so the flow can
// be exercised without an SMS gateway.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier writing to the given logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// SendOTP logs the delivery with a masked phone number. It never sends
// a real message.
func (n *LogNotifier) SendOTP(ctx context.Context, phone, otp string) error {
	n.logger.InfoContext(ctx, "otp delivery (log-only)",
		slog.String("phone", maskPhone(phone)),
		slog.String("code", otp),
	)
	return nil
}

// maskPhone shows only the last 4 digits of a phone number. Shorter
// values are fully masked.
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "***" + phone[len(phone)-4:]
}
