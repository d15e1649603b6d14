package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cardbox-io/cardbox/internal/auth"
	"github.com/cardbox-io/cardbox/internal/domain"
)

// IssueOTP generates a six-digit code for the given phone, persists it,
// and dispatches it through the notifier in the background. Delivery
// failures never roll back the stored code: the code is live the moment
// the insert succeeds, and the caller reports success regardless of the
// notifier outcome.
func (s *AuthService) IssueOTP(ctx context.Context, rawPhone string) error {
	ctx, span := tracer.Start(ctx, "AuthService.IssueOTP")
	defer span.End()

	phone, err := domain.NewPhoneNumber(rawPhone)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String("phone.hash", auth.HashPhone(phone.String())))

	code, err := auth.GenerateOTP()
	if err != nil {
		return fmt.Errorf("generating otp: %w", err)
	}

	record := OTPRecord{
		OTPID:     domain.GenerateOTPID().String(),
		Phone:     phone.String(),
		Code:      code,
		CreatedAt: s.clock.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := s.otpStore.Insert(ctx, record); err != nil {
		return fmt.Errorf("storing otp: %w", err)
	}

	otpIssuedTotal.Add(ctx, 1)
	s.logger.InfoContext(ctx, "otp issued",
		slog.String("phone_hash", auth.HashPhone(phone.String())))

	s.dispatchOTP(ctx, phone.String(), code)
	return nil
}

// dispatchOTP hands the code to the notifier on a background goroutine.
// The delivery outlives the request context but not process shutdown:
// the wiring layer waits on the service before exiting.
func (s *AuthService) dispatchOTP(ctx context.Context, phone, code string) {
	bgCtx := trace.ContextWithSpan(context.WithoutCancel(ctx), trace.SpanFromContext(ctx))

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()

		sendCtx, cancel := context.WithTimeout(bgCtx, domain.NotifierTimeout)
		defer cancel()

		if err := s.notifier.SendOTP(sendCtx, phone, code); err != nil {
			s.logger.ErrorContext(sendCtx, "otp delivery failed",
				slog.String("phone_hash", auth.HashPhone(phone)),
				slog.Any("error", err))
		}
	}()
}
