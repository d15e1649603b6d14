package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/cardbox-io/cardbox/internal/auth"
	"github.com/cardbox-io/cardbox/internal/cardbox/adapter"
	"github.com/cardbox-io/cardbox/internal/cardbox/app"
	"github.com/cardbox-io/cardbox/internal/cardbox/port"
	"github.com/cardbox-io/cardbox/internal/config"
	"github.com/cardbox-io/cardbox/internal/domain"
	"github.com/cardbox-io/cardbox/internal/dynamo"
	"github.com/cardbox-io/cardbox/internal/server"
)

// setup is the cardbox composition root. It creates infrastructure
// clients, adapters, the auth and data services, and mounts the two HTTP
// endpoints.
func setup(ctx context.Context, deps server.SetupDeps) (func(context.Context) error, error) {
	cfg := deps.Config
	logger := deps.Logger

	// 1. Infrastructure clients.
	dynamoClient, err := dynamo.NewClient(ctx, dynamo.Config{
		Endpoint: cfg.DynamoDB.Endpoint,
		Region:   cfg.AWS.Region,
		Timeout:  cfg.DynamoDB.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("cardbox setup: create dynamo client: %w", err)
	}

	// 2. Adapters.
	clock := domain.RealClock{}
	otpStore := adapter.NewOTPStore(dynamoClient.DB, cfg.DynamoDB.OTPCodesTable)
	userStore := adapter.NewUserStore(dynamoClient.DB, cfg.DynamoDB.UsersTable)
	itemStore := adapter.NewItemStore(dynamoClient.DB, adapter.TableNames{
		domain.TableCards:   cfg.DynamoDB.CardsTable,
		domain.TableFolders: cfg.DynamoDB.FoldersTable,
		domain.TableTags:    cfg.DynamoDB.TagsTable,
	})

	notifier, err := createNotifier(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("cardbox setup: create notifier: %w", err)
	}

	// 3. Session authority.
	secret := domain.SecretBytes(cfg.Session.Secret.Expose())
	minter := auth.NewMinter(auth.MinterConfig{
		Secret:   secret,
		Lifetime: domain.SessionTokenLifetime,
		Issuer:   cfg.Session.Issuer,
		Clock:    clock,
	})
	validator := auth.NewValidator(auth.ValidatorConfig{
		Secret: secret,
		Issuer: cfg.Session.Issuer,
		Clock:  clock,
	})

	// 4. Services.
	authSvc := app.NewAuthService(app.AuthServiceConfig{
		OTPStore:  otpStore,
		UserStore: userStore,
		Notifier:  notifier,
		Minter:    minter,
		Clock:     clock,
		Logger:    logger,
	})
	dataSvc := app.NewDataService(app.DataServiceConfig{
		ItemStore: itemStore,
		UserStore: userStore,
		Validator: validator,
		Clock:     clock,
		Logger:    logger,
	})

	// 5. HTTP endpoints.
	deps.HTTPMux.Handle("/functions/v1/send-otp", port.NewSendOTPHandler(authSvc, logger))
	deps.HTTPMux.Handle("/functions/v1/data-api", port.NewDataAPIHandler(dataSvc, logger))

	logger.InfoContext(ctx, "cardbox service initialized",
		slog.String("notifier", cfg.Notifier.Provider))

	cleanup := func(_ context.Context) error {
		authSvc.Wait()
		return nil
	}
	return cleanup, nil
}

// createNotifier selects the OTP delivery backend from config.
// webhook: HMAC-signed POSTs to an SMS gateway.
// sns: Amazon SNS SMS.
// log: local development, codes written to the log.
func createNotifier(ctx context.Context, cfg *config.Config, logger *slog.Logger) (auth.Notifier, error) {
	switch cfg.Notifier.Provider {
	case "webhook":
		client := &http.Client{Timeout: cfg.Notifier.Timeout}
		secret := domain.SecretBytes(cfg.Notifier.WebhookSecret.Expose())
		return adapter.NewWebhookNotifier(client, cfg.Notifier.WebhookURL, secret), nil

	case "sns":
		opts := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(cfg.AWS.Region),
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("load AWS config for SNS: %w", err)
		}
		var snsOpts []func(*sns.Options)
		if cfg.AWS.Endpoint != "" {
			endpoint := cfg.AWS.Endpoint
			snsOpts = append(snsOpts, func(o *sns.Options) {
				o.BaseEndpoint = &endpoint
			})
		}
		return adapter.NewSNSNotifier(sns.NewFromConfig(awsCfg, snsOpts...)), nil

	case "log":
		logger.Info("using log-only notifier for local development")
		return adapter.NewLogNotifier(logger), nil

	default:
		return nil, fmt.Errorf("unknown notifier provider %q", cfg.Notifier.Provider)
	}
}
