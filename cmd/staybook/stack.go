package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"staybook/internal/app"
	"staybook/internal/app/notify"
	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	"staybook/internal/app/services/auth"
	domainpricing "staybook/internal/domain/pricing"
	domainuser "staybook/internal/domain/user"
	"staybook/internal/infra/config"
	"staybook/internal/infra/documents"
	"staybook/internal/infra/mail"
	"staybook/internal/infra/security"
	"staybook/internal/infra/storage/local"
	"staybook/internal/infra/storage/s3"
	"staybook/internal/infra/validation"
)

// stack is the assembled application: storage, documents, mail and the buses.
type stack struct {
	cfg        config.Config
	logger     *slog.Logger
	platform   *platform
	app        app.Application
	auth       *auth.Service
	dispatcher *notify.Dispatcher
	// files is set when contracts live on the local disk and are served by the API.
	files *local.Dir
}

func assemble(ctx context.Context, cfg config.Config, logger *slog.Logger) (*stack, error) {
	p, err := openPlatform(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	s := &stack{cfg: cfg, logger: logger, platform: p}

	blobs, err := s.contractStore(ctx)
	if err != nil {
		p.Close()
		return nil, err
	}
	contracts := documents.Contracts{
		Renderer: documents.ContractRenderer{Landlord: cfg.OwnerEmail},
		Store:    blobs,
		Logger:   logger,
	}

	notifier, err := s.notifier()
	if err != nil {
		p.Close()
		return nil, err
	}
	s.dispatcher = notify.NewDispatcher(notifier, notify.Options{Workers: cfg.NotifyWorkers, Logger: logger})

	s.app = app.Build(app.Deps{
		UoW:           p.uow,
		Outbox:        p.outbox,
		Encoder:       appoutbox.JSONEventEncoder{IDGenerator: uuid.NewString},
		Idempotency:   p.idempotency,
		Validator:     validation.New(),
		Notifier:      notifier,
		Notifications: s.dispatcher,
		Contracts:     contracts,
		Linker:        contracts,
		Lease:         p.lease,
		Pricing:       domainpricing.Engine{DefaultParkingWeekly: cfg.ParkingWeekly()},
		Location:      cfg.BusinessTZ,
		Currency:      cfg.Currency,
		OwnerEmail:    cfg.OwnerEmail,
		NewID:         uuid.NewString,
		Logger:        logger,
	})
	s.auth = &auth.Service{
		Operators:  p.operators,
		Sessions:   p.sessions,
		Passwords:  security.BcryptHasher{},
		Tokens:     security.SessionTokens{Bytes: 32},
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}
	return s, nil
}

func (s *stack) contractStore(ctx context.Context) (documents.BlobStore, error) {
	if s.cfg.S3Endpoint == "" {
		dir := &local.Dir{Root: s.cfg.ContractsDir, BaseURL: s.cfg.PublicBaseURL}
		s.files = dir
		s.logger.Info("contracts stored on disk", "dir", s.cfg.ContractsDir)
		return dir, nil
	}
	client, err := s3.NewClient(s3.Config{
		Endpoint:       s.cfg.S3Endpoint,
		PublicEndpoint: s.cfg.S3PublicEndpoint,
		UseSSL:         s.cfg.S3UseSSL,
		AccessKey:      s.cfg.S3AccessKey,
		SecretKey:      s.cfg.S3SecretKey,
		Bucket:         s.cfg.S3Bucket,
		URLTTL:         s.cfg.ContractURLTTL,
	}, s.logger)
	if err != nil {
		return nil, fmt.Errorf("contract storage: %w", err)
	}
	s.platform.checks["object_storage"] = client.Ping
	return client, nil
}

func (s *stack) notifier() (policies.Notifier, error) {
	templates, err := mail.NewTemplates()
	if err != nil {
		return nil, err
	}
	if s.cfg.SMTPHost == "" {
		s.logger.Warn("SMTP_HOST not set, mail is logged instead of sent")
		return mail.LogNotifier{Templates: templates, Logger: s.logger}, nil
	}
	smtp, err := mail.NewSMTPNotifier(mail.SMTPConfig{
		Host:     s.cfg.SMTPHost,
		Port:     s.cfg.SMTPPort,
		Username: s.cfg.SMTPUser,
		Password: s.cfg.SMTPPassword,
		TLS:      s.cfg.SMTPTLS,
		From:     s.cfg.MailFrom,
		Timeout:  30 * time.Second,
	}, templates, s.logger)
	if err != nil {
		return nil, err
	}
	return smtp, nil
}

// seedOperator makes sure the configured admin account can sign in.
func (s *stack) seedOperator(ctx context.Context) error {
	if s.cfg.AdminEmail == "" || s.cfg.AdminPassword == "" {
		s.logger.Warn("ADMIN_EMAIL or ADMIN_PASSWORD not set, no operator seeded")
		return nil
	}
	op, err := s.auth.EnsureOperator(ctx, s.cfg.AdminEmail, "Administrator", s.cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("seed operator: %w", err)
	}
	s.logger.Info("operator ready", "email", op.Email)
	return nil
}

// systemContext carries the operator identity used by the CLI and the scheduler.
func systemContext(ctx context.Context) context.Context {
	return policies.ContextWithActor(ctx, policies.Actor{ID: "system", Roles: []string{string(domainuser.RoleAdmin)}})
}

// Close drains pending mail and releases storage.
func (s *stack) Close() error {
	s.dispatcher.Close()
	return s.platform.Close()
}
