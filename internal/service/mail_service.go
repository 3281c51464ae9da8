package service

import (
	"context"

	"deep-nexus-be/internal/dto"
	"deep-nexus-be/internal/pkg/logger"
	"deep-nexus-be/pkg/mailer"
)

type IMailService interface {
	Send(ctx context.Context, senderEmail string, req *dto.SendMailRequest) (*dto.SendMailResponse, error)
}

type mailService struct {
	emailService mailer.IEmailService
	logger       logger.ILogger
}

func NewMailService(emailService mailer.IEmailService, log logger.ILogger) IMailService {
	return &mailService{
		emailService: emailService,
		logger:       log,
	}
}

func (ms *mailService) Send(ctx context.Context, senderEmail string, req *dto.SendMailRequest) (*dto.SendMailResponse, error) {
	if err := ms.emailService.Send(req.To, req.Subject, req.Body); err != nil {
		ms.logger.Error("mail", "send failed", map[string]interface{}{
			"sender": senderEmail,
			"to":     req.To,
			"error":  err.Error(),
		})
		return nil, err
	}

	ms.logger.Info("mail", "mail sent", map[string]interface{}{
		"sender": senderEmail,
		"to":     req.To,
	})
	return &dto.SendMailResponse{Message: "Mail sent successfully"}, nil
}
