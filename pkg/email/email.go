package email

import (
	"context"
	"strconv"
	"sync"

	sendinblue "github.com/sendinblue/APIv3-go-library/lib"
)

// Mailer is the interface email services can implement
type Mailer interface {
	SendEmail(ctx context.Context, mail *Email) error
}

// Email is a struct that contains information to send an email
type Email struct {
	ReceiverName    string
	ReceiverAddress string
	Template        string
	Parameters      map[string]interface{}
}

// ReplyToName the reply to name for all emails
const ReplyToName = "Taskistation"

// ReplyToEmail the reply to email for all emails
const ReplyToEmail = "hello@taskistation.app"

// WelcomeTemplateID is the transactional template sent after registration
const WelcomeTemplateID = "1"

// SendInBlueService is an implementation of Mailer
type SendInBlueService struct {
	mailer *sendinblue.APIClient
}

// NewSendInBlueService constructs a new SendInBlueService
func NewSendInBlueService(apiKey string) *SendInBlueService {
	service := SendInBlueService{}

	cfg := sendinblue.NewConfiguration()

	cfg.AddDefaultHeader("api-key", apiKey)

	service.mailer = sendinblue.NewAPIClient(cfg)

	return &service
}

// SendEmail sends an email
func (s *SendInBlueService) SendEmail(ctx context.Context, mail *Email) error {
	templateID, err := strconv.Atoi(mail.Template)
	if err != nil {
		return err
	}

	params := interface{}(mail.Parameters)

	_, _, err = s.mailer.TransactionalEmailsApi.SendTransacEmail(ctx, sendinblue.SendSmtpEmail{
		TemplateId: int64(templateID),
		To: []sendinblue.SendSmtpEmailTo{
			{
				Email: mail.ReceiverAddress,
				Name:  mail.ReceiverName,
			},
		},
		ReplyTo: &sendinblue.SendSmtpEmailReplyTo{
			Name:  ReplyToName,
			Email: ReplyToEmail,
		},
		Params: &params,
	})

	return err
}

// MockMailer records sent mails instead of delivering them
type MockMailer struct {
	Sent  []*Email
	mutex sync.Mutex
}

// SendEmail stores the email
func (m *MockMailer) SendEmail(_ context.Context, mail *Email) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.Sent = append(m.Sent, mail)
	return nil
}
