// internal/notify/notifier.go
package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"pipeline-composer/internal/common/config"
	"pipeline-composer/internal/common/logger"
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Notifier sends operator alerts when a pipeline run fails. Channels are
// gated individually by config; a disabled notifier is a no-op.
type Notifier struct {
	cfg       config.NotificationConfig
	sesClient SESService
	snsClient SNSService
	logger    logger.Logger
}

func New(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (*Notifier, error) {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	n := &Notifier{cfg: cfg, logger: log}
	if !cfg.Email.Enabled && !cfg.SMS.Enabled {
		return n, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	n.sesClient = ses.NewFromConfig(awsCfg)
	n.snsClient = sns.NewFromConfig(awsCfg)
	return n, nil
}

// NewWithClients wires explicit service clients. Used by tests.
func NewWithClients(cfg config.NotificationConfig, sesClient SESService, snsClient SNSService, log logger.Logger) *Notifier {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Notifier{
		cfg:       cfg,
		sesClient: sesClient,
		snsClient: snsClient,
		logger:    log,
	}
}

// RunFailed reports a failed pipeline run on every enabled channel.
// Channel errors are logged and do not fail the caller: the run outcome
// is already persisted elsewhere.
func (n *Notifier) RunFailed(ctx context.Context, pipelineName, runID, reason string) {
	subject := fmt.Sprintf("Pipeline run failed: %s", pipelineName)
	body := fmt.Sprintf("Run %s of pipeline %s failed: %s", runID, pipelineName, reason)

	if n.cfg.Email.Enabled && n.sesClient != nil {
		if err := n.sendEmail(ctx, subject, body); err != nil {
			n.logger.Error("failure email not sent", map[string]interface{}{
				"run_id": runID,
				"error":  err.Error(),
			})
		}
	}

	if n.cfg.SMS.Enabled && n.snsClient != nil {
		if err := n.sendSMS(ctx, body); err != nil {
			n.logger.Error("failure SMS not sent", map[string]interface{}{
				"run_id": runID,
				"error":  err.Error(),
			})
		}
	}
}

func (n *Notifier) sendEmail(ctx context.Context, subject, body string) error {
	_, err := n.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{n.cfg.Email.ToEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.cfg.Email.FromEmail),
	})
	return err
}

func (n *Notifier) sendSMS(ctx context.Context, message string) error {
	_, err := n.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(n.cfg.SMS.PhoneNumber),
		Message:     aws.String(message),
	})
	return err
}
