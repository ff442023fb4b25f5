package queue

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
)

// AWSQueue implementation
type AWSQueue struct {
	QueueURL string
	queue    sqsiface.SQSAPI
}

// InitAWSQueue ...
func InitAWSQueue(cfg Config) (Client, error) {
	ssn, err := session.NewSession(&aws.Config{
		Region:      aws.String(cfg.Region),
		Credentials: credentials.NewSharedCredentials(cfg.CredentialsFile, cfg.CredentialsProfile),
		MaxRetries:  aws.Int(cfg.Retries),
	})
	if err != nil {
		return nil, err
	}
	return NewAWSQueue(sqs.New(ssn), cfg), nil
}

// NewAWSQueue wraps an existing SQS client.
func NewAWSQueue(api sqsiface.SQSAPI, cfg Config) *AWSQueue {
	return &AWSQueue{
		queue:    api,
		QueueURL: fmt.Sprintf("%s/%s", cfg.URL, cfg.Name),
	}
}

// SendMessage ...
func (q AWSQueue) SendMessage(message string) error {
	msg := &sqs.SendMessageInput{
		MessageBody:  aws.String(message),    // Required
		QueueUrl:     aws.String(q.QueueURL), // Required
		DelaySeconds: aws.Int64(0),           // (optional) 0s - 900s (15 minutes)
	}
	sendResponse, err := q.queue.SendMessage(msg)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"event": "send_message",
		"queue": "aws_sqs",
	}).Debug(aws.StringValue(sendResponse.MessageId))
	return nil
}
