package sns

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/immunopass-go/internal/config"
)

// Publisher is the subset of the SNS client the gateway uses.
type Publisher interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Gateway sends the three kinds of SMS the service needs through SNS.
// It does not retry; a non-nil error means the message was not accepted.
type Gateway struct {
	client      Publisher
	countryCode string
}

func NewClient(ctx context.Context, cfg *config.Config) (*sns.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.SNSRegion),
	}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config for SNS: %w", err)
	}
	return sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if cfg.AWSEndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		}
	}), nil
}

// NewGateway builds a gateway. countryCode is prefixed to numbers that are not already in E.164 form.
func NewGateway(client Publisher, countryCode string) *Gateway {
	return &Gateway{client: client, countryCode: countryCode}
}

func (g *Gateway) SendOTP(ctx context.Context, name, to, code string) error {
	msg := fmt.Sprintf("Hi %s, %s is your ImmunoPass login OTP. It is valid for 15 minutes. Do not share it with anyone.", name, code)
	return g.send(ctx, to, msg)
}

func (g *Gateway) SendVoucher(ctx context.Context, name, mobile, voucherCode string) error {
	msg := fmt.Sprintf("Hi %s, your ImmunoPass test voucher code is %s. Show this code at the pathology lab.", name, voucherCode)
	return g.send(ctx, mobile, msg)
}

// SendPass delivers the pass token together with the holder's current status.
func (g *Gateway) SendPass(ctx context.Context, to, token, status string) error {
	msg := fmt.Sprintf("Your ImmunoPass is ready. Status: %s. Pass: %s", status, token)
	return g.send(ctx, to, msg)
}

func (g *Gateway) send(ctx context.Context, to, msg string) error {
	_, err := g.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(g.e164(to)),
		Message:     aws.String(msg),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {DataType: aws.String("String"), StringValue: aws.String("Transactional")},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}

func (g *Gateway) e164(number string) string {
	if strings.HasPrefix(number, "+") {
		return number
	}
	return g.countryCode + number
}
