package ecsdeploy

import (
	"bytes"
	"context"
	"crypto/sha1"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/client"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/cloudformation"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/remind101/pkg/logger"
)

// cloudformationClient duck types the cloudformation.CloudFormation
// interface that we use.
type cloudformationClient interface {
	CreateStackWithContext(aws.Context, *cloudformation.CreateStackInput, ...request.Option) (*cloudformation.CreateStackOutput, error)
	UpdateStackWithContext(aws.Context, *cloudformation.UpdateStackInput, ...request.Option) (*cloudformation.UpdateStackOutput, error)
	DescribeStacksWithContext(aws.Context, *cloudformation.DescribeStacksInput, ...request.Option) (*cloudformation.DescribeStacksOutput, error)
	ValidateTemplateWithContext(aws.Context, *cloudformation.ValidateTemplateInput, ...request.Option) (*cloudformation.ValidateTemplateOutput, error)
	WaitUntilStackCreateCompleteWithContext(aws.Context, *cloudformation.DescribeStacksInput, ...request.WaiterOption) error
	WaitUntilStackUpdateCompleteWithContext(aws.Context, *cloudformation.DescribeStacksInput, ...request.WaiterOption) error
}

// s3Client duck types the s3.S3 interface that we use.
type s3Client interface {
	PutObjectWithContext(aws.Context, *s3.PutObjectInput, ...request.Option) (*s3.PutObjectOutput, error)
}

// Applier creates or updates the CloudFormation stack for a Stack, waits for
// the operation to complete, then resolves the stack's deferred attributes
// from its outputs.
type Applier struct {
	// The name of the bucket to store templates in.
	Bucket string

	// Any additional tags to add to the stack.
	Tags []*cloudformation.Tag

	cloudformation cloudformationClient
	s3             s3Client
}

// NewApplier returns a new Applier with clients configured from config.
func NewApplier(config client.ConfigProvider, bucket string) *Applier {
	return &Applier{
		Bucket:         bucket,
		cloudformation: cloudformation.New(config),
		s3:             s3.New(config),
	}
}

// Apply submits the stack's template to CloudFormation and blocks until the
// create or update completes. When it returns without error, every
// Attribute registered on the stack is resolved.
func (a *Applier) Apply(ctx context.Context, stack *Stack) error {
	body, err := stack.Synth()
	if err != nil {
		return err
	}

	key := fmt.Sprintf("%s/%x", stack.Name, sha1.Sum(body))

	_, err = a.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.Bucket),
		Key:         aws.String(fmt.Sprintf("/%s", key)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("error uploading stack template to s3: %v", err)
	}

	url := fmt.Sprintf("https://%s.s3.amazonaws.com/%s", a.Bucket, key)

	_, err = a.cloudformation.ValidateTemplateWithContext(ctx, &cloudformation.ValidateTemplateInput{
		TemplateURL: aws.String(url),
	})
	if err != nil {
		return fmt.Errorf("error validating template: %v", err)
	}

	_, err = a.cloudformation.DescribeStacksWithContext(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(stack.Name),
	})
	if stackDoesNotExist(err, stack.Name) {
		if err := a.create(ctx, stack.Name, url); err != nil {
			return err
		}
	} else if err == nil {
		if err := a.update(ctx, stack.Name, url); err != nil {
			return err
		}
	} else {
		return fmt.Errorf("error describing stack: %v", err)
	}

	outputs, err := a.outputs(ctx, stack.Name)
	if err != nil {
		return err
	}

	return stack.resolveAttributes(outputs)
}

func (a *Applier) create(ctx context.Context, stackName, url string) error {
	logger.Info(ctx, "cloudformation.create",
		"stack", stackName,
		"template", url,
	)

	_, err := a.cloudformation.CreateStackWithContext(ctx, &cloudformation.CreateStackInput{
		StackName:   aws.String(stackName),
		TemplateURL: aws.String(url),
		Tags:        a.Tags,
	})
	if err != nil {
		return fmt.Errorf("error creating stack: %v", err)
	}

	return a.cloudformation.WaitUntilStackCreateCompleteWithContext(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(stackName),
	})
}

func (a *Applier) update(ctx context.Context, stackName, url string) error {
	logger.Info(ctx, "cloudformation.update",
		"stack", stackName,
		"template", url,
	)

	_, err := a.cloudformation.UpdateStackWithContext(ctx, &cloudformation.UpdateStackInput{
		StackName:   aws.String(stackName),
		TemplateURL: aws.String(url),
	})
	if err != nil {
		if err, ok := err.(awserr.Error); ok {
			if err.Code() == "ValidationError" && err.Message() == "No updates are to be performed." {
				logger.Info(ctx, "cloudformation.update.noop", "stack", stackName)
				return nil
			}
		}

		return fmt.Errorf("error updating stack: %v", err)
	}

	return a.cloudformation.WaitUntilStackUpdateCompleteWithContext(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(stackName),
	})
}

// outputs returns the stack's outputs, keyed by output key.
func (a *Applier) outputs(ctx context.Context, stackName string) (map[string]string, error) {
	resp, err := a.cloudformation.DescribeStacksWithContext(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		return nil, fmt.Errorf("error describing stack: %v", err)
	}
	if len(resp.Stacks) != 1 {
		return nil, fmt.Errorf("expected 1 stack named %s, got %d", stackName, len(resp.Stacks))
	}

	outputs := make(map[string]string)
	for _, o := range resp.Stacks[0].Outputs {
		outputs[*o.OutputKey] = *o.OutputValue
	}
	return outputs, nil
}

// stackDoesNotExist returns true if err is CloudFormation telling us the
// stack doesn't exist yet.
func stackDoesNotExist(err error, stackName string) bool {
	if err, ok := err.(awserr.Error); ok {
		return err.Message() == fmt.Sprintf("Stack with id %s does not exist", stackName)
	}
	return false
}
