package ecsdeploy

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/cloudformation"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var ctx = context.Background()

func TestApplier_Apply_Create(t *testing.T) {
	stack, d := newTestStack(t)
	c := new(mockCloudFormationClient)
	b := new(mockS3Client)
	a := &Applier{
		Bucket:         "bucket",
		cloudformation: c,
		s3:             b,
	}

	b.On("PutObjectWithContext", mock.AnythingOfType("*s3.PutObjectInput")).Return(&s3.PutObjectOutput{}, nil)
	c.On("ValidateTemplateWithContext", mock.AnythingOfType("*cloudformation.ValidateTemplateInput")).Return(&cloudformation.ValidateTemplateOutput{}, nil)

	c.On("DescribeStacksWithContext", &cloudformation.DescribeStacksInput{
		StackName: aws.String("acme"),
	}).Return(nil, awserr.New("ValidationError", fmt.Sprintf("Stack with id %s does not exist", "acme"), nil)).Once()

	c.On("CreateStackWithContext", mock.AnythingOfType("*cloudformation.CreateStackInput")).Return(&cloudformation.CreateStackOutput{}, nil)
	c.On("WaitUntilStackCreateCompleteWithContext", &cloudformation.DescribeStacksInput{
		StackName: aws.String("acme"),
	}).Return(nil)

	c.On("DescribeStacksWithContext", &cloudformation.DescribeStacksInput{
		StackName: aws.String("acme"),
	}).Return(describedStack("d-ABCDEF12"), nil)

	err := a.Apply(ctx, stack)
	assert.NoError(t, err)

	id, err := d.DeploymentID().Value()
	assert.NoError(t, err)
	assert.Equal(t, "d-ABCDEF12", id)

	c.AssertExpectations(t)
	b.AssertExpectations(t)
}

func TestApplier_Apply_Update(t *testing.T) {
	stack, d := newTestStack(t)
	c := new(mockCloudFormationClient)
	b := new(mockS3Client)
	a := &Applier{
		Bucket:         "bucket",
		cloudformation: c,
		s3:             b,
	}

	b.On("PutObjectWithContext", mock.AnythingOfType("*s3.PutObjectInput")).Return(&s3.PutObjectOutput{}, nil)
	c.On("ValidateTemplateWithContext", mock.AnythingOfType("*cloudformation.ValidateTemplateInput")).Return(&cloudformation.ValidateTemplateOutput{}, nil)
	c.On("DescribeStacksWithContext", &cloudformation.DescribeStacksInput{
		StackName: aws.String("acme"),
	}).Return(describedStack("d-ABCDEF12"), nil)
	c.On("UpdateStackWithContext", mock.AnythingOfType("*cloudformation.UpdateStackInput")).Return(&cloudformation.UpdateStackOutput{}, nil)
	c.On("WaitUntilStackUpdateCompleteWithContext", &cloudformation.DescribeStacksInput{
		StackName: aws.String("acme"),
	}).Return(nil)

	err := a.Apply(ctx, stack)
	assert.NoError(t, err)

	id, err := d.DeploymentID().Value()
	assert.NoError(t, err)
	assert.Equal(t, "d-ABCDEF12", id)

	c.AssertExpectations(t)
}

func TestApplier_Apply_UpdateNoChanges(t *testing.T) {
	stack, d := newTestStack(t)
	c := new(mockCloudFormationClient)
	b := new(mockS3Client)
	a := &Applier{
		Bucket:         "bucket",
		cloudformation: c,
		s3:             b,
	}

	b.On("PutObjectWithContext", mock.AnythingOfType("*s3.PutObjectInput")).Return(&s3.PutObjectOutput{}, nil)
	c.On("ValidateTemplateWithContext", mock.AnythingOfType("*cloudformation.ValidateTemplateInput")).Return(&cloudformation.ValidateTemplateOutput{}, nil)
	c.On("DescribeStacksWithContext", &cloudformation.DescribeStacksInput{
		StackName: aws.String("acme"),
	}).Return(describedStack("d-ABCDEF12"), nil)
	c.On("UpdateStackWithContext", mock.AnythingOfType("*cloudformation.UpdateStackInput")).Return(nil, awserr.New("ValidationError", "No updates are to be performed.", nil))

	// No waiter call; the attributes still resolve.
	err := a.Apply(ctx, stack)
	assert.NoError(t, err)

	id, err := d.DeploymentID().Value()
	assert.NoError(t, err)
	assert.Equal(t, "d-ABCDEF12", id)

	c.AssertExpectations(t)
	c.AssertNotCalled(t, "WaitUntilStackUpdateCompleteWithContext", mock.Anything)
}

func newTestStack(t testing.TB) (*Stack, *Deployment) {
	stack := NewStack("acme")
	d, err := NewDeployment(stack, DeploymentProps{
		Group:   testGroup(),
		AppSpec: StaticAppSpec("spec-content"),
	})
	assert.NoError(t, err)
	return stack, d
}

func describedStack(deploymentID string) *cloudformation.DescribeStacksOutput {
	return &cloudformation.DescribeStacksOutput{
		Stacks: []*cloudformation.Stack{
			{
				StackName: aws.String("acme"),
				Outputs: []*cloudformation.Output{
					{
						OutputKey:   aws.String("App1Grp1DeploymentDeploymentId"),
						OutputValue: aws.String(deploymentID),
					},
				},
			},
		},
	}
}

type mockCloudFormationClient struct {
	mock.Mock
}

func (m *mockCloudFormationClient) CreateStackWithContext(_ aws.Context, input *cloudformation.CreateStackInput, _ ...request.Option) (*cloudformation.CreateStackOutput, error) {
	args := m.Called(input)
	out, _ := args.Get(0).(*cloudformation.CreateStackOutput)
	return out, args.Error(1)
}

func (m *mockCloudFormationClient) UpdateStackWithContext(_ aws.Context, input *cloudformation.UpdateStackInput, _ ...request.Option) (*cloudformation.UpdateStackOutput, error) {
	args := m.Called(input)
	out, _ := args.Get(0).(*cloudformation.UpdateStackOutput)
	return out, args.Error(1)
}

func (m *mockCloudFormationClient) DescribeStacksWithContext(_ aws.Context, input *cloudformation.DescribeStacksInput, _ ...request.Option) (*cloudformation.DescribeStacksOutput, error) {
	args := m.Called(input)
	out, _ := args.Get(0).(*cloudformation.DescribeStacksOutput)
	return out, args.Error(1)
}

func (m *mockCloudFormationClient) ValidateTemplateWithContext(_ aws.Context, input *cloudformation.ValidateTemplateInput, _ ...request.Option) (*cloudformation.ValidateTemplateOutput, error) {
	args := m.Called(input)
	out, _ := args.Get(0).(*cloudformation.ValidateTemplateOutput)
	return out, args.Error(1)
}

func (m *mockCloudFormationClient) WaitUntilStackCreateCompleteWithContext(_ aws.Context, input *cloudformation.DescribeStacksInput, _ ...request.WaiterOption) error {
	args := m.Called(input)
	return args.Error(0)
}

func (m *mockCloudFormationClient) WaitUntilStackUpdateCompleteWithContext(_ aws.Context, input *cloudformation.DescribeStacksInput, _ ...request.WaiterOption) error {
	args := m.Called(input)
	return args.Error(0)
}

type mockS3Client struct {
	mock.Mock
}

func (m *mockS3Client) PutObjectWithContext(_ aws.Context, input *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	args := m.Called(input)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}
