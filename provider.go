package ecsdeploy

import (
	"time"

	"github.com/remind101/ecsdeploy/pkg/troposphere"
)

// Provider is the deployment provider for a single deployment group. It owns
// the messaging resources that deliver custom resource requests to the
// external provider process: an SNS topic that CloudFormation publishes to,
// and an SQS queue the provider consumes, wired together with a subscription
// and a queue policy.
//
// The provider process itself (polling CodeDeploy, executing rollbacks,
// honoring the timeout) is not part of this package.
type Provider struct {
	group   DeploymentGroup
	timeout time.Duration

	topic troposphere.NamedResource
	queue troposphere.NamedResource
}

// ServiceToken returns the in-template reference to the provider's endpoint,
// suitable as the ServiceToken of a custom resource.
func (p *Provider) ServiceToken() interface{} {
	return troposphere.Ref(p.topic)
}

// Timeout returns the deployment timeout forwarded to the provider.
func (p *Provider) Timeout() time.Duration {
	return p.timeout
}

// provider returns the deployment provider scoped to the given deployment
// group, creating it and its supporting resources on first use.
func (s *Stack) provider(group DeploymentGroup, timeout time.Duration) (*Provider, error) {
	key := groupKey(group)
	if p, ok := s.providers[key]; ok {
		return p, nil
	}

	prefix := logicalID(group.ApplicationName(), group.DeploymentGroupName(), "Provider")

	p := &Provider{
		group:   group,
		timeout: timeout,
		topic: troposphere.NamedResource{
			Name: prefix + "Topic",
			Resource: troposphere.Resource{
				Type: "AWS::SNS::Topic",
			},
		},
	}
	p.queue = troposphere.NamedResource{
		Name: prefix + "Queue",
		Resource: troposphere.Resource{
			Type: "AWS::SQS::Queue",
			Properties: map[string]interface{}{
				// The provider has this long to finish a deployment
				// before the request is considered abandoned and
				// redelivered.
				"VisibilityTimeout": int(timeout / time.Second),
			},
		},
	}

	policy := troposphere.NamedResource{
		Name: prefix + "QueuePolicy",
		Resource: troposphere.Resource{
			Type: "AWS::SQS::QueuePolicy",
			Properties: map[string]interface{}{
				"Queues": []interface{}{troposphere.Ref(p.queue)},
				"PolicyDocument": map[string]interface{}{
					"Version": "2012-10-17",
					"Statement": []interface{}{
						map[string]interface{}{
							"Effect":    "Allow",
							"Principal": map[string]interface{}{"Service": "sns.amazonaws.com"},
							"Action":    "sqs:SendMessage",
							"Resource":  troposphere.GetAtt(p.queue, "Arn"),
							"Condition": map[string]interface{}{
								"ArnEquals": map[string]interface{}{
									"aws:SourceArn": troposphere.Ref(p.topic),
								},
							},
						},
					},
				},
			},
		},
	}

	subscription := troposphere.NamedResource{
		Name: prefix + "Subscription",
		Resource: troposphere.Resource{
			Type: "AWS::SNS::Subscription",
			Properties: map[string]interface{}{
				"TopicArn": troposphere.Ref(p.topic),
				"Protocol": "sqs",
				"Endpoint": troposphere.GetAtt(p.queue, "Arn"),
			},
		},
	}

	for _, resource := range []troposphere.NamedResource{p.topic, p.queue, policy, subscription} {
		if err := s.template.AddResource(resource); err != nil {
			return nil, err
		}
	}

	s.providers[key] = p
	return p, nil
}
