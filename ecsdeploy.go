// Package ecsdeploy defines CodeDeploy ECS deployments as CloudFormation
// custom resources. The heavy lifting (creating the deployment, polling it,
// rolling it back) is done by an external deployment provider; this package
// only translates typed configuration into the property bag that provider
// expects, and hands back a deferred deployment id.
package ecsdeploy

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ResourceType is the custom resource type tag deployments are registered
// under.
const ResourceType = "Custom::EcsDeployment"

// DefaultTimeout is how long the provider is given to complete a deployment
// when no timeout is configured.
const DefaultTimeout = 30 * time.Minute

// Rollback trigger events understood by the deployment provider.
const (
	stopOnAlarm   = "DEPLOYMENT_STOP_ON_ALARM"
	stopOnFailure = "DEPLOYMENT_STOP_ON_DEPLOYMENT_FAILURE"
	stopOnRequest = "DEPLOYMENT_STOP_ON_REQUEST"
)

// AutoRollback configures which events roll the deployment back
// automatically.
type AutoRollback struct {
	// Roll back when a CloudWatch alarm attached to the deployment group
	// fires.
	DeploymentInAlarm bool

	// Roll back when the deployment fails.
	FailedDeployment bool

	// Roll back when the deployment is stopped manually.
	StoppedDeployment bool
}

// events returns the rollback trigger events in a fixed order (alarm,
// failure, stopped) so the joined string is reproducible. The provider
// treats them as a set. A nil AutoRollback means no triggers.
func (c *AutoRollback) events() []string {
	var events []string
	if c == nil {
		return events
	}
	if c.DeploymentInAlarm {
		events = append(events, stopOnAlarm)
	}
	if c.FailedDeployment {
		events = append(events, stopOnFailure)
	}
	if c.StoppedDeployment {
		events = append(events, stopOnRequest)
	}
	return events
}

// DeploymentProps is the configuration for a Deployment.
type DeploymentProps struct {
	// Group is the deployment group to deploy into. Required.
	Group DeploymentGroup

	// AppSpec produces the AppSpec revision to deploy. Required.
	AppSpec AppSpec

	// AutoRollback configures automatic rollback triggers. When nil, no
	// triggers are configured.
	AutoRollback *AutoRollback

	// Description is attached to the deployment.
	Description string

	// Timeout is how long the provider may take before considering the
	// deployment failed. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// Deployment represents a single deployment of an ECS service through
// CodeDeploy. At most one Deployment can exist per deployment group.
type Deployment struct {
	group DeploymentGroup
	id    *Attribute
}

// DeploymentID returns the handle to the deployment id. The value is only
// available after the stack is applied.
func (d *Deployment) DeploymentID() *Attribute {
	return d.id
}

// NewDeployment registers a deployment for the given deployment group on the
// stack. It returns a DuplicateDeploymentError if the group already has one.
func NewDeployment(stack *Stack, props DeploymentProps) (*Deployment, error) {
	if props.Group == nil {
		return nil, errors.New("ecsdeploy: a deployment group is required")
	}
	if props.AppSpec == nil {
		return nil, errors.New("ecsdeploy: an appspec is required")
	}

	key := groupKey(props.Group)
	if _, ok := stack.deployments[key]; ok {
		return nil, &DuplicateDeploymentError{
			ApplicationName:     props.Group.ApplicationName(),
			DeploymentGroupName: props.Group.DeploymentGroupName(),
		}
	}

	content, err := props.AppSpec.Render()
	if err != nil {
		return nil, fmt.Errorf("ecsdeploy: %v", err)
	}

	timeout := props.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	provider, err := stack.provider(props.Group, timeout)
	if err != nil {
		return nil, err
	}

	id := logicalID(props.Group.ApplicationName(), props.Group.DeploymentGroupName(), "Deployment")
	attr, err := stack.addCustomResource(id, ResourceType, provider.ServiceToken(), deploymentRequest(props.Group, content, props.AutoRollback, props.Description), "deploymentId")
	if err != nil {
		return nil, err
	}

	d := &Deployment{
		group: props.Group,
		id:    attr,
	}
	stack.deployments[key] = d

	return d, nil
}

// deploymentRequest builds the flat property bag the deployment provider
// parses. Key names and the comma joined events string are a wire contract;
// don't change them.
func deploymentRequest(group DeploymentGroup, appSpec string, rollback *AutoRollback, description string) map[string]string {
	events := rollback.events()

	req := map[string]string{
		"applicationName":                  group.ApplicationName(),
		"deploymentConfigName":             group.DeploymentConfig().DeploymentConfigName(),
		"deploymentGroupName":              group.DeploymentGroupName(),
		"autoRollbackConfigurationEnabled": strconv.FormatBool(len(events) > 0),
		"autoRollbackConfigurationEvents":  strings.Join(events, ","),
		"revisionAppSpecContent":           appSpec,
	}
	if description != "" {
		req["description"] = description
	}

	return req
}
