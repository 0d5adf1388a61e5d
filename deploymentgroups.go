package ecsdeploy

import "fmt"

// DeploymentConfig is a reference to a CodeDeploy deployment configuration,
// which controls how traffic is shifted during the deployment.
type DeploymentConfig interface {
	DeploymentConfigName() string
}

// DeploymentGroup is a reference to the CodeDeploy deployment group that a
// deployment targets. The group itself is defined outside of this package;
// only its identifying names are read.
type DeploymentGroup interface {
	// ApplicationName returns the name of the CodeDeploy application the
	// group belongs to.
	ApplicationName() string

	// DeploymentGroupName returns the name of the deployment group.
	DeploymentGroupName() string

	// DeploymentConfig returns the deployment configuration the group
	// deploys with.
	DeploymentConfig() DeploymentConfig
}

// DeploymentConfigRef names an existing deployment configuration.
type DeploymentConfigRef string

func (r DeploymentConfigRef) DeploymentConfigName() string {
	return string(r)
}

// Deployment configurations that CodeDeploy provides for ECS.
var (
	ECSAllAtOnce                    = DeploymentConfigRef("CodeDeployDefault.ECSAllAtOnce")
	ECSLinear10PercentEvery1Minutes = DeploymentConfigRef("CodeDeployDefault.ECSLinear10PercentEvery1Minutes")
	ECSLinear10PercentEvery3Minutes = DeploymentConfigRef("CodeDeployDefault.ECSLinear10PercentEvery3Minutes")
	ECSCanary10Percent5Minutes      = DeploymentConfigRef("CodeDeployDefault.ECSCanary10Percent5Minutes")
	ECSCanary10Percent15Minutes     = DeploymentConfigRef("CodeDeployDefault.ECSCanary10Percent15Minutes")
)

// DeploymentGroupRef references a deployment group by name.
type DeploymentGroupRef struct {
	Application string
	Group       string
	Config      DeploymentConfig
}

func (r *DeploymentGroupRef) ApplicationName() string {
	return r.Application
}

func (r *DeploymentGroupRef) DeploymentGroupName() string {
	return r.Group
}

// DeploymentConfig returns the configured deployment config, defaulting to
// ECSAllAtOnce, which is also what CodeDeploy defaults to.
func (r *DeploymentGroupRef) DeploymentConfig() DeploymentConfig {
	if r.Config == nil {
		return ECSAllAtOnce
	}
	return r.Config
}

// groupKey returns the identity of a deployment group, used to key the
// deployment and provider registries on a Stack.
func groupKey(group DeploymentGroup) string {
	return fmt.Sprintf("%s/%s", group.ApplicationName(), group.DeploymentGroupName())
}
