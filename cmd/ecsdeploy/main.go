package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/remind101/ecsdeploy"
	"github.com/remind101/pkg/logger"
	"github.com/urfave/cli"
)

const (
	FlagStack           = "stack"
	FlagBucket          = "bucket"
	FlagApp             = "app"
	FlagGroup           = "group"
	FlagConfig          = "deployment.config"
	FlagAppSpec         = "appspec"
	FlagDescription     = "description"
	FlagTimeout         = "timeout"
	FlagRollbackAlarm   = "rollback.alarm"
	FlagRollbackFailure = "rollback.failure"
	FlagRollbackRequest = "rollback.request"
)

var deploymentFlags = []cli.Flag{
	cli.StringFlag{
		Name:   FlagStack,
		Usage:  "The name of the CloudFormation stack holding the deployment",
		EnvVar: "ECSDEPLOY_STACK",
	},
	cli.StringFlag{
		Name:   FlagApp,
		Usage:  "The CodeDeploy application name",
		EnvVar: "ECSDEPLOY_APP",
	},
	cli.StringFlag{
		Name:   FlagGroup,
		Usage:  "The CodeDeploy deployment group name",
		EnvVar: "ECSDEPLOY_GROUP",
	},
	cli.StringFlag{
		Name:   FlagConfig,
		Usage:  "The deployment configuration to deploy with",
		EnvVar: "ECSDEPLOY_DEPLOYMENT_CONFIG",
	},
	cli.StringFlag{
		Name:   FlagAppSpec,
		Usage:  "Path to the serialized AppSpec revision",
		EnvVar: "ECSDEPLOY_APPSPEC",
	},
	cli.StringFlag{
		Name:   FlagDescription,
		Usage:  "A description to attach to the deployment",
		EnvVar: "ECSDEPLOY_DESCRIPTION",
	},
	cli.DurationFlag{
		Name:   FlagTimeout,
		Usage:  "How long the provider may take before the deployment is considered failed",
		EnvVar: "ECSDEPLOY_TIMEOUT",
	},
	cli.BoolFlag{
		Name:  FlagRollbackAlarm,
		Usage: "Roll back when a CloudWatch alarm on the deployment group fires",
	},
	cli.BoolFlag{
		Name:  FlagRollbackFailure,
		Usage: "Roll back when the deployment fails",
	},
	cli.BoolFlag{
		Name:  FlagRollbackRequest,
		Usage: "Roll back when the deployment is stopped manually",
	},
}

// Commands are the subcommands that are available.
var Commands = []cli.Command{
	{
		Name:   "synth",
		Usage:  "Print the CloudFormation template for the deployment",
		Flags:  deploymentFlags,
		Action: runSynth,
	},
	{
		Name:  "deploy",
		Usage: "Apply the deployment stack and wait for the deployment id",
		Flags: append([]cli.Flag{
			cli.StringFlag{
				Name:   FlagBucket,
				Usage:  "The S3 bucket to upload templates to",
				EnvVar: "ECSDEPLOY_TEMPLATE_BUCKET",
			},
		}, deploymentFlags...),
		Action: runDeploy,
	},
}

func main() {
	app := cli.NewApp()
	app.Name = "ecsdeploy"
	app.Usage = "ECS blue/green deployments through CloudFormation custom resources"
	app.Commands = Commands

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runSynth(c *cli.Context) error {
	stack, _, err := newStack(c)
	if err != nil {
		return err
	}

	raw, err := stack.Synth()
	if err != nil {
		return err
	}

	fmt.Println(string(raw))
	return nil
}

func runDeploy(c *cli.Context) error {
	stack, deployment, err := newStack(c)
	if err != nil {
		return err
	}

	bucket := c.String(FlagBucket)
	if bucket == "" {
		return fmt.Errorf("a template bucket is required")
	}

	sess, err := session.NewSession()
	if err != nil {
		return err
	}

	ctx := logger.WithLogger(context.Background(), logger.New(log.New(os.Stdout, "", 0), logger.DEBUG))

	applier := ecsdeploy.NewApplier(sess, bucket)
	if err := applier.Apply(ctx, stack); err != nil {
		return err
	}

	id, err := deployment.DeploymentID().Value()
	if err != nil {
		return err
	}

	fmt.Println(id)
	return nil
}

// newStack builds the deployment stack from the command line flags.
func newStack(c *cli.Context) (*ecsdeploy.Stack, *ecsdeploy.Deployment, error) {
	stackName := c.String(FlagStack)
	if stackName == "" {
		return nil, nil, fmt.Errorf("a stack name is required")
	}
	if c.String(FlagApp) == "" || c.String(FlagGroup) == "" {
		return nil, nil, fmt.Errorf("an application and deployment group are required")
	}
	if c.String(FlagAppSpec) == "" {
		return nil, nil, fmt.Errorf("an appspec file is required")
	}

	group := &ecsdeploy.DeploymentGroupRef{
		Application: c.String(FlagApp),
		Group:       c.String(FlagGroup),
	}
	if config := c.String(FlagConfig); config != "" {
		group.Config = ecsdeploy.DeploymentConfigRef(config)
	}

	var rollback *ecsdeploy.AutoRollback
	if c.Bool(FlagRollbackAlarm) || c.Bool(FlagRollbackFailure) || c.Bool(FlagRollbackRequest) {
		rollback = &ecsdeploy.AutoRollback{
			DeploymentInAlarm: c.Bool(FlagRollbackAlarm),
			FailedDeployment:  c.Bool(FlagRollbackFailure),
			StoppedDeployment: c.Bool(FlagRollbackRequest),
		}
	}

	stack := ecsdeploy.NewStack(stackName)
	deployment, err := ecsdeploy.NewDeployment(stack, ecsdeploy.DeploymentProps{
		Group:        group,
		AppSpec:      ecsdeploy.AppSpecFile(c.String(FlagAppSpec)),
		AutoRollback: rollback,
		Description:  c.String(FlagDescription),
		Timeout:      c.Duration(FlagTimeout),
	})
	if err != nil {
		return nil, nil, err
	}

	return stack, deployment, nil
}
