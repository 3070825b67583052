// Package aws implements the provider adapter for Amazon EC2.
//
// Deploy creates one EC2 instance per requested node, all in parallel, each
// tagged with the deployment identifier so Destroy can rediscover them
// through the EC2 tag index instead of a locally stored list.
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/meridian-cp/meridian/internal/providers/bootstrap"
	"github.com/meridian-cp/meridian/internal/providers/kubeconfig"
	"github.com/meridian-cp/meridian/internal/providers/types"
	"github.com/meridian-cp/meridian/internal/util/async"
	"github.com/meridian-cp/meridian/internal/util/keygen"
	"github.com/meridian-cp/meridian/internal/util/naming"
	"github.com/meridian-cp/meridian/internal/util/tags"
)

const (
	defaultMachineType = "t3.medium"
	defaultImageID     = "ami-0e2c8caa4b6378d8c" // Ubuntu 24.04 LTS
	sshUser            = "ubuntu"
)

// API is the subset of the EC2 API the adapter uses.
type API interface {
	RunInstances(ctx context.Context, params *ec2.RunInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error)
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	TerminateInstances(ctx context.Context, params *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error)
	ImportKeyPair(ctx context.Context, params *ec2.ImportKeyPairInput, optFns ...func(*ec2.Options)) (*ec2.ImportKeyPairOutput, error)
	DeleteKeyPair(ctx context.Context, params *ec2.DeleteKeyPairInput, optFns ...func(*ec2.Options)) (*ec2.DeleteKeyPairOutput, error)
}

// Adapter provisions EC2 instances.
type Adapter struct {
	ec2 API
	log logr.Logger
}

// New creates an Adapter authenticated with static credentials.
func New(ctx context.Context, creds types.Credentials, region string, log logr.Logger) (*Adapter, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, "")),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Adapter{
		ec2: ec2.NewFromConfig(cfg),
		log: log.WithName("aws"),
	}, nil
}

// keyPairName names the EC2 key pair registered for one deployment.
func keyPairName(deploymentID string) string {
	return "meridian-" + deploymentID
}

// Deploy creates spec.NodeCount instances concurrently, all tagged with a
// fresh deployment identifier. Partially created instances are not rolled
// back on failure; they stay discoverable by deployment tag.
func (a *Adapter) Deploy(ctx context.Context, spec types.NodeSpec) (*types.Result, error) {
	deploymentID := uuid.NewString()
	log := a.log.WithValues("cluster", spec.ClusterName, "deployment", deploymentID)

	details := map[string]string{"sshUser": sshUser}
	publicKey := spec.SSHPublicKey
	if publicKey == "" {
		keyPair, err := keygen.GenerateRSAKeyPair(keygen.DefaultBits)
		if err != nil {
			return nil, &types.DeployError{Provider: types.KindAWS, DeploymentID: deploymentID, Wanted: spec.NodeCount, Err: err}
		}
		publicKey = keyPair.PublicKeyString()
		details[types.DetailSSHPrivateKey] = string(keyPair.PrivateKey)
	}

	deployTags := toEC2Tags(tags.ForDeployment(deploymentID, spec.ClusterName))

	if _, err := a.ec2.ImportKeyPair(ctx, &ec2.ImportKeyPairInput{
		KeyName:           aws.String(keyPairName(deploymentID)),
		PublicKeyMaterial: []byte(publicKey),
		TagSpecifications: []ec2types.TagSpecification{{
			ResourceType: ec2types.ResourceTypeKeyPair,
			Tags:         deployTags,
		}},
	}); err != nil {
		return nil, &types.DeployError{Provider: types.KindAWS, DeploymentID: deploymentID, Wanted: spec.NodeCount, Err: fmt.Errorf("failed to import key pair: %w", err)}
	}

	log.Info("creating instances", "count", spec.NodeCount)
	nodes, createErr := a.createInstances(ctx, spec, deploymentID, deployTags)
	if createErr != nil {
		created := 0
		for _, n := range nodes {
			if n.InstanceID != "" {
				created++
			}
		}
		log.Error(createErr, "instance creation failed", "created", created, "wanted", spec.NodeCount)
		return nil, &types.DeployError{
			Provider:     types.KindAWS,
			DeploymentID: deploymentID,
			Wanted:       spec.NodeCount,
			Created:      created,
			Err:          createErr,
		}
	}

	return &types.Result{
		Success:      true,
		DeploymentID: deploymentID,
		Nodes:        nodes,
		Details:      details,
	}, nil
}

// createInstances issues one RunInstances call per node, all concurrently.
func (a *Adapter) createInstances(ctx context.Context, spec types.NodeSpec, deploymentID string, deployTags []ec2types.Tag) ([]types.Node, error) {
	machineType := spec.MachineType
	if machineType == "" {
		machineType = defaultMachineType
	}
	imageID := spec.Extra("imageId", defaultImageID)
	userData := bootstrap.ScriptBase64(spec.ClusterName)

	indexes := make([]int, spec.NodeCount)
	for i := range indexes {
		indexes[i] = i + 1
	}

	return async.CollectParallel(ctx, indexes, func(ctx context.Context, index int) (types.Node, error) {
		name := naming.Node(spec.ClusterName, index)

		input := &ec2.RunInstancesInput{
			ImageId:      aws.String(imageID),
			InstanceType: ec2types.InstanceType(machineType),
			MinCount:     aws.Int32(1),
			MaxCount:     aws.Int32(1),
			KeyName:      aws.String(keyPairName(deploymentID)),
			UserData:     aws.String(userData),
			TagSpecifications: []ec2types.TagSpecification{{
				ResourceType: ec2types.ResourceTypeInstance,
				Tags: append([]ec2types.Tag{
					{Key: aws.String("Name"), Value: aws.String(name)},
				}, deployTags...),
			}},
		}
		if subnet := spec.Extra("subnetId", ""); subnet != "" {
			input.SubnetId = aws.String(subnet)
		}

		out, err := a.ec2.RunInstances(ctx, input)
		if err != nil {
			return types.Node{}, fmt.Errorf("failed to create instance %s: %w", name, err)
		}
		if len(out.Instances) == 0 {
			return types.Node{}, fmt.Errorf("instance %s: provider returned no instance", name)
		}

		inst := out.Instances[0]
		return types.Node{
			InstanceID:  aws.ToString(inst.InstanceId),
			Name:        name,
			PrivateAddr: aws.ToString(inst.PrivateIpAddress),
			PublicAddr:  aws.ToString(inst.PublicIpAddress),
			State:       types.NodeStatePending,
		}, nil
	})
}

// Destroy terminates every instance tagged with the deployment identifier and
// removes the deployment's key pair. EC2's tag index is region-global, so the
// stored result only contributes the deployment identifier. Calling it on an
// already-empty deployment succeeds with count 0.
func (a *Adapter) Destroy(ctx context.Context, result *types.Result) (*types.DestroyOutcome, error) {
	deploymentID := result.DeploymentID
	selector := tags.SelectorForDeployment(deploymentID)
	filters := make([]ec2types.Filter, 0, len(selector)+1)
	for key, value := range selector {
		filters = append(filters, ec2types.Filter{
			Name:   aws.String("tag:" + key),
			Values: []string{value},
		})
	}
	filters = append(filters, ec2types.Filter{
		Name:   aws.String("instance-state-name"),
		Values: []string{"pending", "running", "stopping", "stopped"},
	})

	var instanceIDs []string
	var nextToken *string
	for {
		out, err := a.ec2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
			Filters:   filters,
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to discover instances for deployment %s: %w", deploymentID, err)
		}
		for _, reservation := range out.Reservations {
			for _, inst := range reservation.Instances {
				instanceIDs = append(instanceIDs, aws.ToString(inst.InstanceId))
			}
		}
		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	// Best effort: the key pair may already be gone.
	_, _ = a.ec2.DeleteKeyPair(ctx, &ec2.DeleteKeyPairInput{
		KeyName: aws.String(keyPairName(deploymentID)),
	})

	if len(instanceIDs) == 0 {
		return &types.DestroyOutcome{Success: true, Count: 0}, nil
	}

	if _, err := a.ec2.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: instanceIDs,
	}); err != nil {
		return nil, fmt.Errorf("failed to terminate %d instances for deployment %s: %w",
			len(instanceIDs), deploymentID, err)
	}

	a.log.Info("terminated instances", "deployment", deploymentID, "count", len(instanceIDs))
	return &types.DestroyOutcome{Success: true, Count: len(instanceIDs)}, nil
}

// Kubeconfig reads the cluster's kubeconfig from a representative node.
func (a *Adapter) Kubeconfig(ctx context.Context, result *types.Result) (string, error) {
	auth := kubeconfig.Auth{User: sshUser}
	if result != nil {
		if user := result.Details["sshUser"]; user != "" {
			auth.User = user
		}
		if key := result.Details[types.DetailSSHPrivateKey]; key != "" {
			auth.PrivateKey = []byte(key)
		}
	}
	return kubeconfig.Fetch(ctx, result, auth)
}

func toEC2Tags(in map[string]string) []ec2types.Tag {
	out := make([]ec2types.Tag, 0, len(in))
	for key, value := range in {
		out = append(out, ec2types.Tag{Key: aws.String(key), Value: aws.String(value)})
	}
	return out
}
