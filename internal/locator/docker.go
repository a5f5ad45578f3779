package locator

import (
	"context"
	"fmt"

	"github.com/moby/moby/client"
)

// DockerInspector reads container state from the local Docker daemon.
type DockerInspector struct {
	cli *client.Client
}

// NewDockerInspector connects using the DOCKER_HOST family of environment
// variables and negotiates the API version.
func NewDockerInspector() (*DockerInspector, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	return &DockerInspector{cli: cli}, nil
}

// Inspect implements Inspector.
func (d *DockerInspector) Inspect(ctx context.Context, name string) (ContainerInfo, error) {
	res, err := d.cli.ContainerInspect(ctx, name, client.ContainerInspectOptions{})
	if err != nil {
		return ContainerInfo{}, fmt.Errorf("inspecting container %s: %w", name, err)
	}

	c := res.Container
	info := ContainerInfo{Ports: map[string][]string{}}
	if c.State != nil {
		info.Running = c.State.Running
	}
	if c.NetworkSettings != nil {
		for port, bindings := range c.NetworkSettings.Ports {
			key := fmt.Sprint(port)
			for _, b := range bindings {
				info.Ports[key] = append(info.Ports[key], b.HostPort)
			}
		}
	}
	return info, nil
}

// Close releases the client's connections.
func (d *DockerInspector) Close() error {
	return d.cli.Close()
}
