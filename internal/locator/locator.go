// Package locator works out the base URL of the image service, either from an
// explicit URL or from the host port a Docker container publishes.
package locator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrNoTarget is returned when neither a URL nor a container name is given.
var ErrNoTarget = errors.New("either url or container name must be provided")

// Options describe where the service lives.
type Options struct {
	URL           string
	ContainerName string
	Port          int // fallback localhost port
	ContainerPort int // container port whose host binding is used
}

// ContainerInfo is the subset of container state the locator needs.
type ContainerInfo struct {
	Running bool
	// Ports maps "80/tcp" style keys to the host ports bound to them.
	Ports map[string][]string
}

// Inspector looks up a container by name.
type Inspector interface {
	Inspect(ctx context.Context, name string) (ContainerInfo, error)
}

// Locator resolves base URLs.
type Locator struct {
	inspector Inspector
	log       logrus.FieldLogger
}

// New returns a Locator. A nil inspector makes every container lookup fall
// back to localhost.
func New(inspector Inspector, log logrus.FieldLogger) *Locator {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	return &Locator{inspector: inspector, log: log}
}

// Resolve returns the base URL without a trailing slash. An explicit URL wins.
// Otherwise the container's published port is used; a missing, stopped or
// unpublished container falls back to http://localhost:<Port> with a warning.
func (l *Locator) Resolve(ctx context.Context, opts Options) (string, error) {
	if u := strings.TrimSpace(opts.URL); u != "" {
		return strings.TrimRight(u, "/"), nil
	}
	name := strings.TrimSpace(opts.ContainerName)
	if name == "" {
		return "", ErrNoTarget
	}

	fallback := localURL(opts.Port)
	log := l.log.WithFields(logrus.Fields{"container": name, "fallback": fallback})

	if l.inspector == nil {
		log.Warn("docker is unavailable; using fallback URL")
		return fallback, nil
	}

	info, err := l.inspector.Inspect(ctx, name)
	if err != nil {
		log.WithError(err).Warn("container not found; using fallback URL")
		return fallback, nil
	}
	if !info.Running {
		log.Warn("container is not running; using fallback URL")
		return fallback, nil
	}

	key := portKey(opts.ContainerPort)
	for _, hostPort := range info.Ports[key] {
		if hostPort != "" {
			return "http://localhost:" + hostPort, nil
		}
	}
	log.WithField("port", key).Warn("container port is not published; using fallback URL")
	return fallback, nil
}

func portKey(containerPort int) string {
	if containerPort <= 0 {
		containerPort = 80
	}
	return strconv.Itoa(containerPort) + "/tcp"
}

func localURL(port int) string {
	if port <= 0 {
		port = 80
	}
	return fmt.Sprintf("http://localhost:%d", port)
}
