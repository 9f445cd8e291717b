//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"strings"

	"google.golang.org/grpc/metadata"
)

// ActorMetadataKey carries the calling actor in gRPC metadata.
const ActorMetadataKey = "x-security-actor"

// Actor identifies who issued a request.
type Actor struct {
	// Hostname is the machine the request came from.
	Hostname string
	// Username is the OS user that issued the request.
	Username string
}

// String renders the actor as "user@host".
func (a Actor) String() string {
	return a.Username + "@" + a.Hostname
}

// ParseActor reverses Actor.String.
func ParseActor(s string) (Actor, bool) {
	username, hostname, ok := strings.Cut(s, "@")
	if !ok || username == "" || hostname == "" {
		return Actor{}, false
	}

	return Actor{
		Hostname: hostname,
		Username: username,
	}, true
}

// DetectActor gathers host and user information for audit trail.
func DetectActor() (Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return Actor{}, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return Actor{}, fmt.Errorf("current user: %w", err)
	}

	return Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}

// ActorFromIncomingContext extracts the actor a client attached to the call.
func ActorFromIncomingContext(ctx context.Context) (Actor, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return Actor{}, false
	}

	values := md.Get(ActorMetadataKey)
	if len(values) == 0 {
		return Actor{}, false
	}

	return ParseActor(values[0])
}
