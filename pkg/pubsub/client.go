// Package pubsub connects to Google Cloud Pub/Sub for the outbox publisher.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	gax "github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoOrdersTopic     = errors.New("pubsub orders topic is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// topicGetter is the slice of the topic admin API used for readiness checks.
type topicGetter interface {
	GetTopic(context.Context, *pubsubpb.GetTopicRequest, ...gax.CallOption) (*pubsubpb.Topic, error)
}

// Client hands out one long-lived Publisher per topic. Publishers batch in
// the background, so they are cached and stopped on Close.
type Client struct {
	client  *pubsub.Client
	admin   topicGetter
	project string
	orders  string

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	orders := strings.TrimSpace(cfg.OrdersTopic)
	if orders == "" {
		return nil, errNoOrdersTopic
	}

	raw, err := pubsub.NewClient(ctx, project, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	c := &Client{
		client:     raw,
		admin:      raw.TopicAdminClient,
		project:    project,
		orders:     orders,
		publishers: map[string]*pubsub.Publisher{},
	}
	if err := c.Ping(ctx); err != nil {
		return nil, errors.Join(err, raw.Close())
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"gcp_project": project, "orders_topic": orders}), "pubsub ready")
	}
	return c, nil
}

// clientOptions prefers inline credentials over a key file. With neither set
// the library falls back to ADC or PUBSUB_EMULATOR_HOST.
func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	if js := strings.TrimSpace(gcp.CredentialsJSON); js != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(js))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// Ping confirms the orders topic exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.admin == nil {
		return errNotInitialized
	}
	_, err := c.admin.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: topicResourceName(c.project, c.orders)})
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("topic %q does not exist in project %s", c.orders, c.project)
	default:
		return fmt.Errorf("get topic %q: %w", c.orders, err)
	}
}

// Publisher accepts a short topic ID or a full resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	full := topicResourceName(c.project, name)
	if full == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.publishers[full]; ok {
		return p
	}
	p := c.client.Publisher(full)
	c.publishers[full] = p
	return p
}

// Close flushes pending publishes before closing the connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	for _, p := range c.publishers {
		p.Stop()
	}
	c.publishers = map[string]*pubsub.Publisher{}
	c.mu.Unlock()
	return c.client.Close()
}

func topicResourceName(project, name string) string {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return ""
	case strings.HasPrefix(name, "projects/") && strings.Contains(name, "/topics/"):
		return name
	case strings.TrimSpace(project) == "":
		return ""
	}
	return "projects/" + strings.TrimSpace(project) + "/topics/" + name
}
