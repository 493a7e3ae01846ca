package deploy

import (
	"context"

	"github.com/alexisbeaulieu97/deployline/internal/ports"
)

// runEvent is the payload carrier for deploy.* events.
type runEvent struct {
	name   string
	fields map[string]interface{}
}

func (e runEvent) EventType() string    { return e.name }
func (e runEvent) Payload() interface{} { return e.fields }

// emit publishes a deploy.* event tagged with the project and deploy
// environment. Publisher failures are logged and otherwise ignored.
func (o *Orchestrator) emit(ctx context.Context, name string, fields map[string]interface{}) {
	if o.events == nil {
		return
	}
	payload := map[string]interface{}{"project": o.deployment.Project.Name}
	if env := o.deployment.DeployConfig.Environment(); env != "" {
		payload["environment"] = env
	}
	for key, value := range fields {
		payload[key] = value
	}
	if err := o.events.Publish(ctx, runEvent{name: name, fields: payload}); err != nil {
		o.logger.Warn(ctx, "failed to publish domain event", "event_type", name, "error", err)
	}
}

var _ ports.DomainEvent = runEvent{}
