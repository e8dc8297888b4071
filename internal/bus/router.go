package bus

import (
	"fmt"
	"sync"
)

// RouteOutcome describes what happened to one routed message.
type RouteOutcome struct {
	DeliveredTo []AgentId
	QueuedFor   []AgentId
	Dropped     bool
	Reason      string
}

// topicSubscriptions maps a topic name to its subscribed agent ids.
type topicSubscriptions struct {
	subs map[string][]AgentId
}

func newTopicSubscriptions() *topicSubscriptions {
	return &topicSubscriptions{subs: make(map[string][]AgentId)}
}

func (t *topicSubscriptions) subscribe(topic string, agent AgentId) {
	for _, a := range t.subs[topic] {
		if a == agent {
			return
		}
	}
	t.subs[topic] = append(t.subs[topic], agent)
}

func (t *topicSubscriptions) unsubscribe(topic string, agent AgentId) {
	entry := t.subs[topic]
	out := entry[:0]
	for _, a := range entry {
		if a != agent {
			out = append(out, a)
		}
	}
	t.subs[topic] = out
}

func (t *topicSubscriptions) subscribers(topic string) []AgentId {
	return append([]AgentId(nil), t.subs[topic]...)
}

// BusEventKind classifies what happened to a routed Envelope.
type BusEventKind string

const (
	BusEventDelivered BusEventKind = "delivered"
	BusEventQueued    BusEventKind = "queued"
	BusEventDropped   BusEventKind = "dropped"
)

// BusEvent is emitted once per routed Envelope, giving an external observer
// (the out-of-scope agent-stream HTTP surface) a feed to attach to.
type BusEvent struct {
	Kind    BusEventKind
	Message Envelope
	To      []AgentId
	Reason  string
}

// Router delivers Envelopes to per-agent mailboxes, resolving Agent/Role/
// Team/Broadcast/Topic targets against an AgentRegistry. Online and busy
// agents are considered delivered; anyone else is queued until they next
// poll. Role targets are the exception: the message goes to the first
// online agent with the role, and otherwise is queued for the first agent
// with the role, busy or not. Grounded on
// original_source/agent_bus/router.rs's MessageRouter.
type Router struct {
	mu        sync.Mutex
	mailboxes map[AgentId]*mailbox
	topics    *topicSubscriptions
	registry  *AgentRegistry
	events    chan BusEvent
}

// NewRouter builds a Router backed by the given registry. events is a
// buffered channel of capacity 256 that receives a BusEvent for
// every routed message; a full channel drops the event rather than
// blocking the router.
func NewRouter(registry *AgentRegistry) *Router {
	return &Router{
		mailboxes: make(map[AgentId]*mailbox),
		topics:    newTopicSubscriptions(),
		registry:  registry,
		events:    make(chan BusEvent, 256),
	}
}

// Events returns the channel of BusEvents produced as messages are routed.
func (r *Router) Events() <-chan BusEvent {
	return r.events
}

func (r *Router) publish(ev BusEvent) {
	select {
	case r.events <- ev:
	default:
	}
}

// Subscribe adds agent to topic's subscriber list.
func (r *Router) Subscribe(topic string, agent AgentId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics.subscribe(topic, agent)
}

// Unsubscribe removes agent from topic's subscriber list.
func (r *Router) Unsubscribe(topic string, agent AgentId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics.unsubscribe(topic, agent)
}

// Route delivers msg according to its target, consulting the registry for
// liveness and role/team membership.
func (r *Router) Route(msg Envelope) (RouteOutcome, error) {
	out, err := r.route(msg)
	if err != nil {
		return out, err
	}
	r.publishOutcome(msg, out)
	return out, nil
}

func (r *Router) route(msg Envelope) (RouteOutcome, error) {
	if msg.IsExpired() {
		return RouteOutcome{Dropped: true, Reason: "message expired"}, nil
	}

	switch msg.To.Kind {
	case TargetAgent:
		return r.routeToAgent(msg, msg.To.Agent)
	case TargetRole:
		return r.routeToRole(msg, msg.To.Role)
	case TargetTeam:
		agents, err := r.registry.AgentsByTeam(msg.To.Team)
		if err != nil {
			return RouteOutcome{}, err
		}
		return r.routeToMany(msg, idsOf(agents))
	case TargetBroadcast:
		agents, err := r.registry.ListAgents(nil)
		if err != nil {
			return RouteOutcome{}, err
		}
		var targets []AgentId
		for _, a := range agents {
			if a.ID != msg.From {
				targets = append(targets, a.ID)
			}
		}
		return r.routeToMany(msg, targets)
	case TargetTopic:
		r.mu.Lock()
		subs := r.topics.subscribers(msg.To.Topic)
		r.mu.Unlock()
		return r.routeToMany(msg, subs)
	default:
		return RouteOutcome{Dropped: true, Reason: "unknown target kind"}, nil
	}
}

func (r *Router) publishOutcome(msg Envelope, out RouteOutcome) {
	if out.Dropped {
		r.publish(BusEvent{Kind: BusEventDropped, Message: msg, Reason: out.Reason})
		return
	}
	if len(out.DeliveredTo) > 0 {
		r.publish(BusEvent{Kind: BusEventDelivered, Message: msg, To: out.DeliveredTo})
	}
	if len(out.QueuedFor) > 0 {
		r.publish(BusEvent{Kind: BusEventQueued, Message: msg, To: out.QueuedFor})
	}
}

// Receive pops the next (highest-priority, oldest) message for agent.
func (r *Router) Receive(agent AgentId) (Envelope, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mb, ok := r.mailboxes[agent]
	if !ok {
		return Envelope{}, false
	}
	return mb.pop()
}

// ReceiveAll drains every pending message for agent, in delivery order.
func (r *Router) ReceiveAll(agent AgentId) []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	mb, ok := r.mailboxes[agent]
	if !ok {
		return nil
	}
	return mb.drainAll()
}

// PendingCount reports how many messages are queued for agent.
func (r *Router) PendingCount(agent AgentId) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mb, ok := r.mailboxes[agent]; ok {
		return mb.len()
	}
	return 0
}

func (r *Router) routeToAgent(msg Envelope, target AgentId) (RouteOutcome, error) {
	rec, err := r.registry.GetAgent(target)
	if err != nil {
		return RouteOutcome{}, err
	}
	if rec == nil {
		return RouteOutcome{Dropped: true, Reason: fmt.Sprintf("agent %s not found", target)}, nil
	}

	r.enqueue(target, msg)
	if rec.Status == AgentOnline || rec.Status == AgentBusy {
		return RouteOutcome{DeliveredTo: []AgentId{target}}, nil
	}
	return RouteOutcome{QueuedFor: []AgentId{target}}, nil
}

func (r *Router) routeToRole(msg Envelope, role AgentRole) (RouteOutcome, error) {
	candidates, err := r.registry.AgentsByRole(role)
	if err != nil {
		return RouteOutcome{}, err
	}
	for _, a := range candidates {
		if a.Status == AgentOnline {
			r.enqueue(a.ID, msg)
			return RouteOutcome{DeliveredTo: []AgentId{a.ID}}, nil
		}
	}
	if len(candidates) > 0 {
		first := candidates[0]
		r.enqueue(first.ID, msg)
		return RouteOutcome{QueuedFor: []AgentId{first.ID}}, nil
	}
	return RouteOutcome{Dropped: true, Reason: fmt.Sprintf("no agents with role %s", role)}, nil
}

func (r *Router) routeToMany(msg Envelope, targets []AgentId) (RouteOutcome, error) {
	var delivered, queued []AgentId
	for _, target := range targets {
		rec, err := r.registry.GetAgent(target)
		if err != nil {
			return RouteOutcome{}, err
		}
		if rec == nil {
			continue
		}
		r.enqueue(target, msg)
		if rec.Status == AgentOnline || rec.Status == AgentBusy {
			delivered = append(delivered, target)
		} else {
			queued = append(queued, target)
		}
	}

	out := RouteOutcome{DeliveredTo: delivered, QueuedFor: queued}
	if len(delivered) == 0 && len(queued) == 0 {
		out.Dropped = true
		out.Reason = "no valid targets"
	}
	return out, nil
}

func (r *Router) enqueue(agent AgentId, msg Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mb, ok := r.mailboxes[agent]
	if !ok {
		mb = &mailbox{}
		r.mailboxes[agent] = mb
	}
	mb.push(msg)
}

func idsOf(records []AgentRecord) []AgentId {
	out := make([]AgentId, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
