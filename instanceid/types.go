package instanceid

import (
	"net/http"
	"sort"
)

// Action selects which relationship endpoint a batch request targets
type Action string

const (
	// ActionAdd subscribes tokens to a topic
	ActionAdd Action = "add"
	// ActionRemove unsubscribes tokens from a topic
	ActionRemove Action = "remove"
)

// Path returns the endpoint path for the action
func (a Action) Path() string {
	if a == ActionRemove {
		return "/v1:batchRemove"
	}
	return "/v1:batchAdd"
}

// relationshipRequest is the body of a batchAdd/batchRemove call
type relationshipRequest struct {
	RegistrationTokens []string `json:"registration_tokens"`
	To                 string   `json:"to"`
}

// RelationshipError pairs a per-item error with the token it belongs to
type RelationshipError struct {
	Error             string `json:"error" yaml:"error"`
	RegistrationToken string `json:"registration_token" yaml:"registration_token"`
}

// RelationshipResult is the reshaped response of a batchAdd/batchRemove call.
// Errors is only populated when StatusCode is 200.
type RelationshipResult struct {
	Body       map[string]any      `json:"body" yaml:"body"`
	RawBody    []byte              `json:"-" yaml:"-"`
	Headers    http.Header         `json:"headers" yaml:"headers"`
	StatusCode int                 `json:"status_code" yaml:"status_code"`
	Errors     []RelationshipError `json:"errors" yaml:"errors"`
}

// OK reports whether the batch was accepted by the service
func (r *RelationshipResult) OK() bool {
	return r.StatusCode == http.StatusOK
}

// Results returns the per-item entries of the response body, in request order.
// Entries that are not JSON objects are returned as nil maps.
func (r *RelationshipResult) Results() []map[string]any {
	raw, ok := r.Body["results"].([]any)
	if !ok {
		return nil
	}

	results := make([]map[string]any, len(raw))
	for i, item := range raw {
		results[i], _ = item.(map[string]any)
	}
	return results
}

// TopicSubscription describes a single topic a device is subscribed to
type TopicSubscription struct {
	AddDate string `json:"addDate" yaml:"addDate"`
}

// DeviceInfo wraps the free-form payload returned by the info endpoint.
// A nil *DeviceInfo means no information was returned.
type DeviceInfo struct {
	data map[string]any
}

// NewDeviceInfo wraps an already decoded info payload
func NewDeviceInfo(data map[string]any) *DeviceInfo {
	if data == nil {
		data = map[string]any{}
	}
	return &DeviceInfo{data: data}
}

// Raw returns the underlying decoded JSON object
func (d *DeviceInfo) Raw() map[string]any {
	return d.data
}

// Get walks path through nested objects and returns the value found there
func (d *DeviceInfo) Get(path ...string) (any, bool) {
	var current any = d.data
	for _, key := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// String returns the string at path, or "" if absent or not a string
func (d *DeviceInfo) String(path ...string) string {
	v, _ := d.Get(path...)
	s, _ := v.(string)
	return s
}

// Map returns the object at path, or nil if absent or not an object
func (d *DeviceInfo) Map(path ...string) map[string]any {
	v, _ := d.Get(path...)
	m, _ := v.(map[string]any)
	return m
}

// Len returns the number of entries of the object or array at path
func (d *DeviceInfo) Len(path ...string) int {
	v, _ := d.Get(path...)
	switch t := v.(type) {
	case map[string]any:
		return len(t)
	case []any:
		return len(t)
	}
	return 0
}

// Application returns the package name of the app the token belongs to
func (d *DeviceInfo) Application() string { return d.String("application") }

// AuthorizedEntity returns the project id authorized to send to the token
func (d *DeviceInfo) AuthorizedEntity() string { return d.String("authorizedEntity") }

// Platform returns the device platform (ANDROID, IOS, CHROME)
func (d *DeviceInfo) Platform() string { return d.String("platform") }

// AttestStatus returns the device attestation status
func (d *DeviceInfo) AttestStatus() string { return d.String("attestStatus") }

// AppSigner returns the sha1 fingerprint of the app signing certificate
func (d *DeviceInfo) AppSigner() string { return d.String("appSigner") }

// ConnectionType returns the last known connection type
func (d *DeviceInfo) ConnectionType() string { return d.String("connectionType") }

// ConnectDate returns the date the device last connected
func (d *DeviceInfo) ConnectDate() string { return d.String("connectDate") }

// Topics returns the topic subscriptions keyed by topic name
func (d *DeviceInfo) Topics() map[string]TopicSubscription {
	raw := d.Map("rel", "topics")
	topics := make(map[string]TopicSubscription, len(raw))
	for name, v := range raw {
		sub := TopicSubscription{}
		if m, ok := v.(map[string]any); ok {
			sub.AddDate, _ = m["addDate"].(string)
		}
		topics[name] = sub
	}
	return topics
}

// TopicNames returns the subscribed topic names, sorted
func (d *DeviceInfo) TopicNames() []string {
	raw := d.Map("rel", "topics")
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsSubscribed checks if the device is subscribed to topic
func (d *DeviceInfo) IsSubscribed(topic string) bool {
	_, ok := d.Get("rel", "topics", topic)
	return ok
}

// ChunkFailure records a chunk of a batch call that the service rejected
type ChunkFailure struct {
	Offset     int      `json:"offset" yaml:"offset"`
	Tokens     []string `json:"tokens" yaml:"tokens"`
	StatusCode int      `json:"status_code" yaml:"status_code"`
}

// BatchResult aggregates the chunked requests of BatchAddTopic/BatchRemoveTopic
type BatchResult struct {
	Chunks []*RelationshipResult `json:"-" yaml:"-"`
	Errors []RelationshipError   `json:"errors" yaml:"errors"`
	Failed []ChunkFailure        `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// OK reports whether every chunk was accepted
func (b *BatchResult) OK() bool {
	return len(b.Failed) == 0
}
