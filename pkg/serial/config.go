package serial

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultDateLayout is the wire format for dates: RFC 3339 with optional
// fractional seconds, always written in UTC.
const DefaultDateLayout = time.RFC3339Nano

// DefaultMaxDepth bounds recursion through nested objects and relationships.
const DefaultMaxDepth = 64

// CyclePolicy decides what is emitted when a relationship revisits a node.
type CyclePolicy int

const (
	// CycleOmit drops the revisiting attribute or collection element
	CycleOmit CyclePolicy = iota
	// CyclePlaceholder emits an object holding only the node's identity attribute
	CyclePlaceholder
)

// String returns the string representation of the cycle policy
func (p CyclePolicy) String() string {
	switch p {
	case CycleOmit:
		return "omit"
	case CyclePlaceholder:
		return "placeholder"
	default:
		return "unknown"
	}
}

// ParseCyclePolicy converts a string to a CyclePolicy
func ParseCyclePolicy(s string) (CyclePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "omit", "":
		return CycleOmit, nil
	case "placeholder", "ref", "reference":
		return CyclePlaceholder, nil
	default:
		return CycleOmit, fmt.Errorf("unknown cycle policy: %s", s)
	}
}

// Redirect pairs an attribute name with the wire key it is always written as.
type Redirect struct {
	PropertyName  string
	SerializedKey string
}

// Configuration holds the naming and formatting settings read by every
// serialization call. It is safe for concurrent use; changes apply to all
// subsequent lookups, including lookups made by calls already in flight.
type Configuration struct {
	mu                 sync.RWMutex
	propertyKeyStyle   KeyStyle
	serializedKeyStyle KeyStyle
	toSerialized       map[string]string // property name -> wire key
	toProperty         map[string]string // wire key -> property name
	dateLayout         string
	cyclePolicy        CyclePolicy
	maxDepth           int
}

var sharedConfiguration = NewConfiguration()

// Shared returns the process-wide configuration used by the default codec.
func Shared() *Configuration {
	return sharedConfiguration
}

// NewConfiguration creates a configuration with default settings:
// match-case in both directions, no redirects, RFC 3339 dates.
func NewConfiguration() *Configuration {
	c := &Configuration{}
	c.reset()
	return c
}

// Reset restores the default settings
func (c *Configuration) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

func (c *Configuration) reset() {
	c.propertyKeyStyle = MatchCase
	c.serializedKeyStyle = MatchCase
	c.toSerialized = make(map[string]string)
	c.toProperty = make(map[string]string)
	c.dateLayout = DefaultDateLayout
	c.cyclePolicy = CycleOmit
	c.maxDepth = DefaultMaxDepth
}

// PropertyKeyStyle returns the style applied to wire keys to obtain attribute names
func (c *Configuration) PropertyKeyStyle() KeyStyle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.propertyKeyStyle
}

// SetPropertyKeyStyle sets the style applied to wire keys to obtain attribute names
func (c *Configuration) SetPropertyKeyStyle(style KeyStyle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.propertyKeyStyle = style
}

// SerializedKeyStyle returns the style applied to attribute names to obtain wire keys
func (c *Configuration) SerializedKeyStyle() KeyStyle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serializedKeyStyle
}

// SetSerializedKeyStyle sets the style applied to attribute names to obtain wire keys
func (c *Configuration) SetSerializedKeyStyle(style KeyStyle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.serializedKeyStyle = style
}

// AddRedirect maps propertyName to serializedKey in both directions.
// Existing redirects sharing either side are replaced so that each
// name and each key resolves to exactly one counterpart.
func (c *Configuration) AddRedirect(propertyName, serializedKey string) error {
	if propertyName == "" || serializedKey == "" {
		return fmt.Errorf("redirect requires both a property name and a serialized key")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if oldKey, ok := c.toSerialized[propertyName]; ok {
		delete(c.toProperty, oldKey)
	}
	if oldName, ok := c.toProperty[serializedKey]; ok {
		delete(c.toSerialized, oldName)
	}
	c.toSerialized[propertyName] = serializedKey
	c.toProperty[serializedKey] = propertyName
	return nil
}

// RemoveRedirect removes the redirect for propertyName, reporting whether one existed
func (c *Configuration) RemoveRedirect(propertyName string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	key, ok := c.toSerialized[propertyName]
	if !ok {
		return false
	}
	delete(c.toSerialized, propertyName)
	delete(c.toProperty, key)
	return true
}

// Redirects returns a copy of all redirects sorted by property name
func (c *Configuration) Redirects() []Redirect {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]Redirect, 0, len(c.toSerialized))
	for name, key := range c.toSerialized {
		result = append(result, Redirect{PropertyName: name, SerializedKey: key})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].PropertyName < result[j].PropertyName
	})
	return result
}

// PropertyName resolves the attribute name for a wire key.
// Redirects are consulted first, then the property key style.
func (c *Configuration) PropertyName(serializedKey string) (string, bool) {
	if serializedKey == "" {
		return "", false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if name, ok := c.toProperty[serializedKey]; ok {
		return name, true
	}
	return Translate(serializedKey, c.propertyKeyStyle), true
}

// SerializedKey resolves the wire key for an attribute name.
// Redirects are consulted first, then the serialized key style.
func (c *Configuration) SerializedKey(propertyName string) (string, bool) {
	if propertyName == "" {
		return "", false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if key, ok := c.toSerialized[propertyName]; ok {
		return key, true
	}
	return Translate(propertyName, c.serializedKeyStyle), true
}

// DateLayout returns the time layout used for date attributes
func (c *Configuration) DateLayout() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dateLayout
}

// SetDateLayout sets the time layout used for date attributes
func (c *Configuration) SetDateLayout(layout string) error {
	if strings.TrimSpace(layout) == "" {
		return fmt.Errorf("date layout cannot be empty")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dateLayout = layout
	return nil
}

// CyclePolicy returns the policy for revisited relationship targets
func (c *Configuration) CyclePolicy() CyclePolicy {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cyclePolicy
}

// SetCyclePolicy sets the policy for revisited relationship targets
func (c *Configuration) SetCyclePolicy(policy CyclePolicy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cyclePolicy = policy
}

// MaxDepth returns the recursion limit for nested values
func (c *Configuration) MaxDepth() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.maxDepth
}

// SetMaxDepth sets the recursion limit for nested values
func (c *Configuration) SetMaxDepth(depth int) error {
	if depth < 1 {
		return fmt.Errorf("max depth must be positive, got %d", depth)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxDepth = depth
	return nil
}
