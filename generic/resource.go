/*
resource.go - Resource type registration and lookup

PURPOSE:
  Lets domain packages register their ResourceType values so the sqlite
  store can turn a stored resource_type column back into a concrete type.

USAGE:
  // In attendance/types.go
  func init() {
      generic.RegisterResource(ResourceCasualLeave)
  }

  // In store/sqlite
  rt := generic.GetOrCreateResource("casual_leave")
*/
package generic

import "sync"

var (
	resourceRegistry = make(map[string]ResourceType)
	registryMu       sync.RWMutex
)

// RegisterResource adds a resource type to the global registry.
// Call this from domain package init() functions.
func RegisterResource(r ResourceType) {
	registryMu.Lock()
	defer registryMu.Unlock()
	resourceRegistry[r.ResourceID()] = r
}

// LookupResource finds a registered resource type by ID.
// Returns nil if not found.
func LookupResource(id string) ResourceType {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return resourceRegistry[id]
}

// StringResource is the fallback when a stored ID has no registered type.
type StringResource struct {
	ID     string
	Domain string
}

func (r StringResource) ResourceID() string     { return r.ID }
func (r StringResource) ResourceDomain() string { return r.Domain }

// GetOrCreateResource looks up a resource type, or creates a StringResource fallback.
func GetOrCreateResource(id string) ResourceType {
	if r := LookupResource(id); r != nil {
		return r
	}
	return StringResource{ID: id, Domain: "unknown"}
}
