package types

// ClientType determines which pricing formula family applies to a tenant.
type ClientType string

const (
	// ClientTypeHousingAssociation bills on the door or building stock it manages.
	ClientTypeHousingAssociation ClientType = "housing_association"
	// ClientTypeContractor bills per inspector licence plus door data storage.
	ClientTypeContractor ClientType = "contractor"
)

func (c ClientType) Validate() bool {
	switch c {
	case ClientTypeHousingAssociation, ClientTypeContractor:
		return true
	}
	return false
}

// BillingModel selects the housing association pricing formula.
// It has no meaning for contractor tenants.
type BillingModel string

const (
	BillingModelPerDoor     BillingModel = "per_door"
	BillingModelPerBuilding BillingModel = "per_building"
)

func (b BillingModel) Validate() bool {
	switch b {
	case BillingModelPerDoor, BillingModelPerBuilding:
		return true
	}
	return false
}

// BillingCycle is informational only. The engine always meters monthly
// regardless of how the tenant settles.
type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleAnnual  BillingCycle = "annual"
)

func (b BillingCycle) Validate() bool {
	switch b {
	case BillingCycleMonthly, BillingCycleAnnual:
		return true
	}
	return false
}

// ResourceType identifies a quota-enforced, metered resource class.
type ResourceType string

const (
	ResourceTypeDoor       ResourceType = "door"
	ResourceTypeBuilding   ResourceType = "building"
	ResourceTypeUser       ResourceType = "user"
	ResourceTypeInspector  ResourceType = "inspector"
	ResourceTypeInspection ResourceType = "inspection"
)

func (r ResourceType) Validate() bool {
	switch r {
	case ResourceTypeDoor, ResourceTypeBuilding, ResourceTypeUser,
		ResourceTypeInspector, ResourceTypeInspection:
		return true
	}
	return false
}

// QuotaResourceTypes are the resource classes that carry a configured
// maximum. Inspections are metered but never quota limited.
func QuotaResourceTypes() []ResourceType {
	return []ResourceType{
		ResourceTypeDoor,
		ResourceTypeBuilding,
		ResourceTypeUser,
		ResourceTypeInspector,
	}
}

// ResourceCounts is a point-in-time snapshot of a tenant's resource usage.
// Doors, buildings, users and inspectors are current totals as of the
// snapshot instant; inspections are windowed to the snapshot's calendar
// month. A door present in month N keeps being billed in month N+1, which
// is why the totals are deliberately not windowed.
type ResourceCounts struct {
	Doors       int `json:"doors"`
	Buildings   int `json:"buildings"`
	Users       int `json:"users"`
	Inspectors  int `json:"inspectors"`
	Inspections int `json:"inspections"`
}

// Get returns the count for a quota resource type.
func (c ResourceCounts) Get(resourceType ResourceType) int {
	switch resourceType {
	case ResourceTypeDoor:
		return c.Doors
	case ResourceTypeBuilding:
		return c.Buildings
	case ResourceTypeUser:
		return c.Users
	case ResourceTypeInspector:
		return c.Inspectors
	case ResourceTypeInspection:
		return c.Inspections
	}
	return 0
}
