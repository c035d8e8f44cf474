package provider

type IdentityType string

const (
	IdentityUser        IdentityType = "user"
	IdentityApplication IdentityType = "application"
	IdentityUnknown     IdentityType = "unknown"
)

const UnknownDisplayName = "Unknown"

type Identity struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	TenantID    string `json:"tenantId,omitempty"`
}

// IdentitySet mirrors the provider's identity container. Only user and application are consulted.
type IdentitySet struct {
	User        *Identity `json:"user,omitempty"`
	Application *Identity `json:"application,omitempty"`
}

type ResolvedIdentity struct {
	ID          string
	DisplayName string
	Type        IdentityType
}

type identityCandidate struct {
	kind     IdentityType
	identity *Identity
}

// ResolveIdentity walks the precedence list user, application and finally the raw resource id.
// The first candidate carrying an id wins; its display name falls back to "Unknown".
func ResolveIdentity(set IdentitySet, rawID string) ResolvedIdentity {
	candidates := []identityCandidate{
		{kind: IdentityUser, identity: set.User},
		{kind: IdentityApplication, identity: set.Application},
	}
	for _, c := range candidates {
		if c.identity == nil || c.identity.ID == "" {
			continue
		}
		return ResolvedIdentity{
			ID:          c.identity.ID,
			DisplayName: FirstNonEmpty(c.identity.DisplayName, UnknownDisplayName),
			Type:        c.kind,
		}
	}
	return ResolvedIdentity{
		ID:          rawID,
		DisplayName: FirstNonEmpty(displayNameOf(set.User), displayNameOf(set.Application), UnknownDisplayName),
		Type:        IdentityUnknown,
	}
}

// FirstNonEmpty returns the first non-empty value in precedence order.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func displayNameOf(id *Identity) string {
	if id == nil {
		return ""
	}
	return id.DisplayName
}
