package account

import "time"

// CredentialPatch updates individual credential fields without touching
// siblings. Fields left nil are preserved from the current credential.
type CredentialPatch struct {
	AccessToken  *string
	RefreshToken *string
	IDToken      *string
	ExpiresAt    *time.Time
	SessionKey   *string
}

// UsagePatch updates individual quota fields.
type UsagePatch struct {
	Used  *int64
	Total *int64
}

// Patch is a partial account update. Nil fields are left unchanged.
// Credential replaces the whole credential (refresh outcomes do this);
// CredentialPatch merges field-by-field into the existing one. Setting
// both applies the replacement first, then the field merge.
type Patch struct {
	Name            *string
	Avatar          *string
	IsActive        *bool
	LastUsedAt      *time.Time
	Credential      Credential
	CredentialPatch *CredentialPatch
	Usage           *UsagePatch
	Status          *Status
	LastError       *string
}

// Apply merges the patch into a deep copy of acc and returns the merged
// record. acc itself is never mutated.
func (p Patch) Apply(acc *Account) *Account {
	merged := acc.Clone()
	if p.Name != nil {
		merged.Name = *p.Name
	}
	if p.Avatar != nil {
		merged.Avatar = *p.Avatar
	}
	if p.IsActive != nil {
		merged.IsActive = *p.IsActive
	}
	if p.LastUsedAt != nil {
		merged.LastUsedAt = *p.LastUsedAt
	}
	if p.Credential != nil {
		merged.Credential = cloneCredential(p.Credential)
	}
	if p.CredentialPatch != nil {
		merged.Credential = p.CredentialPatch.apply(merged.Credential)
	}
	if p.Usage != nil {
		if p.Usage.Used != nil {
			merged.Usage.Used = *p.Usage.Used
		}
		if p.Usage.Total != nil {
			merged.Usage.Total = *p.Usage.Total
		}
	}
	if p.Status != nil {
		merged.Status = *p.Status
	}
	if p.LastError != nil {
		merged.LastError = *p.LastError
	}
	return merged
}

func (cp *CredentialPatch) apply(cur Credential) Credential {
	switch c := cur.(type) {
	case *OAuthCredential:
		cc := *c
		if cp.AccessToken != nil {
			cc.AccessToken = *cp.AccessToken
		}
		if cp.RefreshToken != nil {
			cc.RefreshToken = *cp.RefreshToken
		}
		if cp.IDToken != nil {
			cc.IDToken = *cp.IDToken
		}
		if cp.ExpiresAt != nil {
			cc.ExpiresAt = *cp.ExpiresAt
		}
		return &cc
	case *SessionCredential:
		cc := *c
		if cp.SessionKey != nil {
			cc.SessionKey = *cp.SessionKey
		}
		return &cc
	case nil:
		// Patching an account that has no credential yet: build the
		// variant the patch describes.
		if cp.SessionKey != nil {
			return &SessionCredential{SessionKey: *cp.SessionKey}
		}
		cc := &OAuthCredential{}
		if cp.AccessToken != nil {
			cc.AccessToken = *cp.AccessToken
		}
		if cp.RefreshToken != nil {
			cc.RefreshToken = *cp.RefreshToken
		}
		if cp.IDToken != nil {
			cc.IDToken = *cp.IDToken
		}
		if cp.ExpiresAt != nil {
			cc.ExpiresAt = *cp.ExpiresAt
		}
		return cc
	}
	return cur
}

func cloneCredential(c Credential) Credential {
	switch cc := c.(type) {
	case *OAuthCredential:
		dup := *cc
		return &dup
	case *SessionCredential:
		dup := *cc
		return &dup
	}
	return c
}

// Helpers for building patches inline.

func Bool(v bool) *bool           { return &v }
func String(v string) *string     { return &v }
func Int64(v int64) *int64        { return &v }
func Time(v time.Time) *time.Time { return &v }
func StatusPtr(v Status) *Status  { return &v }
