package models

// OrgRole is the role of a user within an organization.
type OrgRole string

const (
	OrgRoleMember  OrgRole = "member"
	OrgRoleManager OrgRole = "manager"
)

// OrgMembership links a user to an organization with a role.
type OrgMembership struct {
	OrgID string  `json:"org_id" dynamodbav:"org_id"`
	Role  OrgRole `json:"role" dynamodbav:"role"`
}

// User represents a platform user with an attached wallet.
// The private key is generated once at account confirmation and never rotated.
type User struct {
	ID            string          `json:"id" dynamodbav:"id"`
	URN           string          `json:"urn" dynamodbav:"urn"`
	FirstName     string          `json:"first_name" dynamodbav:"first_name"`
	LastName      string          `json:"last_name" dynamodbav:"last_name"`
	Email         string          `json:"email" dynamodbav:"email"`
	PhoneNumber   string          `json:"phone_number" dynamodbav:"phone_number"`
	AllowSMS      bool            `json:"allow_sms" dynamodbav:"allow_sms"`
	Organizations []OrgMembership `json:"organizations" dynamodbav:"organizations"`

	WalletAddressC string `json:"wallet_address_c" dynamodbav:"wallet_address_c"`
	WalletAddressP string `json:"wallet_address_p" dynamodbav:"wallet_address_p"`
	WalletAddressX string `json:"wallet_address_x" dynamodbav:"wallet_address_x"`
	// Stored in plaintext; access control is delegated to the document store.
	WalletPrivateKeyHex string `json:"-" dynamodbav:"wallet_private_key_hex"`
}

// RoleIn returns the user's role in the given org, or empty if not a member.
func (u *User) RoleIn(orgID string) OrgRole {
	for _, m := range u.Organizations {
		if m.OrgID == orgID {
			return m.Role
		}
	}
	return ""
}

// MemberOf reports whether the user belongs to the given org.
func (u *User) MemberOf(orgID string) bool {
	return u.RoleIn(orgID) != ""
}

// UserPublic is User without wallet key material, for API responses.
type UserPublic struct {
	ID             string          `json:"id"`
	URN            string          `json:"urn"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	Email          string          `json:"email"`
	PhoneNumber    string          `json:"phone_number"`
	AllowSMS       bool            `json:"allow_sms"`
	Organizations  []OrgMembership `json:"organizations"`
	WalletAddressC string          `json:"wallet_address_c"`
	WalletAddressP string          `json:"wallet_address_p"`
	WalletAddressX string          `json:"wallet_address_x"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:             u.ID,
		URN:            u.URN,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Email:          u.Email,
		PhoneNumber:    u.PhoneNumber,
		AllowSMS:       u.AllowSMS,
		Organizations:  u.Organizations,
		WalletAddressC: u.WalletAddressC,
		WalletAddressP: u.WalletAddressP,
		WalletAddressX: u.WalletAddressX,
	}
}
