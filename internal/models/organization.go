package models

// Action is a named reward definition: which roles may trigger it and for how much.
type Action struct {
	Name         string   `json:"name" dynamodbav:"name"`
	AllowedRoles []string `json:"allowed_roles" dynamodbav:"allowed_roles"`
	Amount       string   `json:"amount" dynamodbav:"amount"`
}

// Seeder is the org funding account. It pays for manager-mode transfers and
// for seeding freshly provisioned wallets.
type Seeder struct {
	Address       string `json:"address" dynamodbav:"address"`
	PrivateKeyHex string `json:"-" dynamodbav:"private_key_hex"`
}

// Contract is the org's deployed token contract.
type Contract struct {
	Address     string `json:"address" dynamodbav:"address"`
	TokenSymbol string `json:"token_symbol" dynamodbav:"token_symbol"`
	TokenName   string `json:"token_name" dynamodbav:"token_name"`
}

// NFT is a redeemable item an org makes available to members.
type NFT struct {
	ID              string `json:"id" dynamodbav:"id"`
	Name            string `json:"name" dynamodbav:"name"`
	ContractAddress string `json:"contract_address" dynamodbav:"contract_address"`
	TokenID         string `json:"token_id" dynamodbav:"token_id"`
}

// Organization is a loyalty program tenant.
type Organization struct {
	ID            string   `json:"id" dynamodbav:"id"`
	Name          string   `json:"name" dynamodbav:"name"`
	MemberIDs     []string `json:"member_ids" dynamodbav:"member_ids"`
	Roles         []string `json:"roles" dynamodbav:"roles"`
	Actions       []Action `json:"actions" dynamodbav:"actions"`
	Seeder        Seeder   `json:"seeder" dynamodbav:"seeder"`
	Contract      Contract `json:"avax_contract" dynamodbav:"avax_contract"`
	AvailableNFTs []NFT    `json:"available_nfts,omitempty" dynamodbav:"available_nfts,omitempty"`
}

// OrganizationPublic is Organization without seeder key material.
type OrganizationPublic struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	MemberIDs     []string `json:"member_ids"`
	Roles         []string `json:"roles"`
	Actions       []Action `json:"actions"`
	SeederAddress string   `json:"seeder_address"`
	Contract      Contract `json:"avax_contract"`
	AvailableNFTs []NFT    `json:"available_nfts,omitempty"`
}

// ToPublic converts Organization to OrganizationPublic.
func (o *Organization) ToPublic() OrganizationPublic {
	return OrganizationPublic{
		ID:            o.ID,
		Name:          o.Name,
		MemberIDs:     o.MemberIDs,
		Roles:         o.Roles,
		Actions:       o.Actions,
		SeederAddress: o.Seeder.Address,
		Contract:      o.Contract,
		AvailableNFTs: o.AvailableNFTs,
	}
}

// HasMember reports whether the user id is in the org member list.
func (o *Organization) HasMember(userID string) bool {
	for _, id := range o.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// FindNFT returns the available NFT with the given id, or nil.
func (o *Organization) FindNFT(id string) *NFT {
	for i := range o.AvailableNFTs {
		if o.AvailableNFTs[i].ID == id {
			return &o.AvailableNFTs[i]
		}
	}
	return nil
}
