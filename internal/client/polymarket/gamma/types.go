package polymarketgamma

import (
	"encoding/json"

	"polymarket-ingest/internal/client/polymarket"
)

type Market struct {
	ID           polymarket.ID         `json:"id"`
	Question     string                `json:"question"`
	ConditionID  string                `json:"conditionId"`
	Slug         string                `json:"slug"`
	Description  string                `json:"description"`
	Outcomes     polymarket.StringList `json:"outcomes"`
	ClobTokenIDs polymarket.StringList `json:"clobTokenIds"`
	Volume       *polymarket.Decimal   `json:"volume"`
	Liquidity    *polymarket.Decimal   `json:"liquidity"`
	Active       bool                  `json:"active"`
	Closed       bool                  `json:"closed"`
	Archived     bool                  `json:"archived"`
	NegRisk      *bool                 `json:"negRisk"`
	StartDate    polymarket.Time       `json:"startDate"`
	EndDate      polymarket.Time       `json:"endDate"`
	CreatedAt    polymarket.Time       `json:"createdAt"`
	UpdatedAt    polymarket.Time       `json:"updatedAt"`
	Events       []Event               `json:"events"`
	Tags         []Tag                 `json:"tags"`

	Raw json.RawMessage `json:"-"`
	// DecodeErr is set when this element of the page could not be decoded;
	// only ID and Raw are filled in then.
	DecodeErr error `json:"-"`
}

type Event struct {
	ID          polymarket.ID   `json:"id"`
	Slug        string          `json:"slug"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Active      bool            `json:"active"`
	Closed      bool            `json:"closed"`
	StartDate   polymarket.Time `json:"startDate"`
	EndDate     polymarket.Time `json:"endDate"`
	UpdatedAt   polymarket.Time `json:"updatedAt"`
}

type Tag struct {
	ID    polymarket.ID `json:"id"`
	Label string        `json:"label"`
	Slug  string        `json:"slug"`
}

type Comment struct {
	ID               polymarket.ID   `json:"id"`
	Body             string          `json:"body"`
	ParentEntityType string          `json:"parentEntityType"`
	ParentEntityID   polymarket.ID   `json:"parentEntityID"`
	ParentCommentID  polymarket.ID   `json:"parentCommentID"`
	UserAddress      string          `json:"userAddress"`
	ReplyAddress     string          `json:"replyAddress"`
	ReactionCount    int             `json:"reactionCount"`
	ReportCount      int             `json:"reportCount"`
	CreatedAt        polymarket.Time `json:"createdAt"`
	UpdatedAt        polymarket.Time `json:"updatedAt"`
	Profile          *Profile        `json:"profile"`
	Reactions        []Reaction      `json:"reactions"`

	Raw       json.RawMessage `json:"-"`
	DecodeErr error           `json:"-"`
}

type Profile struct {
	Name                  string `json:"name"`
	Pseudonym             string `json:"pseudonym"`
	DisplayUsernamePublic bool   `json:"displayUsernamePublic"`
	ProxyWallet           string `json:"proxyWallet"`
	BaseAddress           string `json:"baseAddress"`
	ProfileImage          string `json:"profileImage"`
}

type Reaction struct {
	ID           polymarket.ID   `json:"id"`
	CommentID    polymarket.ID   `json:"commentID"`
	ReactionType string          `json:"reactionType"`
	Icon         string          `json:"icon"`
	UserAddress  string          `json:"userAddress"`
	CreatedAt    polymarket.Time `json:"createdAt"`
}
