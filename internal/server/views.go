package server

import (
	"encoding/json"
	"time"

	"vestingdapp/internal/vesting"

	"github.com/google/uuid"
)

type statusResponse struct {
	Message      string                `json:"message"`
	Severity     vesting.Severity      `json:"severity"`
	Busy         bool                  `json:"busy"`
	UpdatedAt    *time.Time            `json:"updatedAt,omitempty"`
	Account      accountView           `json:"account"`
	Network      vesting.NetworkStatus `json:"network"`
	Owner        ownerView             `json:"owner"`
	Vested       *vestedView           `json:"vested,omitempty"`
	Transactions map[string]handleView `json:"transactions"`
}

type accountView struct {
	Address   string `json:"address,omitempty"`
	Connected bool   `json:"connected"`
	ChainID   uint64 `json:"chainId"`
}

type errorResponse struct {
	Error       string      `json:"error"`
	Code        string      `json:"code,omitempty"`
	Field       string      `json:"field,omitempty"`
	Transaction *handleView `json:"transaction,omitempty"`
}

type handleView struct {
	ID          string        `json:"id,omitempty"`
	Kind        vesting.Kind  `json:"kind"`
	Phase       vesting.Phase `json:"phase"`
	TxHash      string        `json:"txHash,omitempty"`
	Error       string        `json:"error,omitempty"`
	SubmittedAt *time.Time    `json:"submittedAt,omitempty"`
	UpdatedAt   *time.Time    `json:"updatedAt,omitempty"`
}

func newHandleView(h vesting.Handle) handleView {
	v := handleView{Kind: h.Kind, Phase: h.Phase}
	if h.ID != uuid.Nil {
		v.ID = h.ID.String()
	}
	if h.HasHash {
		v.TxHash = h.Hash.Hex()
	}
	if h.Err != nil {
		v.Error = vesting.UserMessage(h.Err)
	}
	if !h.SubmittedAt.IsZero() {
		v.SubmittedAt = &h.SubmittedAt
	}
	if !h.UpdatedAt.IsZero() {
		v.UpdatedAt = &h.UpdatedAt
	}
	return v
}

type ownerView struct {
	Address   string     `json:"address,omitempty"`
	Known     bool       `json:"known"`
	FetchedAt *time.Time `json:"fetchedAt,omitempty"`
	Error     string     `json:"error,omitempty"`
}

func newOwnerView(rec vesting.OwnerRecord) ownerView {
	v := ownerView{Known: rec.Known}
	if rec.Known {
		v.Address = rec.Owner.Hex()
	}
	if !rec.FetchedAt.IsZero() {
		v.FetchedAt = &rec.FetchedAt
	}
	if rec.Err != nil {
		v.Error = vesting.UserMessage(rec.Err)
	}
	return v
}

type vestedView struct {
	Subject     string     `json:"subject"`
	AmountWei   string     `json:"amountWei,omitempty"`
	AmountEther string     `json:"amountEther,omitempty"`
	CheckedAt   *time.Time `json:"checkedAt,omitempty"`
	Error       string     `json:"error,omitempty"`
}

func newVestedView(q vesting.VestedQuery) vestedView {
	v := vestedView{Subject: q.Subject.Hex()}
	if q.Amount != nil {
		v.AmountWei = q.Amount.Dec()
		v.AmountEther = vesting.FormatEther(q.Amount)
	}
	if q.Checked() {
		v.CheckedAt = &q.CheckedAt
	}
	if q.Err != nil {
		v.Error = vesting.UserMessage(q.Err)
	}
	return v
}

// flexString accepts a JSON string or number and keeps its literal text.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
